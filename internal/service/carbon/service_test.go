package carbon

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/infrastructure/keylock"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

type MockInverterRepository struct {
	mu        sync.Mutex
	inverters map[uint]*domain.Inverter
}

func NewMockInverterRepository() *MockInverterRepository {
	return &MockInverterRepository{inverters: make(map[uint]*domain.Inverter)}
}

func (m *MockInverterRepository) Save(ctx context.Context, inv *domain.Inverter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == 0 {
		inv.ID = uint(len(m.inverters) + 1)
	}
	m.inverters[inv.ID] = inv
	return nil
}

func (m *MockInverterRepository) FindByID(ctx context.Context, id uint) (*domain.Inverter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inverters[id], nil
}

func (m *MockInverterRepository) FindAll(ctx context.Context) ([]domain.Inverter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Inverter, 0, len(m.inverters))
	for _, inv := range m.inverters {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *MockInverterRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.inverters)), nil
}

type MockReadingRepository struct {
	mu   sync.Mutex
	sums map[string]float64
}

func NewMockReadingRepository() *MockReadingRepository {
	return &MockReadingRepository{sums: make(map[string]float64)}
}

func (m *MockReadingRepository) setSum(inverterID uint, day time.Time, kwh float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sums[CreditKey(inverterID, day)] = kwh
}

func (m *MockReadingRepository) SaveBatch(ctx context.Context, readings []domain.Reading, audits []domain.AuditLog) error {
	return nil
}

func (m *MockReadingRepository) FindByInverterAndRange(ctx context.Context, inverterID uint, start, end time.Time) ([]domain.Reading, error) {
	return nil, nil
}

func (m *MockReadingRepository) SumKWhForDay(ctx context.Context, inverterID uint, day time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sums[CreditKey(inverterID, day)], nil
}

type MockCreditRepository struct {
	mu      sync.Mutex
	credits map[string]*domain.CarbonCredit
	saveErr error
	saves   int
}

func NewMockCreditRepository() *MockCreditRepository {
	return &MockCreditRepository{credits: make(map[string]*domain.CarbonCredit)}
}

func (m *MockCreditRepository) Save(ctx context.Context, credit *domain.CarbonCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	cp := *credit
	m.credits[CreditKey(credit.InverterID, credit.CreditDate)] = &cp
	return nil
}

func (m *MockCreditRepository) FindByInverterAndDate(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credits[CreditKey(inverterID, date)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MockCreditRepository) FindByInverter(ctx context.Context, inverterID uint) ([]domain.CarbonCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CarbonCredit
	for _, c := range m.credits {
		if c.InverterID == inverterID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockCreditRepository) Summary(ctx context.Context) (*domain.FleetSummary, error) {
	return &domain.FleetSummary{}, nil
}

func testConfig() config.VerificationConfig {
	return config.VerificationConfig{
		EmissionFactor:       1.2,
		CorrelationThreshold: 0.90,
		PanelEfficiency:      0.20,
		AreaPerKW:            5.0,
		SafetyMargin:         1.2,
	}
}

func newTestService(inverters *MockInverterRepository, readings *MockReadingRepository, credits *MockCreditRepository) *Service {
	svc := NewService(inverters, readings, credits, keylock.New(), nil, testConfig(), zap.NewNop())
	return svc.(*Service)
}

func TestCO2Avoided(t *testing.T) {
	svc := newTestService(NewMockInverterRepository(), NewMockReadingRepository(), NewMockCreditRepository())

	cases := []struct {
		kwh  float64
		want float64
	}{
		{0, 0},
		{1000, 1.2},
		{50, 0.06},
		{833.3333, 0.99999996},
	}
	for _, tc := range cases {
		got := svc.CO2Avoided(tc.kwh)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("CO2Avoided(%v) = %v, want %v", tc.kwh, got, tc.want)
		}
	}
}

func TestCalculateDailyCreditCreatesPending(t *testing.T) {
	inverters := NewMockInverterRepository()
	readings := NewMockReadingRepository()
	credits := NewMockCreditRepository()
	svc := newTestService(inverters, readings, credits)

	inv := &domain.Inverter{Name: "rooftop-a", CapacityKW: 10}
	if err := inverters.Save(context.Background(), inv); err != nil {
		t.Fatal(err)
	}
	day := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)
	readings.setSum(inv.ID, day, 50)

	credit, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day)
	if err != nil {
		t.Fatalf("CalculateDailyCredit: %v", err)
	}
	if credit.Status != domain.CreditStatusPending {
		t.Errorf("status = %s, want %s", credit.Status, domain.CreditStatusPending)
	}
	if math.Abs(credit.Tonnes-0.06) > 1e-9 {
		t.Errorf("tonnes = %v, want 0.06", credit.Tonnes)
	}
	if !credit.CreditDate.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("credit date not truncated to day: %v", credit.CreditDate)
	}
}

func TestCalculateDailyCreditIsIdempotent(t *testing.T) {
	inverters := NewMockInverterRepository()
	readings := NewMockReadingRepository()
	credits := NewMockCreditRepository()
	svc := newTestService(inverters, readings, credits)

	inv := &domain.Inverter{Name: "rooftop-b", CapacityKW: 5}
	inverters.Save(context.Background(), inv)
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	readings.setSum(inv.ID, day, 40)

	first, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if first.Tonnes != second.Tonnes {
		t.Errorf("tonnes changed across runs: %v vs %v", first.Tonnes, second.Tonnes)
	}
	if len(credits.credits) != 1 {
		t.Errorf("expected a single credit row, got %d", len(credits.credits))
	}
}

func TestCalculateDailyCreditRecalculatesTonnageOnly(t *testing.T) {
	inverters := NewMockInverterRepository()
	readings := NewMockReadingRepository()
	credits := NewMockCreditRepository()
	svc := newTestService(inverters, readings, credits)

	inv := &domain.Inverter{Name: "rooftop-c", CapacityKW: 5}
	inverters.Save(context.Background(), inv)
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	readings.setSum(inv.ID, day, 40)

	if _, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day); err != nil {
		t.Fatal(err)
	}

	// Simulate a verification pass between calculations.
	stored := credits.credits[CreditKey(inv.ID, day)]
	stored.Status = domain.CreditStatusVerified

	// Late readings arrive for the same day.
	readings.setSum(inv.ID, day, 48)
	credit, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(credit.Tonnes-0.0576) > 1e-9 {
		t.Errorf("tonnes = %v, want 0.0576", credit.Tonnes)
	}
	if credit.Status != domain.CreditStatusVerified {
		t.Errorf("recalculation must not change status, got %s", credit.Status)
	}
}

func TestCalculateDailyCreditZeroReadings(t *testing.T) {
	inverters := NewMockInverterRepository()
	readings := NewMockReadingRepository()
	credits := NewMockCreditRepository()
	svc := newTestService(inverters, readings, credits)

	inv := &domain.Inverter{Name: "rooftop-d", CapacityKW: 5}
	inverters.Save(context.Background(), inv)
	day := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	credit, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day)
	if err != nil {
		t.Fatalf("calculation with no readings must still produce a credit: %v", err)
	}
	if credit.Tonnes != 0 {
		t.Errorf("tonnes = %v, want 0", credit.Tonnes)
	}
	if credit.Status != domain.CreditStatusPending {
		t.Errorf("status = %s, want %s", credit.Status, domain.CreditStatusPending)
	}
}

func TestCalculateDailyCreditUnknownInverter(t *testing.T) {
	svc := newTestService(NewMockInverterRepository(), NewMockReadingRepository(), NewMockCreditRepository())

	_, err := svc.CalculateDailyCredit(context.Background(), 42, time.Now())
	var refErr *domain.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if refErr.EntityID != 42 {
		t.Errorf("entity id = %d, want 42", refErr.EntityID)
	}
}

func TestCalculateDailyCreditConcurrentSameDay(t *testing.T) {
	inverters := NewMockInverterRepository()
	readings := NewMockReadingRepository()
	credits := NewMockCreditRepository()
	svc := newTestService(inverters, readings, credits)

	inv := &domain.Inverter{Name: "rooftop-e", CapacityKW: 10}
	inverters.Save(context.Background(), inv)
	day := time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)
	readings.setSum(inv.ID, day, 60)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CalculateDailyCredit(context.Background(), inv.ID, day); err != nil {
				t.Errorf("concurrent calculation: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(credits.credits) != 1 {
		t.Errorf("expected a single credit row after concurrent runs, got %d", len(credits.credits))
	}
}
