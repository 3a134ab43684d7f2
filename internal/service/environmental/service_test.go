package environmental

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

type MockSatelliteRepository struct {
	mu       sync.Mutex
	readings []domain.SatelliteReading
	findErr  error
}

func (m *MockSatelliteRepository) SaveAll(ctx context.Context, readings []domain.SatelliteReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, readings...)
	return nil
}

func (m *MockSatelliteRepository) FindByLocationAndRange(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.SatelliteReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []domain.SatelliteReading
	for _, r := range m.readings {
		if r.Lat == lat && r.Lon == lon && !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

type MockProvider struct {
	points  []domain.IrradiancePoint
	err     error
	fetches int
}

func (m *MockProvider) FetchDailyIrradiance(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.IrradiancePoint, error) {
	m.fetches++
	if m.err != nil {
		return nil, m.err
	}
	return m.points, nil
}

type MockCache struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MockCache) Ping() error  { return nil }
func (m *MockCache) Close() error { return nil }

func testConfig() config.VerificationConfig {
	return config.VerificationConfig{
		EmissionFactor:       1.2,
		CorrelationThreshold: 0.90,
		PanelEfficiency:      0.20,
		AreaPerKW:            5.0,
		SafetyMargin:         1.2,
	}
}

func newTestService(repo *MockSatelliteRepository, provider *MockProvider, cache *MockCache) *Service {
	svc := NewService(repo, provider, cache, time.Hour, testConfig(), zap.NewNop())
	return svc.(*Service)
}

func TestTheoreticalOutput(t *testing.T) {
	svc := newTestService(&MockSatelliteRepository{}, &MockProvider{}, NewMockCache())

	cases := []struct {
		irradiance float64
		capacity   float64
		want       float64
	}{
		// 10 kW: 50 m² of panels at 20% efficiency under full sun.
		{1000, 10, 10},
		{250, 10, 2.5},
		{0, 10, 0},
		{500, 5, 2.5},
	}
	for _, tc := range cases {
		got := svc.TheoreticalOutput(tc.irradiance, tc.capacity)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("TheoreticalOutput(%v, %v) = %v, want %v", tc.irradiance, tc.capacity, got, tc.want)
		}
	}
}

func TestReferenceProfileIsFlat(t *testing.T) {
	svc := newTestService(&MockSatelliteRepository{}, &MockProvider{}, NewMockCache())

	profile := svc.ReferenceProfile(2.5)
	if len(profile) != 24 {
		t.Fatalf("profile length = %d, want 24", len(profile))
	}
	for i, v := range profile {
		if v != 2.5 {
			t.Errorf("profile[%d] = %v, want 2.5", i, v)
		}
	}
}

func TestIrradianceForDateFetchesAndBackfills(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	repo := &MockSatelliteRepository{}
	provider := &MockProvider{points: []domain.IrradiancePoint{{Date: day, Irradiance: 250}}}
	cache := NewMockCache()
	svc := newTestService(repo, provider, cache)

	v, err := svc.IrradianceForDate(context.Background(), -23.55, -46.63, day)
	if err != nil {
		t.Fatalf("IrradianceForDate: %v", err)
	}
	if v != 250 {
		t.Errorf("irradiance = %v, want 250", v)
	}
	if len(repo.readings) != 1 {
		t.Errorf("expected fetched point persisted, got %d rows", len(repo.readings))
	}
	if provider.fetches != 1 {
		t.Errorf("fetches = %d, want 1", provider.fetches)
	}
}

func TestIrradianceForDateServedFromStore(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	repo := &MockSatelliteRepository{readings: []domain.SatelliteReading{
		{Lat: -23.55, Lon: -46.63, Timestamp: day, Irradiance: 180},
	}}
	provider := &MockProvider{err: errors.New("should not be called")}
	svc := newTestService(repo, provider, NewMockCache())

	v, err := svc.IrradianceForDate(context.Background(), -23.55, -46.63, day)
	if err != nil {
		t.Fatalf("IrradianceForDate: %v", err)
	}
	if v != 180 {
		t.Errorf("irradiance = %v, want 180", v)
	}
	if provider.fetches != 0 {
		t.Errorf("provider consulted despite stored reading")
	}
}

func TestIrradianceForDateServedFromCache(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	repo := &MockSatelliteRepository{findErr: errors.New("store down")}
	provider := &MockProvider{}
	cache := NewMockCache()
	cache.Set(context.Background(), cacheKey(-23.55, -46.63, day), "210", time.Hour)
	svc := newTestService(repo, provider, cache)

	v, err := svc.IrradianceForDate(context.Background(), -23.55, -46.63, day)
	if err != nil {
		t.Fatalf("IrradianceForDate: %v", err)
	}
	if v != 210 {
		t.Errorf("irradiance = %v, want 210", v)
	}
}

func TestIrradianceForDateProviderFailure(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	provider := &MockProvider{err: &domain.ExternalUnavailable{Provider: "nasa-power", Err: errors.New("timeout")}}
	svc := newTestService(&MockSatelliteRepository{}, provider, NewMockCache())

	_, err := svc.IrradianceForDate(context.Background(), -23.55, -46.63, day)
	var unavail *domain.ExternalUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ExternalUnavailable, got %v", err)
	}
}

func TestIrradianceForDateMissingDatum(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	other := day.AddDate(0, 0, 1)
	provider := &MockProvider{points: []domain.IrradiancePoint{{Date: other, Irradiance: 300}}}
	repo := &MockSatelliteRepository{}
	svc := newTestService(repo, provider, NewMockCache())

	_, err := svc.IrradianceForDate(context.Background(), -23.55, -46.63, day)
	var unavail *domain.ExternalUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ExternalUnavailable for missing datum, got %v", err)
	}
	// The off-date point is still persisted for later lookups.
	if len(repo.readings) != 1 {
		t.Errorf("expected off-date point persisted, got %d rows", len(repo.readings))
	}
}
