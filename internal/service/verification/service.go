package verification

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/adapter/queue"
	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/infrastructure/keylock"
	"github.com/lumix-energy/dmrv-engine/internal/observability/telemetry"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

// Service runs the credit state machine: PENDING -> VERIFIED | FLAGGED, with
// PENDING as the fail-safe on any data-availability problem. SUBMITTED is
// terminal for automatic transitions.
type Service struct {
	inverters ports.InverterRepository
	readings  ports.ReadingRepository
	credits   ports.CreditRepository
	env       ports.EnvironmentalService
	recorder  ports.AuditRecorder
	locks     *keylock.KeyLock
	mq        queue.MessageQueue
	cfg       config.VerificationConfig
	log       *zap.Logger
}

func NewService(inverters ports.InverterRepository, readings ports.ReadingRepository, credits ports.CreditRepository, env ports.EnvironmentalService, recorder ports.AuditRecorder, locks *keylock.KeyLock, mq queue.MessageQueue, cfg config.VerificationConfig, log *zap.Logger) ports.VerificationService {
	return &Service{
		inverters: inverters,
		readings:  readings,
		credits:   credits,
		env:       env,
		recorder:  recorder,
		locks:     locks,
		mq:        mq,
		cfg:       cfg,
		log:       log,
	}
}

// decision carries everything the state machine derived for one run. It is
// the audited payload, so its fields are stable.
type decision struct {
	InverterID  uint    `json:"inverter_id"`
	CreditDate  string  `json:"credit_date"`
	TotalKWh    float64 `json:"total_kwh"`
	Irradiance  float64 `json:"irradiance_wm2,omitempty"`
	CeilingKWh  float64 `json:"ceiling_kwh,omitempty"`
	Correlation float64 `json:"correlation"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason,omitempty"`
}

func (s *Service) VerifyCredit(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error) {
	start := time.Now()
	defer func() {
		telemetry.VerificationLatency.Observe(time.Since(start).Seconds())
	}()

	inv, err := s.inverters.FindByID(ctx, inverterID)
	if err != nil {
		return nil, fmt.Errorf("look up inverter %d: %w", inverterID, err)
	}
	if inv == nil {
		return nil, &domain.ReferenceError{EntityType: domain.EntityTypeInverter, EntityID: inverterID}
	}

	key := creditKey(inverterID, date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	credit, err := s.credits.FindByInverterAndDate(ctx, inverterID, date)
	if err != nil {
		return nil, fmt.Errorf("find credit: %w", err)
	}
	if credit == nil {
		return nil, domain.ErrCreditNotFound
	}
	if credit.Status == domain.CreditStatusSubmitted {
		// Submitted credits belong to the registry; re-verification is manual.
		return credit, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	rows, err := s.readings.FindByInverterAndRange(ctx, inverterID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	if len(rows) == 0 {
		return s.conclude(ctx, credit, decision{
			InverterID: inverterID,
			CreditDate: dayStart.Format("2006-01-02"),
			Status:     string(domain.CreditStatusPending),
			Reason:     "No inverter readings available for verification",
		})
	}

	var totalKWh float64
	for _, r := range rows {
		totalKWh += r.KWh
	}

	irradiance, err := s.env.IrradianceForDate(ctx, inv.GPSLat, inv.GPSLon, dayStart)
	if err != nil {
		var unavail *domain.ExternalUnavailable
		if errors.As(err, &unavail) {
			return s.conclude(ctx, credit, decision{
				InverterID: inverterID,
				CreditDate: dayStart.Format("2006-01-02"),
				TotalKWh:   totalKWh,
				Status:     string(domain.CreditStatusPending),
				Reason:     fmt.Sprintf("Failed to fetch NASA POWER data: %v", unavail.Err),
			})
		}
		return nil, fmt.Errorf("resolve irradiance: %w", err)
	}
	if irradiance <= 0 {
		return s.conclude(ctx, credit, decision{
			InverterID: inverterID,
			CreditDate: dayStart.Format("2006-01-02"),
			TotalKWh:   totalKWh,
			Status:     string(domain.CreditStatusPending),
			Reason:     "No satellite data available for verification",
		})
	}

	theoretical := s.env.TheoreticalOutput(irradiance, inv.CapacityKW)
	ceiling := theoretical * 24 * s.cfg.SafetyMargin
	if totalKWh > ceiling {
		return s.conclude(ctx, credit, decision{
			InverterID:  inverterID,
			CreditDate:  dayStart.Format("2006-01-02"),
			TotalKWh:    totalKWh,
			Irradiance:  irradiance,
			CeilingKWh:  ceiling,
			Correlation: 0,
			Status:      string(domain.CreditStatusFlagged),
			Reason:      fmt.Sprintf("Inverter output (%.2f kWh) exceeds theoretical maximum (%.2f kWh)", totalKWh, ceiling),
		})
	}

	produced := hourlyProfile(rows)
	reference := s.env.ReferenceProfile(theoretical)
	corr := correlation(produced, reference)

	d := decision{
		InverterID:  inverterID,
		CreditDate:  dayStart.Format("2006-01-02"),
		TotalKWh:    totalKWh,
		Irradiance:  irradiance,
		CeilingKWh:  ceiling,
		Correlation: corr,
	}
	if corr >= s.cfg.CorrelationThreshold {
		d.Status = string(domain.CreditStatusVerified)
	} else {
		d.Status = string(domain.CreditStatusPending)
		d.Reason = fmt.Sprintf("Correlation (%.2f) below threshold (%.2f)", corr, s.cfg.CorrelationThreshold)
	}
	return s.conclude(ctx, credit, d)
}

// OverrideStatus forces a credit's status outside the state machine. It is an
// administrative escape hatch and every use is audited.
func (s *Service) OverrideStatus(ctx context.Context, inverterID uint, date time.Time, status domain.CreditStatus) (*domain.CarbonCredit, error) {
	switch status {
	case domain.CreditStatusPending, domain.CreditStatusVerified, domain.CreditStatusFlagged, domain.CreditStatusSubmitted:
	default:
		return nil, &domain.ValidationError{Field: "status", Value: string(status), Reason: "unknown credit status"}
	}

	key := creditKey(inverterID, date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	credit, err := s.credits.FindByInverterAndDate(ctx, inverterID, date)
	if err != nil {
		return nil, fmt.Errorf("find credit: %w", err)
	}
	if credit == nil {
		return nil, domain.ErrCreditNotFound
	}

	previous := credit.Status
	credit.Status = status
	credit.UpdatedAt = time.Now().UTC()
	if err := s.credits.Save(ctx, credit); err != nil {
		return nil, fmt.Errorf("save credit: %w", err)
	}

	payload := map[string]any{
		"inverter_id": inverterID,
		"credit_date": credit.CreditDate.Format("2006-01-02"),
		"from":        string(previous),
		"to":          string(status),
	}
	if err := s.recorder.Record(ctx, domain.AuditActionStatusOverridden, domain.EntityTypeCarbonCredit, &credit.ID, payload); err != nil {
		s.log.Error("Failed to record status override audit entry", zap.Error(err))
	}

	s.log.Warn("Credit status overridden",
		zap.Uint("inverter_id", inverterID),
		zap.String("date", credit.CreditDate.Format("2006-01-02")),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)
	return credit, nil
}

// conclude persists the outcome, writes the audit entry, emits the event and
// bumps the outcome counter. The primary write commits before the audit
// shadow; an audit failure is surfaced in logs but never unwinds the credit.
func (s *Service) conclude(ctx context.Context, credit *domain.CarbonCredit, d decision) (*domain.CarbonCredit, error) {
	status := domain.CreditStatus(d.Status)
	credit.Status = status
	credit.Correlation = &d.Correlation
	if d.Reason != "" {
		reason := d.Reason
		credit.FlaggedReason = &reason
	} else {
		credit.FlaggedReason = nil
	}
	credit.UpdatedAt = time.Now().UTC()

	if err := s.credits.Save(ctx, credit); err != nil {
		return nil, fmt.Errorf("save credit: %w", err)
	}

	var action, subject, outcome string
	switch status {
	case domain.CreditStatusVerified:
		action, subject, outcome = domain.AuditActionCreditVerified, queue.SubjectCreditVerified, "verified"
	case domain.CreditStatusFlagged:
		action, subject, outcome = domain.AuditActionCreditFlagged, queue.SubjectCreditFlagged, "flagged"
	default:
		action, subject, outcome = domain.AuditActionCreditPending, queue.SubjectCreditPending, "pending"
	}
	telemetry.VerificationsTotal.WithLabelValues(outcome).Inc()

	if err := s.recorder.Record(ctx, action, domain.EntityTypeCarbonCredit, &credit.ID, d); err != nil {
		s.log.Error("Failed to record verification audit entry", zap.Error(err))
	}

	if s.mq != nil {
		event := queue.CreditEvent{
			InverterID:  credit.InverterID,
			CreditDate:  d.CreditDate,
			Status:      status,
			Tonnes:      credit.Tonnes,
			Correlation: credit.Correlation,
			Reason:      credit.FlaggedReason,
			OccurredAt:  credit.UpdatedAt,
		}
		if err := queue.PublishCreditEvent(s.mq, subject, event); err != nil {
			s.log.Warn("Failed to publish credit event", zap.Error(err))
		}
	}

	s.log.Info("Credit verification concluded",
		zap.Uint("inverter_id", credit.InverterID),
		zap.String("date", d.CreditDate),
		zap.String("status", d.Status),
		zap.Float64("correlation", d.Correlation),
	)
	return credit, nil
}

// hourlyProfile averages kWh per hour-of-day bucket. Empty buckets stay 0.
func hourlyProfile(rows []domain.Reading) []float64 {
	sums := make([]float64, 24)
	counts := make([]int, 24)
	for _, r := range rows {
		h := r.Timestamp.UTC().Hour()
		sums[h] += r.KWh
		counts[h]++
	}
	profile := make([]float64, 24)
	for i := range profile {
		if counts[i] > 0 {
			profile[i] = sums[i] / float64(counts[i])
		}
	}
	return profile
}

// correlation is the absolute Pearson coefficient, 0 for empty series,
// mismatched lengths or zero variance on either side.
func correlation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	n := float64(len(x))
	var meanX, meanY float64
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return math.Abs(cov / math.Sqrt(varX*varY))
}

func creditKey(inverterID uint, date time.Time) string {
	return fmt.Sprintf("credit:%d:%s", inverterID, date.Format("2006-01-02"))
}
