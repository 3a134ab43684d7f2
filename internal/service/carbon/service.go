package carbon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/adapter/queue"
	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/infrastructure/keylock"
	"github.com/lumix-energy/dmrv-engine/internal/observability/telemetry"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

// Service converts daily energy production into avoided-emissions credits.
type Service struct {
	inverters ports.InverterRepository
	readings  ports.ReadingRepository
	credits   ports.CreditRepository
	locks     *keylock.KeyLock
	mq        queue.MessageQueue
	cfg       config.VerificationConfig
	log       *zap.Logger
}

func NewService(inverters ports.InverterRepository, readings ports.ReadingRepository, credits ports.CreditRepository, locks *keylock.KeyLock, mq queue.MessageQueue, cfg config.VerificationConfig, log *zap.Logger) ports.CarbonService {
	return &Service{
		inverters: inverters,
		readings:  readings,
		credits:   credits,
		locks:     locks,
		mq:        mq,
		cfg:       cfg,
		log:       log,
	}
}

// CO2Avoided converts kWh to metric tonnes of avoided CO2:
// kWh * factor (kg/kWh) / 1000 (kg per tonne). One tonne = one credit unit.
func (s *Service) CO2Avoided(kwh float64) float64 {
	return kwh * s.cfg.EmissionFactor / 1000.0
}

// CalculateDailyCredit sums all readings for the inverter's calendar day and
// upserts the (inverter, date) credit. Idempotent: re-running with the same
// readings yields the same tonnage. Never touches a non-PENDING status; only
// the verification engine transitions status.
func (s *Service) CalculateDailyCredit(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error) {
	inv, err := s.inverters.FindByID(ctx, inverterID)
	if err != nil {
		return nil, fmt.Errorf("look up inverter %d: %w", inverterID, err)
	}
	if inv == nil {
		return nil, &domain.ReferenceError{EntityType: domain.EntityTypeInverter, EntityID: inverterID}
	}

	key := CreditKey(inverterID, date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	totalKWh, err := s.readings.SumKWhForDay(ctx, inverterID, date)
	if err != nil {
		return nil, fmt.Errorf("sum readings: %w", err)
	}
	tonnes := s.CO2Avoided(totalKWh)

	now := time.Now().UTC()
	credit, err := s.credits.FindByInverterAndDate(ctx, inverterID, date)
	if err != nil {
		return nil, fmt.Errorf("find credit: %w", err)
	}

	if credit == nil {
		credit = &domain.CarbonCredit{
			InverterID: inverterID,
			CreditDate: truncateToDate(date),
			Tonnes:     tonnes,
			Status:     domain.CreditStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	} else {
		// Tonnage may be recalculated; status is out of bounds here.
		credit.Tonnes = tonnes
		credit.UpdatedAt = now
	}

	if err := s.credits.Save(ctx, credit); err != nil {
		return nil, fmt.Errorf("save credit: %w", err)
	}

	telemetry.CreditsCalculatedTotal.Inc()
	telemetry.TonnesCalculatedTotal.Add(tonnes)

	if s.mq != nil {
		event := queue.CreditEvent{
			InverterID: inverterID,
			CreditDate: credit.CreditDate.Format("2006-01-02"),
			Status:     credit.Status,
			Tonnes:     tonnes,
			OccurredAt: now,
		}
		if err := queue.PublishCreditEvent(s.mq, queue.SubjectCreditCalculated, event); err != nil {
			s.log.Warn("Failed to publish credit event", zap.Error(err))
		}
	}

	s.log.Info("Daily credit calculated",
		zap.Uint("inverter_id", inverterID),
		zap.String("date", credit.CreditDate.Format("2006-01-02")),
		zap.Float64("kwh", totalKWh),
		zap.Float64("tonnes", tonnes),
	)
	return credit, nil
}

// CreditKey identifies the contended (inverter, date) credit row for locking.
func CreditKey(inverterID uint, date time.Time) string {
	return fmt.Sprintf("credit:%d:%s", inverterID, date.Format("2006-01-02"))
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
