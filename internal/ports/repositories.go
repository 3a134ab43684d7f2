package ports

import (
	"context"
	"time"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
)

type InverterRepository interface {
	Save(ctx context.Context, inv *domain.Inverter) error
	FindByID(ctx context.Context, id uint) (*domain.Inverter, error)
	FindAll(ctx context.Context) ([]domain.Inverter, error)
	Count(ctx context.Context) (int64, error)
}

type ReadingRepository interface {
	// SaveBatch stores one ingestion batch atomically: readings first, then
	// their audit shadows, in a single transaction.
	SaveBatch(ctx context.Context, readings []domain.Reading, audits []domain.AuditLog) error
	FindByInverterAndRange(ctx context.Context, inverterID uint, start, end time.Time) ([]domain.Reading, error)
	SumKWhForDay(ctx context.Context, inverterID uint, day time.Time) (float64, error)
}

type SatelliteRepository interface {
	SaveAll(ctx context.Context, readings []domain.SatelliteReading) error
	FindByLocationAndRange(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.SatelliteReading, error)
}

type CreditRepository interface {
	Save(ctx context.Context, credit *domain.CarbonCredit) error
	FindByInverterAndDate(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error)
	FindByInverter(ctx context.Context, inverterID uint) ([]domain.CarbonCredit, error)
	Summary(ctx context.Context) (*domain.FleetSummary, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
	FindByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error)
}
