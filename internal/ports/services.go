package ports

import (
	"context"
	"time"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
)

// IngestionService validates and stores raw inverter readings in bounded
// batches.
type IngestionService interface {
	RegisterInverter(ctx context.Context, inv *domain.Inverter) error
	Ingest(ctx context.Context, rows []domain.RawReading) (int, error)
	IngestStream(ctx context.Context, rows <-chan domain.RawReading) (int, error)
}

// CarbonService converts daily energy production into avoided-emissions
// credits.
type CarbonService interface {
	CO2Avoided(kwh float64) float64
	CalculateDailyCredit(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error)
}

// EnvironmentalService cross-validates against satellite irradiance data.
type EnvironmentalService interface {
	// IrradianceForDate resolves the average irradiance (W/m²) for a location
	// and date, fetching from the provider only when no stored or cached
	// reading exists.
	IrradianceForDate(ctx context.Context, lat, lon float64, date time.Time) (float64, error)
	// TheoreticalOutput is the modeled hourly production ceiling in kWh.
	TheoreticalOutput(irradianceWm2, capacityKW float64) float64
	// ReferenceProfile is the 24-slot hourly production profile verification
	// compares against.
	ReferenceProfile(theoreticalKWh float64) []float64
}

// VerificationService runs the credit state machine.
type VerificationService interface {
	VerifyCredit(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error)
	OverrideStatus(ctx context.Context, inverterID uint, date time.Time, status domain.CreditStatus) (*domain.CarbonCredit, error)
}

// AuditRecorder appends tamper-evident entries for mutating actions. It is a
// side channel: a failed append surfaces as an error but never unwinds the
// primary write.
type AuditRecorder interface {
	Record(ctx context.Context, action, entityType string, entityID *uint, payload any) error
	ListByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error)
}

// EnvironmentalProvider is the upstream satellite data source.
type EnvironmentalProvider interface {
	FetchDailyIrradiance(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.IrradiancePoint, error)
}

// Cache is a TTL'd key/value store used beside the repositories.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
