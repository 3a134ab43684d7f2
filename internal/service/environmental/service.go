package environmental

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/observability/telemetry"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

// Service resolves satellite irradiance and models panel output. Lookups go
// cache -> stored readings -> provider; a provider fetch backfills both.
type Service struct {
	satellites ports.SatelliteRepository
	provider   ports.EnvironmentalProvider
	cache      ports.Cache
	cacheTTL   time.Duration
	cfg        config.VerificationConfig
	log        *zap.Logger
}

func NewService(satellites ports.SatelliteRepository, provider ports.EnvironmentalProvider, cache ports.Cache, cacheTTL time.Duration, cfg config.VerificationConfig, log *zap.Logger) ports.EnvironmentalService {
	return &Service{
		satellites: satellites,
		provider:   provider,
		cache:      cache,
		cacheTTL:   cacheTTL,
		cfg:        cfg,
		log:        log,
	}
}

func (s *Service) IrradianceForDate(ctx context.Context, lat, lon float64, date time.Time) (float64, error) {
	key := cacheKey(lat, lon, date)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return v, nil
			}
		}
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	stored, err := s.satellites.FindByLocationAndRange(ctx, lat, lon, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("find satellite readings: %w", err)
	}
	if len(stored) > 0 {
		v := stored[0].Irradiance
		s.cacheValue(ctx, key, v)
		return v, nil
	}

	points, err := s.provider.FetchDailyIrradiance(ctx, lat, lon, dayStart, dayStart)
	if err != nil {
		telemetry.ProviderFetchFailuresTotal.Inc()
		return 0, err
	}

	var value float64
	found := false
	rows := make([]domain.SatelliteReading, 0, len(points))
	for _, p := range points {
		rows = append(rows, domain.SatelliteReading{
			Lat:        lat,
			Lon:        lon,
			Timestamp:  p.Date,
			Irradiance: p.Irradiance,
			CreatedAt:  time.Now().UTC(),
		})
		if p.Date.Equal(dayStart) {
			value = p.Irradiance
			found = true
		}
	}
	if len(rows) > 0 {
		if err := s.satellites.SaveAll(ctx, rows); err != nil {
			// Persistence is a cache; a failed backfill does not block the lookup.
			s.log.Warn("Failed to store satellite readings", zap.Error(err))
		}
	}
	if !found {
		return 0, &domain.ExternalUnavailable{
			Provider: "nasa-power",
			Err:      fmt.Errorf("no irradiance datum for %s", dayStart.Format("2006-01-02")),
		}
	}

	s.cacheValue(ctx, key, value)
	return value, nil
}

// TheoreticalOutput is the modeled hourly ceiling in kWh for a panel array:
// irradiance fraction of standard conditions times panel area times efficiency.
func (s *Service) TheoreticalOutput(irradianceWm2, capacityKW float64) float64 {
	panelArea := capacityKW * s.cfg.AreaPerKW
	return (irradianceWm2 / 1000.0) * panelArea * s.cfg.PanelEfficiency
}

// ReferenceProfile distributes the theoretical hourly output across a day.
// The satellite datum is a daily average, so the profile is flat; a shaped
// provider can substitute an hourly curve without touching verification.
func (s *Service) ReferenceProfile(theoreticalKWh float64) []float64 {
	profile := make([]float64, 24)
	for i := range profile {
		profile[i] = theoreticalKWh
	}
	return profile
}

func (s *Service) cacheValue(ctx context.Context, key string, v float64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), s.cacheTTL); err != nil {
		s.log.Debug("Failed to cache irradiance", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(lat, lon float64, date time.Time) string {
	return fmt.Sprintf("satellite:%.4f:%.4f:%s", lat, lon, date.Format("2006-01-02"))
}
