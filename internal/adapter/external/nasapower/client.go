package nasapower

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

// httpDoer lets tests and the circuit breaker wrapper stand in for the
// transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches daily all-sky surface shortwave irradiance from the NASA
// POWER temporal API. Every failure mode maps to domain.ExternalUnavailable:
// the verification engine degrades to PENDING instead of faulting.
type Client struct {
	http httpDoer
	cfg  config.NASAPowerConfig
	log  *zap.Logger
}

func NewClient(httpClient httpDoer, cfg config.NASAPowerConfig, log *zap.Logger) ports.EnvironmentalProvider {
	return &Client{
		http: httpClient,
		cfg:  cfg,
		log:  log,
	}
}

// powerResponse mirrors the slice of the POWER JSON we consume:
// properties.parameter.<name> maps YYYYMMDD date strings to daily values in
// kWh/m²/day.
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]*float64 `json:"parameter"`
	} `json:"properties"`
}

func (c *Client) FetchDailyIrradiance(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.IrradiancePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("parameters", c.cfg.Parameter)
	q.Set("community", c.cfg.Community)
	q.Set("latitude", fmt.Sprintf("%f", lat))
	q.Set("longitude", fmt.Sprintf("%f", lon))
	q.Set("start", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("format", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &domain.ExternalUnavailable{Provider: "nasa-power", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("NASA POWER fetch failed", zap.Error(err))
		return nil, &domain.ExternalUnavailable{Provider: "nasa-power", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ExternalUnavailable{
			Provider: "nasa-power",
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var body powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.ExternalUnavailable{Provider: "nasa-power", Err: fmt.Errorf("decode response: %w", err)}
	}

	values, ok := body.Properties.Parameter[c.cfg.Parameter]
	if !ok {
		return nil, &domain.ExternalUnavailable{
			Provider: "nasa-power",
			Err:      fmt.Errorf("parameter %s missing from response", c.cfg.Parameter),
		}
	}

	return parsePoints(values), nil
}

// parsePoints converts the provider's kWh/m²/day values into average W/m².
// Keys that are not 8-digit dates are skipped, not fatal.
func parsePoints(values map[string]*float64) []domain.IrradiancePoint {
	points := make([]domain.IrradiancePoint, 0, len(values))
	for dateStr, value := range values {
		if len(dateStr) != 8 {
			continue
		}
		day, err := time.Parse("20060102", dateStr)
		if err != nil {
			continue
		}
		daily := 0.0
		if value != nil {
			daily = *value
		}
		// 1 kWh/m²/day = 1000 Wh/m²; divide by 24h for the average W/m².
		points = append(points, domain.IrradiancePoint{
			Date:       day,
			Irradiance: daily * 1000 / 24,
		})
	}
	return points
}
