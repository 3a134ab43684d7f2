package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Simulator drives the engine's public API with a synthetic solar fleet.
// Honest inverters follow a bell-shaped daytime curve; fraudulent ones
// over-report far past any physical ceiling so verification flags them.
type Simulator struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

type simInverter struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	CapacityKW float64 `json:"capacity_kw"`
	Fraudulent bool    `json:"-"`
}

func NewSimulator(baseURL string, log *zap.Logger) *Simulator {
	return &Simulator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

func (s *Simulator) RegisterFleet(size, fraudulent int) ([]simInverter, error) {
	fleet := make([]simInverter, 0, size)
	for i := 0; i < size; i++ {
		capacity := 5.0 + rand.Float64()*15.0
		body := map[string]any{
			"name":        fmt.Sprintf("sim-inverter-%03d", i+1),
			"gps_lat":     -23.55 + rand.Float64()*0.5,
			"gps_lon":     -46.63 + rand.Float64()*0.5,
			"capacity_kw": capacity,
		}

		var inv simInverter
		if err := s.post("/api/v1/inverters", body, &inv); err != nil {
			return nil, fmt.Errorf("register inverter %d: %w", i+1, err)
		}
		inv.Fraudulent = i < fraudulent
		fleet = append(fleet, inv)

		s.log.Info("Registered inverter",
			zap.Uint("id", inv.ID),
			zap.String("name", inv.Name),
			zap.Bool("fraudulent", inv.Fraudulent),
		)
	}
	return fleet, nil
}

func (s *Simulator) StreamReadings(fleet []simInverter, start, end time.Time) error {
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		var rows []map[string]any
		for _, inv := range fleet {
			for h := 0; h < 24; h++ {
				kwh := hourlyOutput(inv.CapacityKW, h)
				if inv.Fraudulent {
					kwh = inv.CapacityKW * 50
				}
				if kwh <= 0 {
					continue
				}
				rows = append(rows, map[string]any{
					"inverter_id": inv.ID,
					"timestamp":   day.Add(time.Duration(h) * time.Hour).Format(time.RFC3339),
					"kwh":         round2(kwh),
				})
			}
		}

		var resp struct {
			Persisted int `json:"persisted"`
		}
		if err := s.post("/api/v1/readings", rows, &resp); err != nil {
			return fmt.Errorf("ingest readings for %s: %w", day.Format("2006-01-02"), err)
		}
		s.log.Info("Ingested readings",
			zap.String("date", day.Format("2006-01-02")),
			zap.Int("persisted", resp.Persisted),
		)
	}
	return nil
}

// VerifyFleet runs calculate then verify per (inverter, day). Failures are
// logged and skipped so one bad credit does not stop the sweep.
func (s *Simulator) VerifyFleet(fleet []simInverter, start, end time.Time) {
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		for _, inv := range fleet {
			var credit struct {
				Status string  `json:"status"`
				Tonnes float64 `json:"tonnes"`
			}
			path := fmt.Sprintf("/api/v1/inverters/%d/credits/%s/calculate", inv.ID, date)
			if err := s.post(path, nil, &credit); err != nil {
				s.log.Warn("Calculation failed", zap.Uint("inverter_id", inv.ID), zap.String("date", date), zap.Error(err))
				continue
			}
			path = fmt.Sprintf("/api/v1/inverters/%d/credits/%s/verify", inv.ID, date)
			if err := s.post(path, nil, &credit); err != nil {
				s.log.Warn("Verification failed", zap.Uint("inverter_id", inv.ID), zap.String("date", date), zap.Error(err))
				continue
			}
			s.log.Info("Credit verified",
				zap.Uint("inverter_id", inv.ID),
				zap.String("date", date),
				zap.String("status", credit.Status),
				zap.Float64("tonnes", credit.Tonnes),
			)
		}
	}
}

func (s *Simulator) post(path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: %s (%s)", path, resp.Status, apiErr.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// hourlyOutput is a bell curve peaking at solar noon, zero outside daylight.
func hourlyOutput(capacityKW float64, hour int) float64 {
	if hour < 6 || hour > 18 {
		return 0
	}
	x := float64(hour) - 12.0
	shape := math.Exp(-x * x / 8.0)
	noise := 0.9 + rand.Float64()*0.2
	return capacityKW * 0.6 * shape * noise
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
