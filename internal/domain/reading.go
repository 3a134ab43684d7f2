package domain

import (
	"encoding/json"
	"time"
)

// Reading is a single energy production sample reported by an inverter.
// Readings are append-only: never updated or deleted once stored.
type Reading struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	InverterID uint      `json:"inverter_id" gorm:"index"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
	KWh        float64   `json:"kwh"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Reading) TableName() string {
	return "inverter_readings"
}

// RawReading is the validated row shape produced by the ingest surface before
// parsing. Timestamp is ISO-8601; KWh stays a json.Number so a non-numeric
// value surfaces as a ValidationError instead of a decode failure.
type RawReading struct {
	InverterID uint        `json:"inverter_id"`
	Timestamp  string      `json:"timestamp"`
	KWh        json.Number `json:"kwh"`
}
