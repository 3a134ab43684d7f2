package domain

import (
	"time"
)

// Inverter represents a registered solar inverter installation. Immutable
// after creation except by explicit administrative action.
type Inverter struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name"`
	GPSLat     float64   `json:"gps_lat"`
	GPSLon     float64   `json:"gps_lon"`
	CapacityKW float64   `json:"capacity_kw"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Inverter) TableName() string {
	return "inverters"
}
