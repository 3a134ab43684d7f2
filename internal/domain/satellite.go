package domain

import (
	"time"
)

// SatelliteReading stores an irradiance estimate derived from satellite data
// for a location and date. Treated as a cache: a location/date already stored
// is not re-fetched, but duplicate rows are tolerated.
type SatelliteReading struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Lat        float64   `json:"lat" gorm:"index:idx_satellite_location"`
	Lon        float64   `json:"lon" gorm:"index:idx_satellite_location"`
	Timestamp  time.Time `json:"timestamp"`
	Irradiance float64   `json:"irradiance"` // average W/m² over the day
	CreatedAt  time.Time `json:"created_at"`
}

func (SatelliteReading) TableName() string {
	return "satellite_readings"
}

// IrradiancePoint is a parsed provider datum before persistence.
type IrradiancePoint struct {
	Date       time.Time
	Irradiance float64 // W/m²
}
