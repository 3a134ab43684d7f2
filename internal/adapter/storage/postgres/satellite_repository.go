package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type SatelliteRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSatelliteRepository(db *gorm.DB, log *zap.Logger) ports.SatelliteRepository {
	return &SatelliteRepository{
		db:  db,
		log: log,
	}
}

func (r *SatelliteRepository) SaveAll(ctx context.Context, readings []domain.SatelliteReading) error {
	if len(readings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&readings).Error
}

func (r *SatelliteRepository) FindByLocationAndRange(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.SatelliteReading, error) {
	var readings []domain.SatelliteReading
	err := r.db.WithContext(ctx).
		Where("lat = ? AND lon = ? AND timestamp >= ? AND timestamp < ?", lat, lon, start, end).
		Order("timestamp").
		Find(&readings).Error
	return readings, err
}
