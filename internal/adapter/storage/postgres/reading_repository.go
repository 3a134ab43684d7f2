package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type ReadingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReadingRepository(db *gorm.DB, log *zap.Logger) ports.ReadingRepository {
	return &ReadingRepository{
		db:  db,
		log: log,
	}
}

// SaveBatch commits one ingestion batch atomically: readings first, then
// their audit shadows. A failure rolls back the whole batch and nothing else.
func (r *ReadingRepository) SaveBatch(ctx context.Context, readings []domain.Reading, audits []domain.AuditLog) error {
	if len(readings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&readings).Error; err != nil {
			return err
		}
		if len(audits) > 0 {
			if err := tx.Create(&audits).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Range queries are half-open: [start, end). A reading stamped exactly at
// next-day midnight belongs to the next day, so the same window yields the
// same rows for the calculator's sum and the verifier's hourly profile.
func (r *ReadingRepository) FindByInverterAndRange(ctx context.Context, inverterID uint, start, end time.Time) ([]domain.Reading, error) {
	var readings []domain.Reading
	err := r.db.WithContext(ctx).
		Where("inverter_id = ? AND timestamp >= ? AND timestamp < ?", inverterID, start, end).
		Order("timestamp").
		Find(&readings).Error
	return readings, err
}

func (r *ReadingRepository) SumKWhForDay(ctx context.Context, inverterID uint, day time.Time) (float64, error) {
	start, end := dayWindow(day)
	var total float64
	err := r.db.WithContext(ctx).
		Model(&domain.Reading{}).
		Select("COALESCE(SUM(kwh), 0)").
		Where("inverter_id = ? AND timestamp >= ? AND timestamp < ?", inverterID, start, end).
		Scan(&total).Error
	return total, err
}

// dayWindow is the half-open calendar-day window [00:00, next-day 00:00).
func dayWindow(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}
