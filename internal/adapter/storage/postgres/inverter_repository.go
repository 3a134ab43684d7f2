package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type InverterRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewInverterRepository(db *gorm.DB, log *zap.Logger) ports.InverterRepository {
	return &InverterRepository{
		db:  db,
		log: log,
	}
}

func (r *InverterRepository) Save(ctx context.Context, inv *domain.Inverter) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *InverterRepository) FindByID(ctx context.Context, id uint) (*domain.Inverter, error) {
	var inv domain.Inverter
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InverterRepository) FindAll(ctx context.Context) ([]domain.Inverter, error) {
	var invs []domain.Inverter
	err := r.db.WithContext(ctx).Order("id").Find(&invs).Error
	return invs, err
}

func (r *InverterRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Inverter{}).Count(&count).Error
	return count, err
}
