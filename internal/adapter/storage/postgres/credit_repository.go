package postgres

import (
	"context"
	"errors"

	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type CreditRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCreditRepository(db *gorm.DB, log *zap.Logger) ports.CreditRepository {
	return &CreditRepository{
		db:  db,
		log: log,
	}
}

func (r *CreditRepository) Save(ctx context.Context, credit *domain.CarbonCredit) error {
	return r.db.WithContext(ctx).Save(credit).Error
}

func (r *CreditRepository) FindByInverterAndDate(ctx context.Context, inverterID uint, date time.Time) (*domain.CarbonCredit, error) {
	var credit domain.CarbonCredit
	err := r.db.WithContext(ctx).
		Where("inverter_id = ? AND credit_date = ?", inverterID, date.Format("2006-01-02")).
		First(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credit, nil
}

func (r *CreditRepository) FindByInverter(ctx context.Context, inverterID uint) ([]domain.CarbonCredit, error) {
	var credits []domain.CarbonCredit
	err := r.db.WithContext(ctx).
		Where("inverter_id = ?", inverterID).
		Order("credit_date desc").
		Find(&credits).Error
	return credits, err
}

func (r *CreditRepository) Summary(ctx context.Context) (*domain.FleetSummary, error) {
	var summary domain.FleetSummary
	db := r.db.WithContext(ctx).Model(&domain.CarbonCredit{})

	if err := db.Count(&summary.TotalCredits).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.Inverter{}).Count(&summary.TotalInverters).Error; err != nil {
		return nil, err
	}

	type statusAgg struct {
		Status domain.CreditStatus
		Count  int64
		Tonnes float64
	}
	var rows []statusAgg
	err := r.db.WithContext(ctx).
		Model(&domain.CarbonCredit{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(tonnes), 0) AS tonnes").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		summary.TotalTonnes += row.Tonnes
		switch row.Status {
		case domain.CreditStatusVerified:
			summary.VerifiedCredits = row.Count
			summary.VerifiedTonnes = row.Tonnes
		case domain.CreditStatusFlagged:
			summary.FlaggedCredits = row.Count
		case domain.CreditStatusPending:
			summary.PendingCredits = row.Count
		}
	}

	return &summary, nil
}
