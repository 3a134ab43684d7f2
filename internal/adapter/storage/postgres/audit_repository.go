package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

// AuditRepository is append-only. There is deliberately no update or delete.
type AuditRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAuditRepository(db *gorm.DB, log *zap.Logger) ports.AuditRepository {
	return &AuditRepository{
		db:  db,
		log: log,
	}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at").
		Find(&entries).Error
	return entries, err
}
