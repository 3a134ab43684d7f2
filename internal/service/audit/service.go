package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

// Service is the audit recorder: an append-only, hash-addressed log of every
// mutating action. It is used by the other services as a side channel; a
// failed append is surfaced but never unwinds the primary write, which has
// already committed by the time Record runs.
type Service struct {
	repo ports.AuditRepository
	log  *zap.Logger
}

func NewService(repo ports.AuditRepository, log *zap.Logger) ports.AuditRecorder {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) Record(ctx context.Context, action, entityType string, entityID *uint, payload any) error {
	hash, err := Fingerprint(payload)
	if err != nil {
		return fmt.Errorf("audit: fingerprint payload: %w", err)
	}

	entry := &domain.AuditLog{
		PayloadHash: hash,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.log.Error("Failed to append audit entry",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
		return fmt.Errorf("audit: append entry: %w", err)
	}
	return nil
}

func (s *Service) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error) {
	return s.repo.FindByEntity(ctx, entityType, entityID)
}

// Fingerprint produces the deterministic content hash of a payload: SHA-256
// over its RFC 8785 canonical JSON form, so the same payload hashes the same
// regardless of key order.
func Fingerprint(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
