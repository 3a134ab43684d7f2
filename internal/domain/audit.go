package domain

import (
	"time"
)

// Audit action tags.
const (
	AuditActionInverterCreated  = "inverter_created"
	AuditActionReadingIngested  = "reading_ingested"
	AuditActionCreditVerified   = "credit_verified"
	AuditActionCreditFlagged    = "credit_flagged"
	AuditActionCreditPending    = "credit_pending"
	AuditActionStatusOverridden = "credit_status_overridden"
)

// Audited entity types.
const (
	EntityTypeInverter     = "inverter"
	EntityTypeReading      = "inverter_reading"
	EntityTypeCarbonCredit = "carbon_credit"
)

// AuditLog is an append-only, tamper-evident record of a mutating action.
// PayloadHash is a deterministic fingerprint of the acted-upon data. EntityID
// may be nil when identity is assigned after the owning batch commits.
type AuditLog struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PayloadHash string    `json:"payload_hash"`
	Action      string    `json:"action" gorm:"index"`
	EntityType  string    `json:"entity_type" gorm:"index:idx_audit_entity"`
	EntityID    *uint     `json:"entity_id,omitempty" gorm:"index:idx_audit_entity"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
