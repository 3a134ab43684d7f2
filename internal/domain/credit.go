package domain

import (
	"time"
)

type CreditStatus string

const (
	CreditStatusPending   CreditStatus = "PENDING"
	CreditStatusVerified  CreditStatus = "VERIFIED"
	CreditStatusFlagged   CreditStatus = "FLAGGED"
	CreditStatusSubmitted CreditStatus = "SUBMITTED"
)

// CarbonCredit tracks CO2 avoided by one inverter on one calendar date.
// One credit per (inverter, date); 1 tonne = 1 credit unit.
//
// Lifecycle: created PENDING by the calculator; status changes only through
// the verification engine (or the administrative override endpoint).
// SUBMITTED is terminal for automatic transitions.
type CarbonCredit struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	InverterID    uint         `json:"inverter_id" gorm:"uniqueIndex:idx_credit_inverter_date"`
	CreditDate    time.Time    `json:"credit_date" gorm:"type:date;uniqueIndex:idx_credit_inverter_date"`
	Tonnes        float64      `json:"tonnes"`
	Status        CreditStatus `json:"status"`
	Correlation   *float64     `json:"correlation,omitempty"`
	FlaggedReason *string      `json:"flagged_reason,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (CarbonCredit) TableName() string {
	return "carbon_credits"
}
