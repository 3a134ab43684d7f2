package queue

import (
	"encoding/json"
	"time"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// Credit lifecycle subjects.
const (
	SubjectCreditCalculated = "credits.calculated"
	SubjectCreditVerified   = "credits.verified"
	SubjectCreditFlagged    = "credits.flagged"
	SubjectCreditPending    = "credits.pending"
)

// CreditEvent is the payload published on every credit lifecycle transition.
type CreditEvent struct {
	InverterID  uint                `json:"inverter_id"`
	CreditDate  string              `json:"credit_date"`
	Status      domain.CreditStatus `json:"status"`
	Tonnes      float64             `json:"tonnes"`
	Correlation *float64            `json:"correlation,omitempty"`
	Reason      *string             `json:"reason,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// PublishCreditEvent marshals and publishes a credit event. Publishing is a
// side channel: callers log failures but never fail the primary operation.
func PublishCreditEvent(mq MessageQueue, subject string, event CreditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.Publish(subject, data)
}
