package core

import (
	"time"

	"github.com/contacorrente/ledger/ledger"
)

// MovementPostedEventType is the event type identifier.
const MovementPostedEventType = "MovementPosted"

// MovementPosted represents a movement that was committed to an account together with its
// idempotency record. Replayed requests do not produce it.
type MovementPosted struct {
	EventType  string     `json:"eventType"`
	MovementID string     `json:"movementId"`
	RequestID  string     `json:"requestId"`
	AccountID  string     `json:"accountId"`
	Amount     string     `json:"amount"`
	Direction  string     `json:"direction"`
	OccurredAt OccurredAt `json:"occurredAt"`
}

// BuildMovementPosted creates a new MovementPosted event from the stored movement.
func BuildMovementPosted(movement ledger.Movement, requestID ledger.RequestID) MovementPosted {
	return MovementPosted{
		EventType:  MovementPostedEventType,
		MovementID: movement.ID,
		RequestID:  requestID,
		AccountID:  movement.AccountID,
		Amount:     movement.Amount.String(),
		Direction:  movement.Direction.String(),
		OccurredAt: ToOccurredAt(movement.CreatedAt),
	}
}

// IsEventType returns the event type identifier.
func (e MovementPosted) IsEventType() string {
	return MovementPostedEventType
}

// HasOccurredAt returns when this event occurred.
func (e MovementPosted) HasOccurredAt() time.Time {
	return e.OccurredAt
}
