package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// MovementID identifies a stored movement.
	MovementID = string

	// RequestID is the client-supplied idempotency key.
	RequestID = string
)

// Direction is the canonical movement direction code.
type Direction string

const (
	// DirectionCredit increases the balance.
	DirectionCredit Direction = "C"

	// DirectionDebit decreases the balance.
	DirectionDebit Direction = "D"
)

// IsValid reports whether d is one of the two recognized codes.
func (d Direction) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Sign returns 1 for credits, -1 for debits and 0 for anything else.
func (d Direction) Sign() int64 {
	switch d {
	case DirectionCredit:
		return 1
	case DirectionDebit:
		return -1
	default:
		return 0
	}
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	return string(d)
}

// Movement is a single credit or debit appended to an account. Amount is always positive,
// the direction alone encodes the sign.
type Movement struct {
	ID        MovementID
	AccountID AccountID
	Amount    decimal.Decimal
	Direction Direction
	CreatedAt time.Time
}

// BuildMovement creates a Movement with its creation timestamp normalized to UTC.
func BuildMovement(
	id MovementID,
	accountID AccountID,
	amount decimal.Decimal,
	direction Direction,
	createdAt time.Time,
) Movement {
	return Movement{
		ID:        id,
		AccountID: accountID,
		Amount:    amount,
		Direction: direction,
		CreatedAt: createdAt.UTC(),
	}
}

// SignedAmount returns the amount with the sign implied by the direction.
func (m Movement) SignedAmount() decimal.Decimal {
	return m.Amount.Mul(decimal.NewFromInt(m.Direction.Sign()))
}

// Movements is a collection of Movement.
type Movements = []Movement
