package postmovement

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger/ledger"
)

// CommandType names this command in logs, metrics and spans.
const CommandType = "PostMovement"

// Command represents the intent to post a movement to an account.
type Command struct {
	RequestID ledger.RequestID
	AccountID ledger.AccountID
	Amount    decimal.Decimal
	Direction ledger.Direction
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return CommandType
}

// BuildCommand creates a new Command. Surrounding whitespace of the ids and the direction is dropped.
func BuildCommand(
	requestID string,
	accountID string,
	amount decimal.Decimal,
	direction string,
) Command {
	return Command{
		RequestID: strings.TrimSpace(requestID),
		AccountID: strings.TrimSpace(accountID),
		Amount:    amount,
		Direction: ledger.Direction(strings.TrimSpace(direction)),
	}
}
