package postmovement

import (
	"github.com/contacorrente/ledger/ledger"
)

// Decide validates a command against the account it targets. It is a pure function.
//
// Business Rules, checked in this order, the first failure wins:
//
//	ERROR: ledger.ErrAccountNotFound if the account does not exist
//	ERROR: ledger.ErrAccountInactive if the account is not active
//	ERROR: ledger.ErrInvalidAmount if the amount is not greater than zero, has more than two
//	       fraction digits or more than eighteen integer digits
//	ERROR: ledger.ErrInvalidDirection if the direction is neither "C" nor "D"
//	ERROR: ledger.ErrMissingRequestID if no request id was supplied
func Decide(account ledger.Account, found bool, command Command) error {
	switch {
	case !found:
		return ledger.ErrAccountNotFound
	case !account.Active:
		return ledger.ErrAccountInactive
	case !ledger.IsValidAmount(command.Amount):
		return ledger.ErrInvalidAmount
	case !command.Direction.IsValid():
		return ledger.ErrInvalidDirection
	case command.RequestID == "":
		return ledger.ErrMissingRequestID
	default:
		return nil
	}
}
