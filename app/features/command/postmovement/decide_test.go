package postmovement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/contacorrente/ledger/app/features/command/postmovement"
	"github.com/contacorrente/ledger/ledger"
)

func Test_Decide(t *testing.T) {
	active := ledger.Account{ID: "account-1", HolderName: "Holder", Active: true}
	inactive := ledger.Account{ID: "account-2", HolderName: "Holder", Active: false}

	testCases := []struct {
		name        string
		account     ledger.Account
		found       bool
		command     postmovement.Command
		expectedErr error
	}{
		{
			name:    "valid credit",
			account: active,
			found:   true,
			command: postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("100.00"), "C"),
		},
		{
			name:    "valid debit",
			account: active,
			found:   true,
			command: postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("0.01"), "D"),
		},
		{
			name:        "unknown account wins over every other failure",
			account:     ledger.Account{},
			found:       false,
			command:     postmovement.BuildCommand("", "account-x", decimal.Zero, "X"),
			expectedErr: ledger.ErrAccountNotFound,
		},
		{
			name:        "inactive account wins over amount and direction",
			account:     inactive,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-2", decimal.RequireFromString("-1"), "X"),
			expectedErr: ledger.ErrAccountInactive,
		},
		{
			name:        "zero amount",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.Zero, "C"),
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name:        "negative amount wins over direction",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("-5"), "X"),
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name:        "more than two fraction digits",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("0.004"), "C"),
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name:        "more than eighteen integer digits",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("1e20000000"), "C"),
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name:        "trailing zeros beyond the cents are accepted",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("12.3400"), "D"),
		},
		{
			name:        "unknown direction",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("5"), "X"),
			expectedErr: ledger.ErrInvalidDirection,
		},
		{
			name:        "lower case direction is not accepted",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("request-1", "account-1", decimal.RequireFromString("5"), "c"),
			expectedErr: ledger.ErrInvalidDirection,
		},
		{
			name:        "blank request id",
			account:     active,
			found:       true,
			command:     postmovement.BuildCommand("   ", "account-1", decimal.RequireFromString("5"), "D"),
			expectedErr: ledger.ErrMissingRequestID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := postmovement.Decide(tc.account, tc.found, tc.command)

			// assert
			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
