package helper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/contacorrente/ledger/ledger"
)

// AccountSeeder is satisfied by every store that can seed the account registry.
type AccountSeeder interface {
	SeedAccounts(ctx context.Context, accounts ...ledger.Account) error
}

func GivenUniqueID(t testing.TB) string {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id.String()
}

func GivenActiveAccount(t testing.TB, ctx context.Context, store AccountSeeder) ledger.Account {
	return givenAccount(t, ctx, store, true)
}

func GivenInactiveAccount(t testing.TB, ctx context.Context, store AccountSeeder) ledger.Account {
	return givenAccount(t, ctx, store, false)
}

func givenAccount(t testing.TB, ctx context.Context, store AccountSeeder, active bool) ledger.Account {
	account := ledger.Account{
		ID:         GivenUniqueID(t),
		Number:     int(uuid.New().ID() % 1000),
		HolderName: "Test Holder",
		Active:     active,
	}

	err := store.SeedAccounts(ctx, account)
	assert.NoError(t, err, "error in arranging test data")

	return account
}

func Amount(t testing.TB, value string) decimal.Decimal {
	amount, err := decimal.NewFromString(value)
	assert.NoError(t, err, "error in arranging test data")

	return amount
}
