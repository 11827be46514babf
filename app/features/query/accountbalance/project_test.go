package accountbalance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/contacorrente/ledger/app/features/query/accountbalance"
	"github.com/contacorrente/ledger/ledger"
	. "github.com/contacorrente/ledger/testutil/helper" //nolint:revive
)

func Test_ProjectBalance(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		movements ledger.Movements
		expected  string
	}{
		{
			name:      "no movements",
			movements: nil,
			expected:  "0",
		},
		{
			name: "credits minus debits",
			movements: ledger.Movements{
				ledger.BuildMovement("m1", "a1", Amount(t, "100.00"), ledger.DirectionCredit, at),
				ledger.BuildMovement("m2", "a1", Amount(t, "30.00"), ledger.DirectionDebit, at),
				ledger.BuildMovement("m3", "a1", Amount(t, "0.10"), ledger.DirectionCredit, at),
			},
			expected: "70.10",
		},
		{
			name: "debits only go negative",
			movements: ledger.Movements{
				ledger.BuildMovement("m1", "a1", Amount(t, "12.34"), ledger.DirectionDebit, at),
			},
			expected: "-12.34",
		},
		{
			name: "unknown direction does not count",
			movements: ledger.Movements{
				ledger.BuildMovement("m1", "a1", Amount(t, "5"), ledger.DirectionCredit, at),
				ledger.BuildMovement("m2", "a1", Amount(t, "5"), ledger.Direction("X"), at),
			},
			expected: "5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			balance := accountbalance.ProjectBalance(tc.movements)

			// assert
			assert.True(t, Amount(t, tc.expected).Equal(balance), "expected %s, got %s", tc.expected, balance)
		})
	}
}

func Test_ProjectBalance_IsExactForDecimalFractions(t *testing.T) {
	// arrange
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	movements := make(ledger.Movements, 0, 10)

	for i := 0; i < 10; i++ {
		movements = append(movements, ledger.BuildMovement("m", "a1", Amount(t, "0.10"), ledger.DirectionCredit, at))
	}

	// act
	balance := accountbalance.ProjectBalance(movements)

	// assert
	assert.Equal(t, "1.00", balance.StringFixed(2))
}
