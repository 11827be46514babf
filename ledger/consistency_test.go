package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contacorrente/ledger/ledger"
)

func Test_GetConsistencyLevel_DefaultsToStrong(t *testing.T) {
	assert.Equal(t, ledger.StrongConsistency, ledger.GetConsistencyLevel(context.Background()))
}

func Test_GetConsistencyLevel_ReadsMarker(t *testing.T) {
	ctx := ledger.WithEventualConsistency(context.Background())
	assert.Equal(t, ledger.EventualConsistency, ledger.GetConsistencyLevel(ctx))
	assert.Equal(t, "eventual", ledger.GetConsistencyLevel(ctx).String())

	ctx = ledger.WithStrongConsistency(ctx)
	assert.Equal(t, ledger.StrongConsistency, ledger.GetConsistencyLevel(ctx))
	assert.Equal(t, "strong", ledger.GetConsistencyLevel(ctx).String())
}
