package accountbalance

import (
	"strings"

	"github.com/contacorrente/ledger/ledger"
)

// QueryType names this query in logs, metrics and spans.
const QueryType = "AccountBalance"

// Query represents the intent to read the current balance of an account.
type Query struct {
	AccountID ledger.AccountID
}

// BuildQuery creates a new Query with the provided account id.
func BuildQuery(accountID string) Query {
	return Query{
		AccountID: strings.TrimSpace(accountID),
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return QueryType
}
