package shell

import "context"

// Command represents the contract for all command types of the ledger application.
// The CommandType method names the command in logs, metrics and spans.
type Command interface {
	CommandType() string
}

// Query represents the contract for all query types of the ledger application.
type Query interface {
	QueryType() string
}

// CoreCommandHandler defines the contract for components that process commands.
// Implementations focus on business logic and are wrapped with observability decorators.
// Handlers return a HandlerResult carrying the business outcome (movement id, idempotency)
// and execution metadata (retry information).
type CoreCommandHandler[C Command] interface {
	Handle(ctx context.Context, command C) (HandlerResult, error)
}

// CoreQueryHandler defines the contract for components that process queries.
// The generic parameters Q and R keep queries and their results type safe.
type CoreQueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}
