package postmovement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/contacorrente/ledger/app/shared/core"
	"github.com/contacorrente/ledger/app/shared/shell"
	"github.com/contacorrente/ledger/ledger"
)

const (
	logMsgPublishFailed = "publishing movement posted event failed"
	logAttrMovementID   = "movement_id"
	logAttrAccountID    = "account_id"
	logAttrError        = "error"
)

// LedgerStore defines the store operations needed by the CommandHandler.
type LedgerStore interface {
	FindAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, bool, error)
	Lookup(ctx context.Context, requestID ledger.RequestID) (ledger.MovementID, bool, error)
	AppendMovement(ctx context.Context, movement ledger.Movement) (ledger.MovementID, error)
	Record(ctx context.Context, requestID ledger.RequestID, movementID ledger.MovementID) error
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher announces committed movements to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event core.MovementPosted) error
}

// CommandHandler orchestrates posting a movement: FindAccount -> Decide -> Lookup -> Append + Record.
// External wrappers handle all observability concerns.
type CommandHandler struct {
	store            LedgerStore
	publisher        EventPublisher
	retryOptions     []shell.RetryOption
	now              func() time.Time
	newMovementID    func() ledger.MovementID
	logger           shell.Logger
	contextualLogger shell.ContextualLogger
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// WithPublisher announces every freshly committed movement through publisher.
// Replays are not announced again.
func WithPublisher(publisher EventPublisher) Option {
	return func(h *CommandHandler) {
		h.publisher = publisher
	}
}

// WithClock replaces the clock used for movement timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *CommandHandler) {
		h.now = now
	}
}

// WithMovementIDGenerator replaces the random UUID movement ids.
func WithMovementIDGenerator(generate func() ledger.MovementID) Option {
	return func(h *CommandHandler) {
		h.newMovementID = generate
	}
}

// WithLogger sets the logger that reports failed event publishing.
func WithLogger(logger shell.Logger) Option {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// WithContextualLogger sets the contextual logger that reports failed event publishing.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(h *CommandHandler) {
		h.contextualLogger = logger
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store LedgerStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store: store,
		now:   time.Now,
		newMovementID: func() ledger.MovementID {
			return uuid.New().String()
		},
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle posts the movement described by command and returns the id of the stored movement.
// Replaying a request id returns the movement id of the first request as an idempotent result.
//
// Resilience: a concurrent request with the same request id that commits first makes the
// idempotency record fail with ledger.ErrIdempotencyConflict. The whole sequence is then retried
// with exponential backoff and the lookup resolves to the winner's movement id.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	var outcome executionOutcome

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		outcome, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return shell.NewErrorResult(retryMetrics), err
	}

	if outcome.idempotent {
		return shell.NewIdempotentResult(outcome.movementID, retryMetrics), nil
	}

	h.publish(ctx, outcome.posted)

	return shell.NewSuccessResult(outcome.movementID, retryMetrics), nil
}

type executionOutcome struct {
	movementID ledger.MovementID
	idempotent bool
	posted     core.MovementPosted
}

// executeCommand contains the part of the posting protocol that can be retried.
func (h CommandHandler) executeCommand(ctx context.Context, command Command) (executionOutcome, error) {
	ctx = ledger.WithStrongConsistency(ctx)

	account, found, err := h.store.FindAccount(ctx, command.AccountID)
	if err != nil {
		return executionOutcome{}, err
	}

	if err = Decide(account, found, command); err != nil {
		return executionOutcome{}, err
	}

	existingID, recorded, err := h.store.Lookup(ctx, command.RequestID)
	if err != nil {
		return executionOutcome{}, err
	}

	if recorded {
		return executionOutcome{movementID: existingID, idempotent: true}, nil
	}

	// Last point where the caller can still abort. Once the commit starts it runs to completion.
	if err = ctx.Err(); err != nil {
		return executionOutcome{}, err
	}

	movement := ledger.BuildMovement(h.newMovementID(), command.AccountID, command.Amount, command.Direction, h.now())

	err = h.store.InTransaction(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		movementID, appendErr := h.store.AppendMovement(txCtx, movement)
		if appendErr != nil {
			return appendErr
		}

		return h.store.Record(txCtx, command.RequestID, movementID)
	})
	if err != nil {
		return executionOutcome{}, err
	}

	return executionOutcome{
		movementID: movement.ID,
		posted:     core.BuildMovementPosted(movement, command.RequestID),
	}, nil
}

// publish is best effort: the movement is committed, a broker failure must not turn it into an error.
func (h CommandHandler) publish(ctx context.Context, event core.MovementPosted) {
	if h.publisher == nil {
		return
	}

	err := h.publisher.Publish(context.WithoutCancel(ctx), event)
	if err == nil {
		return
	}

	args := []any{
		logAttrMovementID, event.MovementID,
		logAttrAccountID, event.AccountID,
		logAttrError, err.Error(),
	}

	if h.contextualLogger != nil {
		h.contextualLogger.WarnContext(ctx, logMsgPublishFailed, args...)
	} else if h.logger != nil {
		h.logger.Warn(logMsgPublishFailed, args...)
	}
}
