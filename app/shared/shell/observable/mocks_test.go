package observable_test

import (
	"context"
	"sync"

	"github.com/contacorrente/ledger/app/shared/shell"
)

type mockCommand struct {
	RequestID string
}

func (mockCommand) CommandType() string {
	return "TestCommand"
}

type mockCommandHandler struct {
	result shell.HandlerResult
	err    error
	calls  []mockCommand
	ctxs   []context.Context
	mu     sync.Mutex
}

func newMockCommandHandler(result shell.HandlerResult, err error) *mockCommandHandler {
	return &mockCommandHandler{result: result, err: err}
}

func (h *mockCommandHandler) Handle(ctx context.Context, command mockCommand) (shell.HandlerResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, command)
	h.ctxs = append(h.ctxs, ctx)

	return h.result, h.err
}

func (h *mockCommandHandler) getCalls() []mockCommand {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]mockCommand(nil), h.calls...)
}

type mockQuery struct {
	AccountID string
}

func (mockQuery) QueryType() string {
	return "TestQuery"
}

type mockQueryResult struct {
	Value string
}

type mockQueryHandler struct {
	result mockQueryResult
	err    error
}

func (h *mockQueryHandler) Handle(_ context.Context, _ mockQuery) (mockQueryResult, error) {
	return h.result, h.err
}
