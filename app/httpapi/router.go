package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/contacorrente/ledger/app/features/command/postmovement"
	"github.com/contacorrente/ledger/app/features/query/accountbalance"
	"github.com/contacorrente/ledger/app/shared/shell"
)

const defaultMaxBodyBytes = int64(64 << 10)

var (
	// ErrMissingPostMovementHandler is returned by NewRouter when no movement handler is configured.
	ErrMissingPostMovementHandler = errors.New("post movement handler must not be nil")

	// ErrMissingAccountBalanceHandler is returned by NewRouter when no balance handler is configured.
	ErrMissingAccountBalanceHandler = errors.New("account balance handler must not be nil")
)

// MovementPoster handles PostMovement commands.
type MovementPoster = shell.CoreCommandHandler[postmovement.Command]

// BalanceReader handles AccountBalance queries.
type BalanceReader = shell.CoreQueryHandler[accountbalance.Query, accountbalance.AccountBalance]

// Dependencies holds everything the router needs.
type Dependencies struct {
	Logger         *slog.Logger
	PostMovement   MovementPoster
	AccountBalance BalanceReader
	MaxBodyBytes   int64
}

// NewRouter builds the chi router with middleware and routes.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.PostMovement == nil {
		return nil, ErrMissingPostMovementHandler
	}

	if deps.AccountBalance == nil {
		return nil, ErrMissingAccountBalanceHandler
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/conta/{id}", func(r chi.Router) {
		r.Post("/movimentar", handlePostMovement(deps))
		r.Get("/saldo", handleAccountBalance(deps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, errorTypeNotFound, messageNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, errorTypeMethodNotAllowed, messageMethodNotAllowed)
	})

	return r, nil
}

// NewServer wraps the handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
