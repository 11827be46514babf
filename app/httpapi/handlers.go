package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger/app/features/command/postmovement"
	"github.com/contacorrente/ledger/app/features/query/accountbalance"
)

const (
	headerIdempotentReplay = "Idempotent-Replayed"
	timestampLayout        = "2006-01-02T15:04:05.000Z07:00"
	balanceFractionDigits  = 2
)

// PostMovementRequest is the body of POST /conta/{id}/movimentar.
// Amount accepts a JSON number or a decimal string.
type PostMovementRequest struct {
	RequestID string          `json:"requestId"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
}

// PostMovementResponse is the body of a successful movement post.
type PostMovementResponse struct {
	MovementID string `json:"movementId"`
}

// AccountBalanceResponse is the body of a successful balance query.
type AccountBalanceResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	AccountID      string `json:"accountId"`
	AccountNumber  int    `json:"accountNumber"`
	HolderName     string `json:"holderName"`
	QueryTimestamp string `json:"queryTimestamp"`
	Balance        string `json:"balance"`
	MovementCount  int    `json:"movementCount"`
}

func handlePostMovement(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body PostMovementRequest
		if err := decodeJSON(w, r, deps.MaxBodyBytes, &body); err != nil {
			writeError(w, r, http.StatusBadRequest, ErrorTypeInvalidRequest, messageMalformedBody)
			return
		}

		command := postmovement.BuildCommand(body.RequestID, chi.URLParam(r, "id"), body.Amount, body.Direction)

		result, err := deps.PostMovement.Handle(r.Context(), command)
		if err != nil {
			writeHandlerError(w, r, deps.Logger, err)
			return
		}

		if result.Idempotent {
			w.Header().Set(headerIdempotentReplay, "true")
		}

		writeJSON(w, r, http.StatusOK, PostMovementResponse{MovementID: result.MovementID})
	}
}

func handleAccountBalance(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := accountbalance.BuildQuery(chi.URLParam(r, "id"))

		result, err := deps.AccountBalance.Handle(r.Context(), query)
		if err != nil {
			writeHandlerError(w, r, deps.Logger, err)
			return
		}

		writeJSON(w, r, http.StatusOK, AccountBalanceResponse{
			Success:        true,
			Message:        messageBalanceQueried,
			AccountID:      result.AccountID,
			AccountNumber:  result.AccountNumber,
			HolderName:     result.HolderName,
			QueryTimestamp: result.QueryTimestamp.UTC().Format(timestampLayout),
			Balance:        result.Balance.StringFixed(balanceFractionDigits),
			MovementCount:  result.MovementCount,
		})
	}
}
