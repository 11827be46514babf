package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/contacorrente/ledger/ledger"
)

// Error types returned in the "type" field of error bodies.
const (
	ErrorTypeInvalidAccount   = "INVALID_ACCOUNT"
	ErrorTypeInactiveAccount  = "INACTIVE_ACCOUNT"
	ErrorTypeInvalidValue     = "INVALID_VALUE"
	ErrorTypeInvalidType      = "INVALID_TYPE"
	ErrorTypeInvalidRequest   = "INVALID_REQUEST"
	ErrorTypeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrorTypeRequestCanceled  = "REQUEST_CANCELED"
	ErrorTypeInternal         = "INTERNAL_ERROR"
	errorTypeNotFound         = "NOT_FOUND"
	errorTypeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

const (
	messageInvalidAccount   = "Conta corrente não encontrada."
	messageInactiveAccount  = "Conta corrente está inativa."
	messageInvalidValue     = "O valor informado deve ser maior que zero."
	messageInvalidType      = "Tipo de movimento inválido. Use 'C' ou 'D'."
	messageMissingRequestID = "A identificação da requisição é obrigatória."
	messageMalformedBody    = "Corpo da requisição inválido."
	messageStoreUnavailable = "Serviço temporariamente indisponível. Tente novamente."
	messageRequestCanceled  = "Requisição cancelada antes da conclusão."
	messageInternal         = "Erro interno ao processar a requisição."
	messageNotFound         = "Recurso não encontrado."
	messageMethodNotAllowed = "Método não permitido."
	messageBalanceQueried   = "Saldo consultado com sucesso."
)

const (
	retryAfterSeconds     = "1"
	logMsgRequestCanceled = "request canceled before completion"
	logMsgRequestFailed   = "request failed with an unexpected error"
	logAttrError          = "error"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type mappedError struct {
	status    int
	errorType string
	message   string
}

// mapError translates a handler error into its HTTP representation.
// Cancellation is checked first because store errors may wrap the context error.
func mapError(err error) mappedError {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mappedError{http.StatusServiceUnavailable, ErrorTypeRequestCanceled, messageRequestCanceled}
	case errors.Is(err, ledger.ErrAccountNotFound):
		return mappedError{http.StatusBadRequest, ErrorTypeInvalidAccount, messageInvalidAccount}
	case errors.Is(err, ledger.ErrAccountInactive):
		return mappedError{http.StatusBadRequest, ErrorTypeInactiveAccount, messageInactiveAccount}
	case errors.Is(err, ledger.ErrInvalidAmount):
		return mappedError{http.StatusBadRequest, ErrorTypeInvalidValue, messageInvalidValue}
	case errors.Is(err, ledger.ErrInvalidDirection):
		return mappedError{http.StatusBadRequest, ErrorTypeInvalidType, messageInvalidType}
	case errors.Is(err, ledger.ErrMissingRequestID):
		return mappedError{http.StatusBadRequest, ErrorTypeInvalidRequest, messageMissingRequestID}
	case errors.Is(err, ledger.ErrStoreUnavailable), errors.Is(err, ledger.ErrIdempotencyConflict):
		return mappedError{http.StatusServiceUnavailable, ErrorTypeStoreUnavailable, messageStoreUnavailable}
	default:
		return mappedError{http.StatusInternalServerError, ErrorTypeInternal, messageInternal}
	}
}

func writeHandlerError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	mapped := mapError(err)

	switch mapped.errorType {
	case ErrorTypeRequestCanceled:
		logger.InfoContext(r.Context(), logMsgRequestCanceled, logAttrError, err.Error())
	case ErrorTypeInternal:
		logger.ErrorContext(r.Context(), logMsgRequestFailed, logAttrError, err.Error())
	case ErrorTypeStoreUnavailable:
		w.Header().Set("Retry-After", retryAfterSeconds)
	default:
	}

	writeError(w, r, mapped.status, mapped.errorType, mapped.message)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errorType, message string) {
	writeJSON(w, r, status, errorResponse{
		Success: false,
		Message: message,
		Type:    errorType,
	})
}
