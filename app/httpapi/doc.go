// Package httpapi exposes the movement posting command and the balance query over HTTP.
//
// Routes:
//
//	POST /conta/{id}/movimentar  posts a credit or debit, idempotent per requestId
//	GET  /conta/{id}/saldo       returns the current balance of an active account
//	GET  /healthz                liveness
//
// The package only decodes requests, calls the (usually wrapped) handlers and encodes results.
// Domain errors are mapped to typed JSON error bodies in errors.go.
package httpapi
