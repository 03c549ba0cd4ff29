package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// handleDomainError converts ledger errors to HTTP responses
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrTransferNotFound):
		sendErrorResponse(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAccountID),
		errors.Is(err, domain.ErrInvalidOwner),
		errors.Is(err, domain.ErrNegativeOpeningBalance):
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, domain.ErrAccountNotActive):
		sendErrorResponse(w, http.StatusConflict, "ACCOUNT_NOT_ACTIVE", err.Error())
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		sendErrorResponse(w, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		sendErrorResponse(w, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		sendErrorResponse(w, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	default:
		sendErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// sendErrorResponse sends an error response in the expected format
func sendErrorResponse(w http.ResponseWriter, statusCode int, code, details string) {
	errorResp := BaseError{
		Code:        code,
		Description: &details,
		Id:          uuid.New(),
	}
	writeJSON(w, statusCode, errorResp)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
