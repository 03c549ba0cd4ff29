package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// IdempotencyKeyHeader carries the optional transfer idempotency key
const IdempotencyKeyHeader = "X-Idempotency-Key"

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Handler serves the ledger over HTTP
type Handler struct {
	ledger *domain.Ledger
	logger *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(ledger *domain.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ledger: ledger,
		logger: logger,
	}
}

// OpenAccount handles POST /accounts
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	opening, err := domain.ParseOpeningBalance(req.OpeningBalance)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	account, err := h.ledger.OpenAccount(r.Context(), req.Owner, opening)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/accounts/"+account.ID().String())
	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

// ListAccounts handles GET /accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.Accounts(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, newAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAccount handles GET /accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	account, err := h.ledger.Account(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

// Deposit handles POST /accounts/{id}/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.ledger.Deposit)
}

// Withdraw handles POST /accounts/{id}/withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.ledger.Withdraw)
}

type movementFunc func(context.Context, domain.AccountID, decimal.Decimal, string) (domain.Transaction, error)

func (h *Handler) movement(w http.ResponseWriter, r *http.Request, apply movementFunc) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req MovementRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	tx, err := apply(r.Context(), id, amount, req.Description)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MovementResponse{
		AccountID:   id.String(),
		Balance:     domain.FormatAmount(balance),
		Transaction: newTransactionResponse(tx),
	})
}

// BlockAccount handles POST /accounts/{id}/block
func (h *Handler) BlockAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	if err := h.ledger.Block(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}

	account, err := h.ledger.Account(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

// ListTransactions handles GET /accounts/{id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	history, err := h.ledger.History(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransactionsResponse{
		AccountID: id.String(),
		Content:   newTransactionList(history),
	})
}

// GetStatement handles GET /accounts/{id}/statement?limit=
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	st, err := h.ledger.Statement(r.Context(), id, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatementResponse{
		AccountID:         st.AccountID.String(),
		Owner:             st.Owner,
		Status:            string(st.Status),
		Balance:           domain.FormatAmount(st.Balance),
		TotalTransactions: st.TotalTransactions,
		Recent:            newTransactionList(st.Recent),
		GeneratedAt:       st.GeneratedAt.UTC(),
	})
}

// Transfer handles POST /transfers
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	sourceID, err := domain.ParseAccountID(req.SourceID)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid sourceId")
		return
	}
	destinationID, err := domain.ParseAccountID(req.DestinationID)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid destinationId")
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	transfer, err := h.ledger.Transfer(r.Context(), domain.TransferRequest{
		SourceID:       sourceID,
		DestinationID:  destinationID,
		Amount:         amount,
		Description:    req.Description,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransferResponse(transfer))
}

// GetTransfer handles GET /transfers/{operationId}
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "operationId"))
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid operationId")
		return
	}

	transfer, err := h.ledger.TransferByID(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransferResponse(transfer))
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body: "+err.Error())
		return false
	}
	return true
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	id, err := domain.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid account id")
		return 0, false
	}
	return id, true
}
