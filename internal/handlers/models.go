package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// OpenAccountRequest is the body of POST /accounts
type OpenAccountRequest struct {
	Owner          string `json:"owner"`
	OpeningBalance string `json:"openingBalance,omitempty"`
}

// MovementRequest is the body of deposit and withdrawal requests
type MovementRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// TransferRequest is the body of POST /transfers
type TransferRequest struct {
	SourceID      string `json:"sourceId"`
	DestinationID string `json:"destinationId"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// AccountResponse describes one account
type AccountResponse struct {
	ID               string    `json:"id"`
	Owner            string    `json:"owner"`
	Status           string    `json:"status"`
	Balance          string    `json:"balance"`
	TransactionCount int       `json:"transactionCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TransactionResponse describes one history record
type TransactionResponse struct {
	Kind           string    `json:"kind"`
	Amount         string    `json:"amount"`
	Description    string    `json:"description"`
	Timestamp      time.Time `json:"timestamp"`
	CounterpartyID string    `json:"counterpartyId,omitempty"`
	CorrelationID  string    `json:"correlationId,omitempty"`
}

// MovementResponse is returned by deposits and withdrawals
type MovementResponse struct {
	AccountID   string              `json:"accountId"`
	Balance     string              `json:"balance"`
	Transaction TransactionResponse `json:"transaction"`
}

// TransferResponse is the receipt of a completed transfer
type TransferResponse struct {
	OperationID    uuid.UUID `json:"operationId"`
	Status         string    `json:"status"`
	SourceID       string    `json:"sourceId"`
	DestinationID  string    `json:"destinationId"`
	Amount         string    `json:"amount"`
	Description    string    `json:"description"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// TransactionsResponse lists an account history, oldest first
type TransactionsResponse struct {
	AccountID string                `json:"accountId"`
	Content   []TransactionResponse `json:"content"`
}

// StatementResponse summarizes an account
type StatementResponse struct {
	AccountID         string                `json:"accountId"`
	Owner             string                `json:"owner"`
	Status            string                `json:"status"`
	Balance           string                `json:"balance"`
	TotalTransactions int                   `json:"totalTransactions"`
	Recent            []TransactionResponse `json:"recent"`
	GeneratedAt       time.Time             `json:"generatedAt"`
}

// BaseError is the error envelope of every failed request
type BaseError struct {
	Code        string    `json:"code"`
	Description *string   `json:"description,omitempty"`
	Id          uuid.UUID `json:"id"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:               a.ID().String(),
		Owner:            a.Owner(),
		Status:           string(a.Status()),
		Balance:          domain.FormatAmount(a.Balance()),
		TransactionCount: a.HistoryLen(),
		CreatedAt:        a.CreatedAt().UTC(),
	}
}

func newTransactionResponse(tx domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		Kind:        string(tx.Kind()),
		Amount:      domain.FormatAmount(tx.Amount()),
		Description: tx.Description(),
		Timestamp:   tx.Timestamp().UTC(),
	}
	if tx.Counterparty() != 0 {
		resp.CounterpartyID = tx.Counterparty().String()
	}
	if tx.CorrelationID() != uuid.Nil {
		resp.CorrelationID = tx.CorrelationID().String()
	}
	return resp
}

func newTransactionList(history []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(history))
	for _, tx := range history {
		out = append(out, newTransactionResponse(tx))
	}
	return out
}

func newTransferResponse(t *domain.Transfer) TransferResponse {
	return TransferResponse{
		OperationID:    t.ID,
		Status:         "SUCCESS",
		SourceID:       t.SourceID.String(),
		DestinationID:  t.DestinationID.String(),
		Amount:         domain.FormatAmount(t.Amount),
		Description:    t.Description,
		IdempotencyKey: t.IdempotencyKey,
		Timestamp:      t.CompletedAt.UTC(),
	}
}
