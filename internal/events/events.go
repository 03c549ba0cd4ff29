package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// Routing keys on the ledger exchange.
const (
	RoutingKeyTransactionRecorded = "ledger.transaction.recorded"
	RoutingKeyTransferCompleted   = "ledger.transfer.completed"
)

// Event types carried in the eventType field.
const (
	EventTypeTransactionRecorded = "transaction.recorded"
	EventTypeTransferCompleted   = "transfer.completed"
)

// TransactionRecordedEvent is published for every record appended to an
// account history, including each leg of a transfer.
type TransactionRecordedEvent struct {
	EventID        string `json:"eventId"`
	EventType      string `json:"eventType"`
	EventTimestamp string `json:"eventTimestamp"`
	AccountID      string `json:"accountId"`
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	Description    string `json:"description"`
	Timestamp      string `json:"timestamp"`
	CounterpartyID string `json:"counterpartyId,omitempty"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

// TransferCompletedEvent is published once per completed transfer.
type TransferCompletedEvent struct {
	EventID        string `json:"eventId"`
	EventType      string `json:"eventType"`
	EventTimestamp string `json:"eventTimestamp"`
	OperationID    string `json:"operationId"`
	SenderID       string `json:"senderId"`
	RecipientID    string `json:"recipientId"`
	Amount         string `json:"amount"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
}

// NewTransactionRecordedEvent builds the payload for one history record.
func NewTransactionRecordedEvent(accountID domain.AccountID, tx domain.Transaction, now time.Time) TransactionRecordedEvent {
	event := TransactionRecordedEvent{
		EventID:        uuid.New().String(),
		EventType:      EventTypeTransactionRecorded,
		EventTimestamp: now.UTC().Format(time.RFC3339),
		AccountID:      accountID.String(),
		Kind:           string(tx.Kind()),
		Amount:         domain.FormatAmount(tx.Amount()),
		Description:    tx.Description(),
		Timestamp:      tx.Timestamp().UTC().Format(time.RFC3339Nano),
	}
	if tx.Counterparty() != 0 {
		event.CounterpartyID = tx.Counterparty().String()
	}
	if tx.CorrelationID() != uuid.Nil {
		event.CorrelationID = tx.CorrelationID().String()
	}
	return event
}

// NewTransferCompletedEvent builds the payload for a transfer receipt.
func NewTransferCompletedEvent(transfer *domain.Transfer, now time.Time) TransferCompletedEvent {
	return TransferCompletedEvent{
		EventID:        uuid.New().String(),
		EventType:      EventTypeTransferCompleted,
		EventTimestamp: now.UTC().Format(time.RFC3339),
		OperationID:    transfer.ID.String(),
		SenderID:       transfer.SourceID.String(),
		RecipientID:    transfer.DestinationID.String(),
		Amount:         domain.FormatAmount(transfer.Amount),
		Description:    transfer.Description,
		IdempotencyKey: transfer.IdempotencyKey,
		Status:         "SUCCESS",
		Timestamp:      transfer.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
}
