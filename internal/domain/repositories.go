package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account registry operations.
// This follows the Repository pattern so the ledger does not care where
// accounts live.
type AccountRepository interface {
	// Add registers a new account.
	// Returns ErrAccountExists if an account with the same id is registered.
	Add(ctx context.Context, account *Account) error

	// GetByID retrieves an account by its identifier.
	// Returns ErrAccountNotFound if the account doesn't exist.
	GetByID(ctx context.Context, id AccountID) (*Account, error)

	// List returns all registered accounts ordered by id.
	List(ctx context.Context) ([]*Account, error)
}

// TransferRepository defines the interface for transfer receipt storage.
type TransferRepository interface {
	// Create stores a completed transfer.
	// Returns ErrDuplicateIdempotencyKey if a transfer with the same
	// non-empty idempotency key already exists.
	Create(ctx context.Context, transfer *Transfer) error

	// GetByIdempotencyKey retrieves a transfer by its idempotency key.
	// Returns nil if no transfer is found with the given key.
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Transfer, error)

	// GetByID retrieves a transfer by its id.
	// Returns nil if no transfer is found.
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
}

// EventPublisher publishes ledger events to external systems (e.g. RabbitMQ).
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, accountID AccountID, tx Transaction) error
	PublishTransferCompleted(ctx context.Context, transfer *Transfer) error
}
