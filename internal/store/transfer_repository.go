package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// TransferRepository implements domain.TransferRepository in process memory.
type TransferRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*domain.Transfer
	byKey map[string]*domain.Transfer
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository() *TransferRepository {
	return &TransferRepository{
		byID:  make(map[uuid.UUID]*domain.Transfer),
		byKey: make(map[string]*domain.Transfer),
	}
}

// Create stores a completed transfer. Receipts without an idempotency key are
// kept by id only.
func (r *TransferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if transfer.IdempotencyKey != "" {
		if _, exists := r.byKey[transfer.IdempotencyKey]; exists {
			return domain.ErrDuplicateIdempotencyKey
		}
	}

	stored := *transfer
	r.byID[stored.ID] = &stored
	if stored.IdempotencyKey != "" {
		r.byKey[stored.IdempotencyKey] = &stored
	}
	return nil
}

// GetByIdempotencyKey retrieves a transfer by its idempotency key.
// Returns nil if no transfer is found with the given key.
func (r *TransferRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	transfer, ok := r.byKey[idempotencyKey]
	if !ok {
		return nil, nil
	}
	out := *transfer
	return &out, nil
}

// GetByID retrieves a transfer receipt by its id.
// Returns nil if no transfer is found.
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	transfer, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	out := *transfer
	return &out, nil
}
