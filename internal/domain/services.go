package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrAccountNotFound is returned when an account doesn't exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when an id is registered twice
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidAccountID is returned for ids that the allocator can never issue
	ErrInvalidAccountID = errors.New("invalid account id")

	// ErrInsufficientFunds is returned when the balance doesn't cover the amount
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned when the amount is invalid
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrSameAccount is returned when source and destination are the same
	ErrSameAccount = errors.New("source and destination must be different accounts")

	// ErrAccountNotActive is returned when the account status forbids the operation
	ErrAccountNotActive = errors.New("account is not active")

	// ErrDestinationNotActive is returned when a transfer targets a non-active account
	ErrDestinationNotActive = fmt.Errorf("destination %w", ErrAccountNotActive)

	// ErrInvalidOwner is returned by the strict policy for a blank owner name
	ErrInvalidOwner = errors.New("owner name must not be blank")

	// ErrNegativeOpeningBalance is returned by the strict policy for a negative opening balance
	ErrNegativeOpeningBalance = errors.New("opening balance must not be negative")

	// ErrTransferNotFound is returned when a transfer receipt doesn't exist
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrDuplicateIdempotencyKey is returned when a transfer key is stored twice
	ErrDuplicateIdempotencyKey = errors.New("transfer with idempotency key already exists")

	// ErrIdempotencyKeyReused is returned when a key comes back with a different
	// source, destination or amount
	ErrIdempotencyKeyReused = fmt.Errorf("%w for a different request", ErrDuplicateIdempotencyKey)
)

// DefaultStatementLimit is the number of records a statement shows when the
// caller gives no limit.
const DefaultStatementLimit = 10

// Ledger coordinates accounts: it issues ids, looks accounts up and runs
// transfers between two of them.
type Ledger struct {
	accountRepo  AccountRepository
	transferRepo TransferRepository
	ids          *IDAllocator
	// Optional event publisher to emit ledger events
	eventPublisher EventPublisher
	logger         *zap.Logger

	policy         ConstructionPolicy
	clock          Clock
	statementLimit int

	keyLocksMu sync.Mutex
	keyLocks   map[string]*keyLock

	// eventsMu orders pending.Add against pending.Wait
	eventsMu sync.Mutex
	pending  sync.WaitGroup
}

// keyLock serializes transfers sharing an idempotency key. refs counts the
// holders and waiters; the entry is dropped when it reaches zero.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithConstructionPolicy sets how OpenAccount treats a blank owner and a
// negative opening balance.
func WithConstructionPolicy(p ConstructionPolicy) Option {
	return func(l *Ledger) { l.policy = p }
}

// WithClock replaces time.Now for transaction timestamps.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithStatementLimit sets the default number of records in a statement.
func WithStatementLimit(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.statementLimit = n
		}
	}
}

// NewLedger creates a new Ledger.
// Pass nil for eventPublisher if no events should be emitted.
func NewLedger(
	accountRepo AccountRepository,
	transferRepo TransferRepository,
	ids *IDAllocator,
	eventPublisher EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) *Ledger {
	if ids == nil {
		ids = NewIDAllocator(DefaultIDBase)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		accountRepo:    accountRepo,
		transferRepo:   transferRepo,
		ids:            ids,
		eventPublisher: eventPublisher,
		logger:         logger,
		policy:         PolicyLenient,
		clock:          time.Now,
		statementLimit: DefaultStatementLimit,
		keyLocks:       make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OpenAccount creates an account with a freshly allocated id and registers it.
func (l *Ledger) OpenAccount(ctx context.Context, owner string, opening decimal.Decimal) (*Account, error) {
	// Validate before allocating so a rejected request doesn't burn an id
	if _, err := normalizeOwner(owner, l.policy); err != nil {
		return nil, err
	}
	if _, err := normalizeOpeningBalance(opening, l.policy); err != nil {
		return nil, err
	}

	account, err := NewAccount(l.ids.NextID(), owner, opening, l.policy, l.clock)
	if err != nil {
		return nil, err
	}
	if err := l.accountRepo.Add(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	l.logger.Info("account opened",
		zap.Stringer("account_id", account.ID()),
		zap.String("opening_balance", FormatAmount(account.Balance())),
	)
	for _, tx := range account.History() {
		l.publishTransaction(account.ID(), tx)
	}
	return account, nil
}

// Account retrieves an account by id.
func (l *Ledger) Account(ctx context.Context, id AccountID) (*Account, error) {
	account, err := l.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// Accounts returns every account ordered by id.
func (l *Ledger) Accounts(ctx context.Context) ([]*Account, error) {
	accounts, err := l.accountRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Deposit credits amount to account id.
func (l *Ledger) Deposit(ctx context.Context, id AccountID, amount decimal.Decimal, description string) (Transaction, error) {
	account, err := l.Account(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	tx, err := account.Deposit(amount, description)
	if err != nil {
		l.logger.Debug("deposit rejected", zap.Stringer("account_id", id), zap.Error(err))
		return Transaction{}, err
	}

	l.publishTransaction(id, tx)
	return tx, nil
}

// Withdraw debits amount from account id.
func (l *Ledger) Withdraw(ctx context.Context, id AccountID, amount decimal.Decimal, description string) (Transaction, error) {
	account, err := l.Account(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	tx, err := account.Withdraw(amount, description)
	if err != nil {
		l.logger.Debug("withdrawal rejected", zap.Stringer("account_id", id), zap.Error(err))
		return Transaction{}, err
	}

	l.publishTransaction(id, tx)
	return tx, nil
}

// Transfer moves funds between two accounts atomically.
// When the request carries an idempotency key, repeating the request returns
// the first receipt without moving money again. Reusing the key for a
// different source, destination or amount fails with ErrIdempotencyKeyReused.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	// Validate input parameters
	if req.SourceID == req.DestinationID {
		return nil, ErrSameAccount
	}
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		unlock := l.lockKey(req.IdempotencyKey)
		defer unlock()

		existing, err := l.transferRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			if !existing.matches(req) {
				return nil, ErrIdempotencyKeyReused
			}
			// Transfer already processed, return existing result
			return existing, nil
		}
	}

	source, err := l.Account(ctx, req.SourceID)
	if err != nil {
		return nil, fmt.Errorf("source account %s: %w", req.SourceID, err)
	}
	destination, err := l.Account(ctx, req.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("destination account %s: %w", req.DestinationID, err)
	}

	transfer, err := MoveFunds(source, destination, req.Amount, req.Description, uuid.New(), l.clock())
	if err != nil {
		l.logger.Debug("transfer rejected",
			zap.Stringer("source_id", req.SourceID),
			zap.Stringer("destination_id", req.DestinationID),
			zap.Error(err),
		)
		return nil, err
	}
	transfer.IdempotencyKey = req.IdempotencyKey

	// Funds already moved, so a storage failure is logged only
	if err := l.transferRepo.Create(ctx, transfer); err != nil {
		l.logger.Error("failed to store transfer receipt", zap.Stringer("transfer_id", transfer.ID), zap.Error(err))
	}

	l.logger.Info("transfer completed",
		zap.Stringer("transfer_id", transfer.ID),
		zap.Stringer("source_id", transfer.SourceID),
		zap.Stringer("destination_id", transfer.DestinationID),
		zap.String("amount", FormatAmount(transfer.Amount)),
	)
	out, in := transfer.Legs()
	l.publishTransaction(transfer.SourceID, out)
	l.publishTransaction(transfer.DestinationID, in)
	l.publishTransfer(transfer)
	return transfer, nil
}

// TransferByID returns the receipt of a completed transfer.
func (l *Ledger) TransferByID(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	transfer, err := l.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	if transfer == nil {
		return nil, ErrTransferNotFound
	}
	return transfer, nil
}

// Block moves account id to BLOCKED.
func (l *Ledger) Block(ctx context.Context, id AccountID) error {
	account, err := l.Account(ctx, id)
	if err != nil {
		return err
	}
	account.Block()
	l.logger.Info("account blocked", zap.Stringer("account_id", id))
	return nil
}

// Balance returns the balance of account id.
func (l *Ledger) Balance(ctx context.Context, id AccountID) (decimal.Decimal, error) {
	account, err := l.Account(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance(), nil
}

// Status returns the status of account id.
func (l *Ledger) Status(ctx context.Context, id AccountID) (AccountStatus, error) {
	account, err := l.Account(ctx, id)
	if err != nil {
		return "", err
	}
	return account.Status(), nil
}

// History returns the full history of account id, oldest first.
func (l *Ledger) History(ctx context.Context, id AccountID) ([]Transaction, error) {
	account, err := l.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.History(), nil
}

// Statement summarizes account id with its latest limit records. A
// non-positive limit uses the ledger default.
func (l *Ledger) Statement(ctx context.Context, id AccountID, limit int) (*Statement, error) {
	account, err := l.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = l.statementLimit
	}

	// Read everything under one lock so the summary is consistent
	account.mu.RLock()
	defer account.mu.RUnlock()

	n := len(account.history)
	start := 0
	if n > limit {
		start = n - limit
	}
	recent := make([]Transaction, n-start)
	copy(recent, account.history[start:])

	return &Statement{
		AccountID:         account.id,
		Owner:             account.owner,
		Status:            account.status,
		Balance:           account.balance,
		TotalTransactions: n,
		Recent:            recent,
		GeneratedAt:       l.clock(),
	}, nil
}

// WaitForEvents blocks until every event publish started so far has
// finished. Operations that complete meanwhile wait before starting their
// own publish. Used on shutdown and in tests.
func (l *Ledger) WaitForEvents() {
	l.eventsMu.Lock()
	defer l.eventsMu.Unlock()
	l.pending.Wait()
}

func (l *Ledger) lockKey(key string) func() {
	l.keyLocksMu.Lock()
	kl, ok := l.keyLocks[key]
	if !ok {
		kl = &keyLock{}
		l.keyLocks[key] = kl
	}
	kl.refs++
	l.keyLocksMu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()

		l.keyLocksMu.Lock()
		defer l.keyLocksMu.Unlock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.keyLocks, key)
		}
	}
}

func (l *Ledger) startEvent() {
	l.eventsMu.Lock()
	defer l.eventsMu.Unlock()
	l.pending.Add(1)
}

// Events are published asynchronously and failures are only logged.
func (l *Ledger) publishTransaction(id AccountID, tx Transaction) {
	if l.eventPublisher == nil {
		return
	}
	l.startEvent()
	go func() {
		defer l.pending.Done()
		if err := l.eventPublisher.PublishTransactionRecorded(context.Background(), id, tx); err != nil {
			l.logger.Warn("failed to publish transaction recorded event",
				zap.Stringer("account_id", id),
				zap.Error(err),
			)
		}
	}()
}

func (l *Ledger) publishTransfer(transfer *Transfer) {
	if l.eventPublisher == nil {
		return
	}
	l.startEvent()
	go func(t Transfer) {
		defer l.pending.Done()
		if err := l.eventPublisher.PublishTransferCompleted(context.Background(), &t); err != nil {
			l.logger.Warn("failed to publish transfer completed event",
				zap.Stringer("transfer_id", t.ID),
				zap.Error(err),
			)
		}
	}(*transfer)
}
