package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountID identifies an account. IDs are issued by an IDAllocator and are
// never reused within a process.
type AccountID int64

// String returns the decimal form of the id.
func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseAccountID parses the decimal form produced by AccountID.String.
func ParseAccountID(s string) (AccountID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAccountID
	}
	return AccountID(v), nil
}

// TransactionKind tells how a transaction affected the balance of the
// account holding it.
type TransactionKind string

const (
	// TransactionKindDeposit credits the account
	TransactionKindDeposit TransactionKind = "DEPOSIT"

	// TransactionKindWithdrawal debits the account
	TransactionKindWithdrawal TransactionKind = "WITHDRAWAL"

	// TransactionKindTransfer debits the account as the outgoing leg of a transfer
	TransactionKindTransfer TransactionKind = "TRANSFER"
)

// Default descriptions used when the caller leaves the description blank.
const (
	DefaultTransactionDescription = "Transaction"
	DefaultDepositDescription     = "Deposit"
	DefaultWithdrawalDescription  = "Withdrawal"
	DefaultTransferDescription    = "Transfer"
	OpeningDepositDescription     = "Opening deposit"
)

// Transaction is an immutable record of one completed balance movement.
// The zero value is not meaningful; records are produced by Account mutators.
type Transaction struct {
	description   string
	amount        decimal.Decimal
	kind          TransactionKind
	timestamp     time.Time
	counterparty  AccountID
	correlationID uuid.UUID
}

// NewTransaction builds a transaction record. The amount is stored as a
// magnitude; the kind carries the direction.
func NewTransaction(description string, amount decimal.Decimal, kind TransactionKind, at time.Time) Transaction {
	if isBlank(description) {
		description = DefaultTransactionDescription
	}
	return Transaction{
		description: description,
		amount:      amount.Abs(),
		kind:        kind,
		timestamp:   at,
	}
}

func (t Transaction) Description() string     { return t.description }
func (t Transaction) Amount() decimal.Decimal { return t.amount }
func (t Transaction) Kind() TransactionKind   { return t.kind }
func (t Transaction) Timestamp() time.Time    { return t.timestamp }

// Counterparty is the other account of a transfer leg, zero otherwise.
func (t Transaction) Counterparty() AccountID { return t.counterparty }

// CorrelationID links the two legs of one transfer. It is uuid.Nil for
// deposits and withdrawals.
func (t Transaction) CorrelationID() uuid.UUID { return t.correlationID }

// Transfer is the receipt of a completed transfer between two accounts.
type Transfer struct {
	ID             uuid.UUID       // Shared with the correlation id of both legs
	SourceID       AccountID       // Account debited
	DestinationID  AccountID       // Account credited
	Amount         decimal.Decimal // Amount moved
	Description    string          // Caller supplied description
	IdempotencyKey string          // Optional key; empty when the caller supplied none
	CompletedAt    time.Time       // Timestamp of both legs

	sourceLeg      Transaction
	destinationLeg Transaction
}

// Legs returns the records appended to the source and destination histories.
func (t *Transfer) Legs() (source, destination Transaction) {
	return t.sourceLeg, t.destinationLeg
}

// matches reports whether req asks for the same movement as t.
func (t *Transfer) matches(req TransferRequest) bool {
	return t.SourceID == req.SourceID &&
		t.DestinationID == req.DestinationID &&
		t.Amount.Equal(req.Amount)
}

// TransferRequest carries the inputs of Ledger.Transfer.
type TransferRequest struct {
	SourceID       AccountID
	DestinationID  AccountID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// Statement is a read-only summary of an account for reporting.
type Statement struct {
	AccountID         AccountID
	Owner             string
	Status            AccountStatus
	Balance           decimal.Decimal
	TotalTransactions int
	Recent            []Transaction // Oldest first
	GeneratedAt       time.Time
}
