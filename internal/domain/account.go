package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Clock returns the current time. Accounts use it to stamp transactions.
type Clock func() time.Time

// Account is a named, status-gated holder of a non-negative balance with an
// append-only transaction history. All mutations go through its methods, which
// validate first and mutate only when every precondition holds.
type Account struct {
	mu sync.RWMutex

	id        AccountID
	owner     string
	status    AccountStatus
	balance   decimal.Decimal
	history   []Transaction
	createdAt time.Time
	clock     Clock
}

// NewAccount creates an ACTIVE account. A positive opening balance is recorded
// as an opening deposit. How a blank owner or a negative opening balance is
// treated depends on policy.
func NewAccount(id AccountID, owner string, opening decimal.Decimal, policy ConstructionPolicy, clock Clock) (*Account, error) {
	if id <= 0 {
		return nil, ErrInvalidAccountID
	}
	if clock == nil {
		clock = time.Now
	}

	name, err := normalizeOwner(owner, policy)
	if err != nil {
		return nil, err
	}
	balance, err := normalizeOpeningBalance(opening, policy)
	if err != nil {
		return nil, err
	}

	now := clock()
	a := &Account{
		id:        id,
		owner:     name,
		status:    AccountStatusActive,
		balance:   balance,
		createdAt: now,
		clock:     clock,
	}
	if balance.IsPositive() {
		a.history = append(a.history, NewTransaction(OpeningDepositDescription, balance, TransactionKindDeposit, now))
	}
	return a, nil
}

func (a *Account) ID() AccountID        { return a.id }
func (a *Account) Owner() string        { return a.owner }
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// Status returns the current lifecycle status.
func (a *Account) Status() AccountStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

// History returns a copy of the full history, oldest first.
func (a *Account) History() []Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Transaction, len(a.history))
	copy(out, a.history)
	return out
}

// HistoryLen returns the number of recorded transactions.
func (a *Account) HistoryLen() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.history)
}

// Recent returns up to n of the latest transactions, oldest first.
func (a *Account) Recent(n int) []Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if n <= 0 || n > len(a.history) {
		n = len(a.history)
	}
	out := make([]Transaction, n)
	copy(out, a.history[len(a.history)-n:])
	return out
}

// Deposit credits amount to the account.
func (a *Account) Deposit(amount decimal.Decimal, description string) (Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return Transaction{}, err
	}
	if isBlank(description) {
		description = DefaultDepositDescription
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.status.AllowsMutation() {
		return Transaction{}, ErrAccountNotActive
	}

	tx := NewTransaction(description, amount, TransactionKindDeposit, a.stampLocked())
	a.balance = a.balance.Add(amount)
	a.history = append(a.history, tx)
	return tx, nil
}

// Withdraw debits amount from the account. Withdrawing the whole balance is
// allowed and leaves it at zero.
func (a *Account) Withdraw(amount decimal.Decimal, description string) (Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return Transaction{}, err
	}
	if isBlank(description) {
		description = DefaultWithdrawalDescription
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.status.AllowsMutation() {
		return Transaction{}, ErrAccountNotActive
	}
	if !a.hasSufficientFundsLocked(amount) {
		return Transaction{}, ErrInsufficientFunds
	}

	tx := NewTransaction(description, amount, TransactionKindWithdrawal, a.stampLocked())
	a.balance = a.balance.Sub(amount)
	a.history = append(a.history, tx)
	return tx, nil
}

// Block moves the account to BLOCKED. There is no way back.
func (a *Account) Block() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = AccountStatusBlocked
}

// setStatus assigns a status without going through an operation. INACTIVE and
// PENDING are only reachable this way.
func (a *Account) setStatus(s AccountStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

func (a *Account) hasSufficientFundsLocked(amount decimal.Decimal) bool {
	return a.balance.GreaterThanOrEqual(amount)
}

// stampLocked returns the timestamp for the next record, never earlier than
// the last one already in the history.
func (a *Account) stampLocked() time.Time {
	return a.clampLocked(a.clock())
}

func (a *Account) clampLocked(now time.Time) time.Time {
	if n := len(a.history); n > 0 {
		if last := a.history[n-1].timestamp; now.Before(last) {
			return last
		}
	}
	return now
}
