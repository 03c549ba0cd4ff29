package domain

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	// AccountStatusActive is the only status that allows balance mutations
	AccountStatusActive AccountStatus = "ACTIVE"

	// AccountStatusInactive has no transition operation yet
	AccountStatusInactive AccountStatus = "INACTIVE"

	// AccountStatusBlocked is terminal
	AccountStatusBlocked AccountStatus = "BLOCKED"

	// AccountStatusPending has no transition operation yet
	AccountStatusPending AccountStatus = "PENDING"
)

// statusTransitions lists every legal lifecycle move. Only ACTIVE->BLOCKED is
// driven by an operation (Account.Block); the other entries are reserved for
// lifecycle operations that still need their preconditions specified.
var statusTransitions = map[AccountStatus][]AccountStatus{
	AccountStatusPending:  {AccountStatusActive},
	AccountStatusActive:   {AccountStatusBlocked, AccountStatusInactive},
	AccountStatusInactive: nil,
	AccountStatusBlocked:  nil,
}

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the table allows moving from s to next.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s AccountStatus) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

// AllowsMutation reports whether deposits, withdrawals and transfers are
// accepted in status s.
func (s AccountStatus) AllowsMutation() bool {
	return s == AccountStatusActive
}
