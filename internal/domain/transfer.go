package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoveFunds transfers amount from src to dst as one unit: either both balances
// change and both legs are recorded, or nothing changes.
//
// Both accounts are locked in ascending id order so that concurrent transfers
// in opposite directions between the same pair cannot deadlock.
func MoveFunds(src, dst *Account, amount decimal.Decimal, description string, correlationID uuid.UUID, now time.Time) (*Transfer, error) {
	if src == nil || dst == nil {
		return nil, ErrAccountNotFound
	}
	if src == dst || src.id == dst.id {
		return nil, ErrSameAccount
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if isBlank(description) {
		description = DefaultTransferDescription
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	first, second := src, dst
	if dst.id < src.id {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if !src.status.AllowsMutation() {
		return nil, ErrAccountNotActive
	}
	if !dst.status.AllowsMutation() {
		return nil, ErrDestinationNotActive
	}
	if !src.hasSufficientFundsLocked(amount) {
		return nil, ErrInsufficientFunds
	}

	out := Transaction{
		description:   fmt.Sprintf("%s to %s", description, dst.id),
		amount:        amount,
		kind:          TransactionKindTransfer,
		timestamp:     src.clampLocked(now),
		counterparty:  dst.id,
		correlationID: correlationID,
	}
	in := Transaction{
		description:   fmt.Sprintf("%s from %s", description, src.id),
		amount:        amount,
		kind:          TransactionKindDeposit,
		timestamp:     dst.clampLocked(now),
		counterparty:  src.id,
		correlationID: correlationID,
	}

	src.balance = src.balance.Sub(amount)
	src.history = append(src.history, out)
	dst.balance = dst.balance.Add(amount)
	dst.history = append(dst.history, in)

	return &Transfer{
		ID:            correlationID,
		SourceID:      src.id,
		DestinationID: dst.id,
		Amount:        amount,
		Description:   description,
		CompletedAt:   out.timestamp,

		sourceLeg:      out,
		destinationLeg: in,
	}, nil
}
