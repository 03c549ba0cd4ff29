package domain

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMoveFunds_Success(t *testing.T) {
	src := mustAccount(t, 1000, "Alice", "1000")
	dst := mustAccount(t, 1001, "Bob", "500")
	correlationID := uuid.New()
	now := time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC)

	transfer, err := MoveFunds(src, dst, decimal.NewFromInt(300), "Rent", correlationID, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !src.Balance().Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected source balance 700, got %s", src.Balance())
	}
	if !dst.Balance().Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected destination balance 800, got %s", dst.Balance())
	}
	if transfer.ID != correlationID {
		t.Errorf("expected transfer id %s, got %s", correlationID, transfer.ID)
	}

	out := src.History()[src.HistoryLen()-1]
	in := dst.History()[dst.HistoryLen()-1]

	if out.Kind() != TransactionKindTransfer {
		t.Errorf("expected outgoing kind TRANSFER, got %s", out.Kind())
	}
	if in.Kind() != TransactionKindDeposit {
		t.Errorf("expected incoming kind DEPOSIT, got %s", in.Kind())
	}
	if out.Description() != "Rent to 1001" {
		t.Errorf("unexpected outgoing description %q", out.Description())
	}
	if in.Description() != "Rent from 1000" {
		t.Errorf("unexpected incoming description %q", in.Description())
	}
	if out.Counterparty() != dst.ID() || in.Counterparty() != src.ID() {
		t.Errorf("unexpected counterparties %s/%s", out.Counterparty(), in.Counterparty())
	}
	if out.CorrelationID() != correlationID || in.CorrelationID() != correlationID {
		t.Error("both legs must carry the transfer correlation id")
	}
	if !out.Amount().Equal(in.Amount()) {
		t.Errorf("leg amounts differ: %s vs %s", out.Amount(), in.Amount())
	}
	sourceLeg, destinationLeg := transfer.Legs()
	if sourceLeg != out || destinationLeg != in {
		t.Error("receipt legs must be the records appended to the histories")
	}
}

func TestMoveFunds_DefaultsDescriptionAndCorrelation(t *testing.T) {
	src := mustAccount(t, 1000, "Alice", "100")
	dst := mustAccount(t, 1001, "Bob", "0")

	transfer, err := MoveFunds(src, dst, decimal.NewFromInt(10), " ", uuid.Nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfer.ID == uuid.Nil {
		t.Error("expected a generated transfer id")
	}
	if transfer.Description != DefaultTransferDescription {
		t.Errorf("expected %q, got %q", DefaultTransferDescription, transfer.Description)
	}
}

func TestMoveFunds_Failures(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		srcStatus AccountStatus
		dstStatus AccountStatus
		wantErr   error
	}{
		{"insufficient funds", "1500", AccountStatusActive, AccountStatusActive, ErrInsufficientFunds},
		{"zero amount", "0", AccountStatusActive, AccountStatusActive, ErrInvalidAmount},
		{"negative amount", "-5", AccountStatusActive, AccountStatusActive, ErrInvalidAmount},
		{"blocked source", "10", AccountStatusBlocked, AccountStatusActive, ErrAccountNotActive},
		{"blocked destination", "10", AccountStatusActive, AccountStatusBlocked, ErrDestinationNotActive},
		{"inactive destination", "10", AccountStatusActive, AccountStatusInactive, ErrDestinationNotActive},
		{"pending source", "10", AccountStatusPending, AccountStatusActive, ErrAccountNotActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := mustAccount(t, 1000, "Alice", "1000")
			dst := mustAccount(t, 1001, "Bob", "500")
			src.setStatus(tt.srcStatus)
			dst.setStatus(tt.dstStatus)

			_, err := MoveFunds(src, dst, decimal.RequireFromString(tt.amount), "", uuid.Nil, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if !src.Balance().Equal(decimal.NewFromInt(1000)) || !dst.Balance().Equal(decimal.NewFromInt(500)) {
				t.Errorf("failed transfer changed balances: %s/%s", src.Balance(), dst.Balance())
			}
			if src.HistoryLen() != 1 || dst.HistoryLen() != 1 {
				t.Errorf("failed transfer recorded legs: %d/%d", src.HistoryLen(), dst.HistoryLen())
			}
		})
	}
}

func TestMoveFunds_SameAccount(t *testing.T) {
	a := mustAccount(t, 1000, "Alice", "100")

	if _, err := MoveFunds(a, a, decimal.NewFromInt(10), "", uuid.Nil, time.Now()); !errors.Is(err, ErrSameAccount) {
		t.Errorf("expected ErrSameAccount, got %v", err)
	}
	if a.HistoryLen() != 1 {
		t.Error("self transfer recorded a transaction")
	}
}

func TestMoveFunds_ConcurrentOppositeDirections(t *testing.T) {
	a := mustAccount(t, 1000, "Alice", "1000")
	b := mustAccount(t, 1001, "Bob", "1000")

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = MoveFunds(a, b, decimal.NewFromInt(3), "", uuid.Nil, time.Now())
		}()
		go func() {
			defer wg.Done()
			_, _ = MoveFunds(b, a, decimal.NewFromInt(2), "", uuid.Nil, time.Now())
		}()
	}
	wg.Wait()

	total := a.Balance().Add(b.Balance())
	if !total.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("money was created or destroyed: total %s", total)
	}
	if a.Balance().IsNegative() || b.Balance().IsNegative() {
		t.Errorf("negative balance: %s/%s", a.Balance(), b.Balance())
	}
	// Every successful transfer records exactly one leg on each side
	if a.HistoryLen() != b.HistoryLen() {
		t.Errorf("unbalanced leg count: %d vs %d", a.HistoryLen(), b.HistoryLen())
	}
}
