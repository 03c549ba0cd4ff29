package grpc

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// LedgerServiceServer implements the LedgerService gRPC service.
type LedgerServiceServer struct {
	ledger *domain.Ledger
}

// NewLedgerServiceServer creates a new LedgerServiceServer.
func NewLedgerServiceServer(ledger *domain.Ledger) *LedgerServiceServer {
	return &LedgerServiceServer{
		ledger: ledger,
	}
}

// NewServer returns a gRPC server exposing ledger with call logging. Only the
// ledger service is registered.
func NewServer(ledger *domain.Ledger, logger *zap.Logger) *grpc.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLoggingInterceptor(logger)))
	RegisterLedgerServiceServer(srv, NewLedgerServiceServer(ledger))
	return srv
}

// OpenAccount creates an account for owner with an optional opening balance.
func (s *LedgerServiceServer) OpenAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opening, err := domain.ParseOpeningBalance(stringField(req, "opening_balance"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid opening_balance: %v", err)
	}

	account, err := s.ledger.OpenAccount(ctx, stringField(req, "owner"), opening)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	return newStruct(accountFields(account))
}

// GetAccount retrieves account information including balance.
func (s *LedgerServiceServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireAccountID(req, "account_id")
	if err != nil {
		return nil, err
	}

	account, err := s.ledger.Account(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	fields := accountFields(account)
	fields["timestamp"] = formatTimestamp(time.Now())
	return newStruct(fields)
}

// Deposit credits an account.
func (s *LedgerServiceServer) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.applyMovement(ctx, req, s.ledger.Deposit)
}

// Withdraw debits an account.
func (s *LedgerServiceServer) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.applyMovement(ctx, req, s.ledger.Withdraw)
}

type movement func(context.Context, domain.AccountID, decimal.Decimal, string) (domain.Transaction, error)

func (s *LedgerServiceServer) applyMovement(ctx context.Context, req *structpb.Struct, apply movement) (*structpb.Struct, error) {
	id, err := requireAccountID(req, "account_id")
	if err != nil {
		return nil, err
	}
	amount, err := requireAmount(req)
	if err != nil {
		return nil, err
	}

	tx, err := apply(ctx, id, amount, stringField(req, "description"))
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	balance, err := s.ledger.Balance(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	return newStruct(map[string]interface{}{
		"account_id":  id.String(),
		"transaction": transactionFields(tx),
		"balance":     domain.FormatAmount(balance),
	})
}

// Transfer executes a money transfer between two accounts atomically.
// This operation is idempotent when called with the same idempotency key.
func (s *LedgerServiceServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sourceID, err := requireAccountID(req, "source_id")
	if err != nil {
		return nil, err
	}
	destinationID, err := requireAccountID(req, "destination_id")
	if err != nil {
		return nil, err
	}
	amount, err := requireAmount(req)
	if err != nil {
		return nil, err
	}

	transfer, err := s.ledger.Transfer(ctx, domain.TransferRequest{
		SourceID:       sourceID,
		DestinationID:  destinationID,
		Amount:         amount,
		Description:    stringField(req, "description"),
		IdempotencyKey: stringField(req, "idempotency_key"),
	})
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	return newStruct(transferFields(transfer))
}

// GetTransfer returns a completed transfer receipt.
func (s *LedgerServiceServer) GetTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := stringField(req, "operation_id")
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "operation_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid operation_id: %v", err)
	}

	transfer, err := s.ledger.TransferByID(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}
	return newStruct(transferFields(transfer))
}

// BlockAccount moves an account to BLOCKED.
func (s *LedgerServiceServer) BlockAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireAccountID(req, "account_id")
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Block(ctx, id); err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	account, err := s.ledger.Account(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}
	return newStruct(accountFields(account))
}

// ListTransactions returns the full history of an account, oldest first.
func (s *LedgerServiceServer) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireAccountID(req, "account_id")
	if err != nil {
		return nil, err
	}

	history, err := s.ledger.History(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	return newStruct(map[string]interface{}{
		"account_id":   id.String(),
		"transactions": transactionList(history),
	})
}

// GetStatement returns an account summary with its most recent transactions.
func (s *LedgerServiceServer) GetStatement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireAccountID(req, "account_id")
	if err != nil {
		return nil, err
	}

	// An absent limit uses the ledger default
	limit := 0
	if v, ok := req.GetFields()["limit"]; ok {
		n := v.GetNumberValue()
		if n < 1 || n != math.Trunc(n) {
			return nil, status.Error(codes.InvalidArgument, "limit must be a positive integer")
		}
		limit = int(n)
	}

	st, err := s.ledger.Statement(ctx, id, limit)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	return newStruct(map[string]interface{}{
		"account_id":         st.AccountID.String(),
		"owner":              st.Owner,
		"status":             string(st.Status),
		"balance":            domain.FormatAmount(st.Balance),
		"total_transactions": st.TotalTransactions,
		"transactions":       transactionList(st.Recent),
		"timestamp":          formatTimestamp(st.GeneratedAt),
	})
}

// mapDomainErrorToGRPC maps domain errors to gRPC status codes.
func mapDomainErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	// Map specific domain errors to gRPC codes
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return status.Error(codes.NotFound, "account not found")
	case errors.Is(err, domain.ErrTransferNotFound):
		return status.Error(codes.NotFound, "transfer not found")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return status.Error(codes.FailedPrecondition, "insufficient funds")
	case errors.Is(err, domain.ErrDestinationNotActive):
		return status.Error(codes.FailedPrecondition, "destination account is not active")
	case errors.Is(err, domain.ErrAccountNotActive):
		return status.Error(codes.FailedPrecondition, "account is not active")
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		return status.Error(codes.AlreadyExists, "idempotency key already used for a different transfer")
	case errors.Is(err, domain.ErrInvalidAmount):
		return status.Errorf(codes.InvalidArgument, "invalid amount: %v", err)
	case errors.Is(err, domain.ErrSameAccount):
		return status.Error(codes.InvalidArgument, "source and destination must be different")
	case errors.Is(err, domain.ErrInvalidOwner):
		return status.Error(codes.InvalidArgument, "owner is required")
	case errors.Is(err, domain.ErrNegativeOpeningBalance):
		return status.Error(codes.InvalidArgument, "opening balance must not be negative")
	case errors.Is(err, domain.ErrInvalidAccountID):
		return status.Error(codes.InvalidArgument, "invalid account id")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		// Generic internal error
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

func requireAccountID(req *structpb.Struct, field string) (domain.AccountID, error) {
	raw := stringField(req, field)
	if raw == "" {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	id, err := domain.ParseAccountID(raw)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return id, nil
}

func requireAmount(req *structpb.Struct) (decimal.Decimal, error) {
	raw := stringField(req, "amount")
	if raw == "" {
		return decimal.Zero, status.Error(codes.InvalidArgument, "amount is required")
	}
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid amount: %v", err)
	}
	return amount, nil
}

// stringField reads a string field. Numbers are accepted for ids and amounts
// sent by clients that don't quote them.
func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func accountFields(a *domain.Account) map[string]interface{} {
	return map[string]interface{}{
		"account_id":        a.ID().String(),
		"owner":             a.Owner(),
		"status":            string(a.Status()),
		"balance":           domain.FormatAmount(a.Balance()),
		"transaction_count": a.HistoryLen(),
		"created_at":        formatTimestamp(a.CreatedAt()),
	}
}

func transactionFields(tx domain.Transaction) map[string]interface{} {
	fields := map[string]interface{}{
		"kind":        string(tx.Kind()),
		"amount":      domain.FormatAmount(tx.Amount()),
		"description": tx.Description(),
		"timestamp":   formatTimestamp(tx.Timestamp()),
	}
	if tx.Counterparty() != 0 {
		fields["counterparty_id"] = tx.Counterparty().String()
	}
	if tx.CorrelationID() != uuid.Nil {
		fields["correlation_id"] = tx.CorrelationID().String()
	}
	return fields
}

func transactionList(history []domain.Transaction) []interface{} {
	out := make([]interface{}, 0, len(history))
	for _, tx := range history {
		out = append(out, transactionFields(tx))
	}
	return out
}

func transferFields(t *domain.Transfer) map[string]interface{} {
	fields := map[string]interface{}{
		"operation_id":   t.ID.String(),
		"status":         "SUCCESS",
		"source_id":      t.SourceID.String(),
		"destination_id": t.DestinationID.String(),
		"amount":         domain.FormatAmount(t.Amount),
		"description":    t.Description,
		"timestamp":      formatTimestamp(t.CompletedAt),
	}
	if t.IdempotencyKey != "" {
		fields["idempotency_key"] = t.IdempotencyKey
	}
	return fields
}

// formatTimestamp formats a time.Time to ISO 8601 format.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
