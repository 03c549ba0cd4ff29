package events

import (
	"context"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
	"go.uber.org/zap"
)

// NoopPublisher drops every event. It is used when no broker is configured or
// the broker was unreachable at startup.
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher creates a NoopPublisher that logs skipped events at debug level.
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) PublishTransactionRecorded(ctx context.Context, accountID domain.AccountID, tx domain.Transaction) error {
	p.logger.Debug("publish skipped",
		zap.String("routing_key", RoutingKeyTransactionRecorded),
		zap.Stringer("account_id", accountID),
	)
	return nil
}

func (p *NoopPublisher) PublishTransferCompleted(ctx context.Context, transfer *domain.Transfer) error {
	p.logger.Debug("publish skipped",
		zap.String("routing_key", RoutingKeyTransferCompleted),
		zap.Stringer("transfer_id", transfer.ID),
	)
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
