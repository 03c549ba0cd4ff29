package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/config"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/events"
	grpcserver "github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/grpc"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/handlers"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/logger"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/store"
)

// publisher is a domain.EventPublisher that owns a connection
type publisher interface {
	domain.EventPublisher
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	// Create event publisher, falling back to a no-op one
	pub := newPublisher(cfg.RabbitMQ, log)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	// Create repositories and the ledger
	ledger := domain.NewLedger(
		store.NewAccountRepository(),
		store.NewTransferRepository(),
		domain.NewIDAllocator(cfg.Ledger.IDBase),
		pub,
		log.Named("ledger"),
		domain.WithConstructionPolicy(cfg.Ledger.ConstructionPolicy),
		domain.WithStatementLimit(cfg.Ledger.StatementLimit),
	)
	log.Info("ledger initialized",
		zap.Stringer("id_base", cfg.Ledger.IDBase),
		zap.String("construction_policy", string(cfg.Ledger.ConstructionPolicy)),
	)

	// Create gRPC server
	grpcServer := grpcserver.NewServer(ledger, log.Named("grpc"))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handlers.NewRouter(handlers.NewHandler(ledger, log.Named("http"))),
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", cfg.GRPCPort, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("gRPC server starting", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("gRPC server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal or a server failure to shut everything down
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown failed", zap.Error(err))
		}
		grpcServer.GracefulStop()
		ledger.WaitForEvents()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("ledger-service stopped")
	return nil
}

func newPublisher(cfg config.RabbitMQConfig, log *zap.Logger) publisher {
	if !cfg.Enabled() {
		log.Info("RABBITMQ_URL not set, event publishing disabled")
		return events.NewNoopPublisher(log.Named("events"))
	}

	pub, err := events.NewRabbitMQPublisher(cfg.URL, cfg.Exchange, log.Named("events"))
	if err != nil {
		log.Warn("rabbitmq unavailable, event publishing disabled", zap.Error(err))
		return events.NewNoopPublisher(log.Named("events"))
	}
	return pub
}
