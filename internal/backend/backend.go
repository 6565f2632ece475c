// Package backend wires a storage layer and an optional sync publisher
// from configuration, so the server and worker binaries share one setup path.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/wiz-abhi/LedgerBook/internal/amqp"
	"github.com/wiz-abhi/LedgerBook/internal/config"
	"github.com/wiz-abhi/LedgerBook/internal/services"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
	"github.com/wiz-abhi/LedgerBook/internal/storage/memory"
	"github.com/wiz-abhi/LedgerBook/internal/storage/sqlite"
)

// CleanupFunc releases backend resources. Safe to call once at shutdown.
type CleanupFunc func() error

// Result bundles a constructed backend. Publisher is nil when no AMQP
// client is configured or the broker is unreachable at startup.
type Result struct {
	Store     storage.Store
	Publisher services.CustomerEventPublisher
	AMQP      *amqp.Client
	Cleanup   CleanupFunc
}

// Build constructs the storage and messaging stack named by cfg.DataBackend.
func Build(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case "memory":
		return buildMemory(logger), nil
	case "sqlite":
		return buildSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

func buildMemory(logger *slog.Logger) *Result {
	logger.Info("Initialized in-memory backend")
	return &Result{
		Store:   memory.New(),
		Cleanup: func() error { return nil },
	}
}

func buildSQLite(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	store, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
	}

	// AMQP is optional: without it the worker's periodic sweep still
	// picks up pending customers.
	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync events", "error", err)
			client = nil
		} else {
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	logger.Info("Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", client != nil)

	result := &Result{
		Store: store,
		AMQP:  client,
		Cleanup: func() error {
			if client != nil {
				if err := client.Close(); err != nil {
					logger.Warn("AMQP close error", "error", err)
				}
			}
			return store.Close()
		},
	}
	if client != nil {
		result.Publisher = client
	}
	return result, nil
}
