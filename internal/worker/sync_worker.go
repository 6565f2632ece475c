package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wiz-abhi/LedgerBook/internal/amqp"
	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/sheets"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

// SyncWorker mirrors customer ledger state from the store into the
// spreadsheet export. Each customer maps to one row keyed by ID.
type SyncWorker struct {
	store     storage.Store
	writer    sheets.CustomerRowWriter
	deleter   sheets.CustomerRowDeleter
	batchSize int
}

func NewSyncWorker(store storage.Store, writer sheets.CustomerRowWriter, deleter sheets.CustomerRowDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single customer sync message from AMQP.
// A customer deleted between publish and delivery clears the exported row.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.CustomerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"customer_id", msg.CustomerID,
		"version", msg.Version)

	customer, err := w.store.GetCustomer(ctx, msg.CustomerID)
	if errors.Is(err, core.ErrNotFound) {
		return w.clearRow(ctx, msg.CustomerID)
	}
	if err != nil {
		return fmt.Errorf("get customer from storage: %w", err)
	}

	if customer.Version > msg.Version {
		// The store moved past this message; the newer message (or the
		// pending sweep) carries the row we want.
		slog.InfoContext(ctx, "Skipping stale sync message",
			"customer_id", msg.CustomerID,
			"message_version", msg.Version,
			"store_version", customer.Version)
		return nil
	}

	return w.syncCustomerRow(ctx, customer)
}

// ProcessPendingCustomers exports any customers still marked pending.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingCustomers(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains pending customers at worker startup, recovering
// from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingSyncCustomers(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending customers for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending customers found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending customers on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		if err := w.syncPendingCustomer(ctx, p); err != nil {
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync check complete",
		"success", successCount,
		"errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("startup sync check: %d of %d customers failed", errorCount, len(pending))
	}
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.store.PendingSyncCustomers(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending customers: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending customers", "count", len(pending))

	for _, p := range pending {
		if err := w.syncPendingCustomer(ctx, p); err != nil {
			continue
		}
	}

	return nil
}

func (w *SyncWorker) syncPendingCustomer(ctx context.Context, p storage.PendingSyncCustomer) error {
	customer, err := w.store.GetCustomer(ctx, p.ID)
	if errors.Is(err, core.ErrNotFound) {
		return w.clearRow(ctx, p.ID)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get pending customer",
			"customer_id", p.ID, "error", err)
		if markErr := w.store.MarkCustomerSyncError(ctx, p.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"customer_id", p.ID, "error", markErr)
		}
		return err
	}

	return w.syncCustomerRow(ctx, customer)
}

func (w *SyncWorker) syncCustomerRow(ctx context.Context, customer core.Customer) error {
	ref, err := w.writer.UpsertCustomerRow(ctx, customer)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export customer row",
			"customer_id", customer.ID, "error", err)
		if markErr := w.store.MarkCustomerSyncError(ctx, customer.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"customer_id", customer.ID, "error", markErr)
		}
		return fmt.Errorf("export customer row: %w", err)
	}

	// Guarded by the version the row was exported at: a concurrent write
	// leaves the customer pending and the next sweep re-exports it.
	if err := w.store.MarkCustomerSynced(ctx, customer.ID, customer.Version); err != nil {
		return fmt.Errorf("mark customer synced: %w", err)
	}

	slog.InfoContext(ctx, "Customer row exported",
		"customer_id", customer.ID,
		"version", customer.Version,
		"sheets_ref", ref)

	return nil
}

func (w *SyncWorker) clearRow(ctx context.Context, customerID string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No row deleter configured, skipping row removal",
			"customer_id", customerID)
		return nil
	}
	if err := w.deleter.DeleteCustomerRow(ctx, customerID); err != nil {
		return fmt.Errorf("delete customer row: %w", err)
	}
	slog.InfoContext(ctx, "Customer row removed from export", "customer_id", customerID)
	return nil
}
