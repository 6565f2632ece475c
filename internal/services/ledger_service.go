package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/log"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

// CustomerEventPublisher notifies downstream consumers that a customer's
// ledger state changed and needs re-export. A nil publisher disables
// notifications (memory backend, tests).
type CustomerEventPublisher interface {
	PublishCustomerSync(ctx context.Context, customerID string, version int64) error
}

// LedgerService applies debit/credit entries to customer ledgers. Every
// write goes through the store's atomic operations; on a version conflict
// the amount is recomputed against fresh state and retried once.
type LedgerService struct {
	store     storage.Store
	publisher CustomerEventPublisher
}

func NewLedgerService(store storage.Store, publisher CustomerEventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// CreateTransaction records a new ledger entry. The amount is the entered
// magnitude; the stored signed amount is derived from the transaction type.
func (s *LedgerService) CreateTransaction(ctx context.Context, customerID string, txnType core.TransactionType, amount core.Money, description string) (core.Transaction, error) {
	if description == "" {
		description = core.DefaultDescription
	}

	txn := core.Transaction{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Amount:      core.SignedAmount(txnType, amount),
		Type:        txnType,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err := s.withConflictRetry(ctx, func() error {
		_, err := s.store.ApplyTransaction(ctx, txn)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("apply transaction: %w", err)
	}

	s.notifyCustomerChanged(ctx, customerID)

	slog.InfoContext(ctx, "Transaction recorded",
		log.FieldTransactionID, txn.ID,
		log.FieldCustomerID, customerID,
		log.FieldTxnType, string(txnType),
		log.FieldAmountPaise, txn.Amount.Paise)

	return txn, nil
}

// EditTransaction replaces a transaction's amount, type and description.
// The customer's dues move by the delta between old and new signed amounts.
func (s *LedgerService) EditTransaction(ctx context.Context, transactionID string, txnType core.TransactionType, amount core.Money, description string) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}

	if description == "" {
		description = core.DefaultDescription
	}

	update := storage.TransactionUpdate{
		Amount:      core.SignedAmount(txnType, amount),
		Type:        txnType,
		Description: description,
	}

	check := existing
	check.Amount = update.Amount
	check.Type = update.Type
	check.Description = update.Description
	if err := check.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err = s.withConflictRetry(ctx, func() error {
		_, err := s.store.EditTransaction(ctx, transactionID, update)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("edit transaction: %w", err)
	}

	s.notifyCustomerChanged(ctx, existing.CustomerID)

	slog.InfoContext(ctx, "Transaction updated",
		log.FieldTransactionID, transactionID,
		log.FieldCustomerID, existing.CustomerID,
		log.FieldTxnType, string(txnType),
		log.FieldAmountPaise, update.Amount.Paise)

	return check, nil
}

// DeleteTransaction removes a transaction and reverses its ledger effect.
func (s *LedgerService) DeleteTransaction(ctx context.Context, transactionID string) error {
	existing, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	err = s.withConflictRetry(ctx, func() error {
		return s.store.RemoveTransaction(ctx, transactionID)
	})
	if err != nil {
		return fmt.Errorf("remove transaction: %w", err)
	}

	s.notifyCustomerChanged(ctx, existing.CustomerID)

	slog.InfoContext(ctx, "Transaction removed",
		log.FieldTransactionID, transactionID,
		log.FieldCustomerID, existing.CustomerID)

	return nil
}

// GetTransaction returns a single transaction by ID.
func (s *LedgerService) GetTransaction(ctx context.Context, transactionID string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

// ListTransactions returns a customer's transactions, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, customerID string) ([]core.Transaction, error) {
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return s.store.ListTransactions(ctx, customerID)
}

// withConflictRetry runs op and retries once if another writer bumped the
// customer version between read and write.
func (s *LedgerService) withConflictRetry(ctx context.Context, op func() error) error {
	err := op()
	if errors.Is(err, core.ErrConflict) {
		slog.WarnContext(ctx, "Concurrent ledger update detected, retrying")
		err = op()
	}
	return err
}

func (s *LedgerService) notifyCustomerChanged(ctx context.Context, customerID string) {
	if s.publisher == nil {
		return
	}

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load customer for sync notification",
			log.FieldCustomerID, customerID, log.FieldError, err)
		return
	}

	if err := s.publisher.PublishCustomerSync(ctx, customerID, customer.Version); err != nil {
		// The worker's pending sweep picks these up later.
		slog.ErrorContext(ctx, "Failed to publish customer sync message",
			log.FieldCustomerID, customerID, log.FieldError, err)
	}
}
