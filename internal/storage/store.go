// Package storage defines the persistence port for the customer ledger and
// shared row types. Concrete backends live in the sqlite and memory
// subpackages.
package storage

import (
	"context"

	"github.com/wiz-abhi/LedgerBook/internal/core"
)

// SortKey selects the ordering of ListCustomers. Keys map to fixed ORDER BY
// clauses; anything else falls back to SortByName.
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByVillage SortKey = "village"
	SortByDues    SortKey = "dues"
)

// ParseSortKey normalizes a user-supplied sort parameter.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByVillage:
		return SortByVillage
	case SortByDues:
		return SortByDues
	default:
		return SortByName
	}
}

// CustomerUpdate carries the mutable profile fields of a customer. Nil
// means "leave unchanged". Dues are never updated through here; only the
// ledger operations touch the balance.
type CustomerUpdate struct {
	Name    *string
	Village *string
	Contact *string
}

// TransactionUpdate carries the new signed amount, type and description for
// an edited transaction.
type TransactionUpdate struct {
	Amount      core.Money
	Type        core.TransactionType
	Description string
}

// PendingSyncCustomer is the minimal record the sync worker needs to pick
// up a customer whose spreadsheet row is stale.
type PendingSyncCustomer struct {
	ID      string
	Version int64
}

// Store is the persistence boundary for customers and their transaction
// log. The three ledger operations are atomic: the transaction write and
// the balance update either both happen or neither does, and a concurrent
// balance mutation surfaces as core.ErrConflict.
type Store interface {
	CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error)
	GetCustomer(ctx context.Context, id string) (core.Customer, error)
	UpdateCustomer(ctx context.Context, id string, upd CustomerUpdate) error
	// DeleteCustomer removes the customer and cascades to its transactions.
	DeleteCustomer(ctx context.Context, id string) error
	ListCustomers(ctx context.Context, sort SortKey) ([]core.Customer, error)
	// Villages returns the distinct village names across all customers.
	Villages(ctx context.Context) ([]string, error)

	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	// ListTransactions returns a customer's transactions, newest first.
	ListTransactions(ctx context.Context, customerID string) ([]core.Transaction, error)
	RecentTransactions(ctx context.Context, limit int) ([]core.RecentTransaction, error)

	// ApplyTransaction records t and moves the owning customer's balance by
	// t.Amount in one atomic step.
	ApplyTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// EditTransaction replaces a transaction's amount/type/description and
	// applies the delta between old and new effect to the balance.
	EditTransaction(ctx context.Context, id string, upd TransactionUpdate) (core.Transaction, error)
	// RemoveTransaction deletes a transaction and reverses its effect.
	RemoveTransaction(ctx context.Context, id string) error

	PendingSyncCustomers(ctx context.Context, limit int) ([]PendingSyncCustomer, error)
	MarkCustomerSynced(ctx context.Context, id string, version int64) error
	MarkCustomerSyncError(ctx context.Context, id string) error

	Close() error
}
