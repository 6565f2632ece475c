package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCustomer(t *testing.T, s *Store, id, name, village string) core.Customer {
	t.Helper()
	c, err := s.CreateCustomer(context.Background(), core.Customer{
		ID:      id,
		Name:    name,
		Village: village,
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func duesOf(t *testing.T, s *Store, id string) int64 {
	t.Helper()
	c, err := s.GetCustomer(context.Background(), id)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	return c.Dues.Paise
}

func TestCustomerLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCustomer(t, s, "c1", "Ramesh", "Khargone")

	name := "Ramesh Kumar"
	if err := s.UpdateCustomer(ctx, "c1", storage.CustomerUpdate{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	c, err := s.GetCustomer(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Name != "Ramesh Kumar" {
		t.Fatalf("name not updated: %q", c.Name)
	}
	if c.Version != 2 {
		t.Fatalf("version = %d, want 2 after profile edit", c.Version)
	}

	if err := s.DeleteCustomer(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetCustomer(ctx, "c1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCustomer(ctx, "c1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("double delete expected ErrNotFound, got %v", err)
	}
}

func TestLedgerOperationsMoveDues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCustomer(t, s, "c1", "Ramesh", "Khargone")

	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1", Amount: core.Money{Paise: 20000}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply debit: %v", err)
	}
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t2", CustomerID: "c1", Amount: core.Money{Paise: -5000}, Type: core.Credit,
	}); err != nil {
		t.Fatalf("apply credit: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != 15000 {
		t.Fatalf("dues = %d, want 15000", got)
	}

	if _, err := s.EditTransaction(ctx, "t1", storage.TransactionUpdate{
		Amount: core.Money{Paise: 10000}, Type: core.Debit, Description: "seed bags",
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != 5000 {
		t.Fatalf("dues after edit = %d, want 5000", got)
	}

	if err := s.RemoveTransaction(ctx, "t2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != 10000 {
		t.Fatalf("dues after remove = %d, want 10000", got)
	}
}

func TestUpdateDuesStaleVersionConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stale := seedCustomer(t, s, "c1", "Ramesh", "Khargone")

	// Another writer moves the balance, bumping the version past stale's.
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1", Amount: core.Money{Paise: 100}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if err := s.updateDues(ctx, tx, stale, core.Money{Paise: 999}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("stale write expected ErrConflict, got %v", err)
	}

	tx.Rollback()
	if got := duesOf(t, s, "c1"); got != 100 {
		t.Fatalf("dues = %d, the stale write must not land", got)
	}
}

func TestConcurrentApplyTransactionsLoseNoUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCustomer(t, s, "c1", "Ramesh", "Khargone")

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.ApplyTransaction(ctx, core.Transaction{
				ID:         fmt.Sprintf("t%d", n),
				CustomerID: "c1",
				Amount:     core.Money{Paise: 100},
				Type:       core.Debit,
			})
			if errors.Is(err, core.ErrConflict) {
				return
			}
			if err != nil {
				t.Errorf("concurrent apply: %v", err)
				return
			}
			mu.Lock()
			applied++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if applied == 0 {
		t.Fatal("no writer got through")
	}
	if got := duesOf(t, s, "c1"); got != int64(applied)*100 {
		t.Fatalf("dues = %d, want %d for %d applied writers", got, applied*100, applied)
	}

	txns, err := s.ListTransactions(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != applied {
		t.Fatalf("transactions = %d, want %d", len(txns), applied)
	}
}

func TestLedgerWriteMarksCustomerPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := seedCustomer(t, s, "c1", "Ramesh", "Khargone")
	if err := s.MarkCustomerSynced(ctx, c.ID, c.Version); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err := s.PendingSyncCustomers(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0 after sync", len(pending))
	}

	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1", Amount: core.Money{Paise: 100}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pending, err = s.PendingSyncCustomers(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1 after ledger write", len(pending))
	}

	// A synced mark carrying the old version must not clear the flag.
	if err := s.MarkCustomerSynced(ctx, c.ID, c.Version); err != nil {
		t.Fatalf("mark synced stale: %v", err)
	}
	pending, err = s.PendingSyncCustomers(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("stale synced mark cleared the pending flag")
	}
}
