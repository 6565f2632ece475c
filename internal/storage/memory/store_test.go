package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

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
	s := New()
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
	if c.Village != "Khargone" {
		t.Fatalf("village should be unchanged: %q", c.Village)
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

func TestDeleteCustomerCascades(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedCustomer(t, s, "c1", "Ramesh", "Khargone")
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1", Amount: core.Money{Paise: 100}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := s.DeleteCustomer(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transaction should be gone, got %v", err)
	}
}

func TestLedgerScenario(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedCustomer(t, s, "c1", "Ramesh", "Khargone")

	// DEBIT 200 -> dues 200
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1",
		Amount: core.SignedAmount(core.Debit, core.Money{Paise: 20000}), Type: core.Debit,
	}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != 20000 {
		t.Fatalf("after debit 200: %d", got)
	}

	// CREDIT 50 -> dues 150
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t2", CustomerID: "c1",
		Amount: core.SignedAmount(core.Credit, core.Money{Paise: 5000}), Type: core.Credit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != 15000 {
		t.Fatalf("after credit 50: %d", got)
	}

	// delete the credit -> dues back to 200
	if err := s.RemoveTransaction(ctx, "t2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != 20000 {
		t.Fatalf("after delete credit: %d", got)
	}
}

func TestEditTransactionAppliesDelta(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedCustomer(t, s, "c1", "Ramesh", "Khargone")
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1",
		Amount: core.Money{Paise: 10000}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// DEBIT 100 -> CREDIT 50 moves dues by -150
	if _, err := s.EditTransaction(ctx, "t1", storage.TransactionUpdate{
		Amount:      core.Money{Paise: -5000},
		Type:        core.Credit,
		Description: "payment",
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := duesOf(t, s, "c1"); got != -5000 {
		t.Fatalf("after edit: %d, want -5000", got)
	}

	got, err := s.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Type != core.Credit || got.Amount.Paise != -5000 || got.Description != "payment" {
		t.Fatalf("transaction not updated: %+v", got)
	}
}

func TestInvariantDuesEqualsSum(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedCustomer(t, s, "c1", "Ramesh", "Khargone")
	amounts := []int64{20000, -5000, 300, -150, 9900}
	for i, a := range amounts {
		typ := core.Debit
		if a < 0 {
			typ = core.Credit
		}
		if _, err := s.ApplyTransaction(ctx, core.Transaction{
			ID: string(rune('a' + i)), CustomerID: "c1",
			Amount: core.Money{Paise: a}, Type: typ,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	txns, err := s.ListTransactions(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var sum int64
	for _, txn := range txns {
		sum += txn.Amount.Paise
	}
	if got := duesOf(t, s, "c1"); got != sum {
		t.Fatalf("dues %d != transaction sum %d", got, sum)
	}
}

func TestListCustomersSorting(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedCustomer(t, s, "c1", "bhim", "Sanawad")
	seedCustomer(t, s, "c2", "Asha", "khargone")
	seedCustomer(t, s, "c3", "Chetan", "Barwaha")
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c2", Amount: core.Money{Paise: 500}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	byName, _ := s.ListCustomers(ctx, storage.SortByName)
	if byName[0].Name != "Asha" || byName[1].Name != "bhim" {
		t.Fatalf("sort by name is case-sensitive: %v, %v", byName[0].Name, byName[1].Name)
	}

	byVillage, _ := s.ListCustomers(ctx, storage.SortByVillage)
	if byVillage[0].Village != "Barwaha" {
		t.Fatalf("sort by village: got %q first", byVillage[0].Village)
	}

	byDues, _ := s.ListCustomers(ctx, storage.SortByDues)
	if byDues[0].ID != "c2" {
		t.Fatalf("sort by dues: got %q first", byDues[0].ID)
	}
}

func TestVillagesDistinct(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedCustomer(t, s, "c1", "A", "Khargone")
	seedCustomer(t, s, "c2", "B", "khargone")
	seedCustomer(t, s, "c3", "C", "Sanawad")

	villages, err := s.Villages(ctx)
	if err != nil {
		t.Fatalf("villages: %v", err)
	}
	if len(villages) != 2 {
		t.Fatalf("expected 2 distinct villages, got %v", villages)
	}
}

func TestPendingSyncTracking(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := seedCustomer(t, s, "c1", "Ramesh", "Khargone")

	pending, _ := s.PendingSyncCustomers(ctx, 10)
	if len(pending) != 1 || pending[0].ID != "c1" {
		t.Fatalf("new customer should be pending: %v", pending)
	}

	if err := s.MarkCustomerSynced(ctx, "c1", c.Version); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, _ = s.PendingSyncCustomers(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending after sync, got %v", pending)
	}

	// A ledger mutation bumps the version and makes the row pending again
	if _, err := s.ApplyTransaction(ctx, core.Transaction{
		ID: "t1", CustomerID: "c1", Amount: core.Money{Paise: 100}, Type: core.Debit,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pending, _ = s.PendingSyncCustomers(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected pending after mutation, got %v", pending)
	}

	// Marking with a stale version must not clear the pending state
	if err := s.MarkCustomerSynced(ctx, "c1", c.Version); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, _ = s.PendingSyncCustomers(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("stale version mark should keep row pending, got %v", pending)
	}
}
