package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
	"github.com/wiz-abhi/LedgerBook/internal/storage/memory"
)

type capturedEvent struct {
	customerID string
	version    int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
	fail   bool
}

func (p *fakePublisher) PublishCustomerSync(ctx context.Context, customerID string, version int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, capturedEvent{customerID: customerID, version: version})
	return nil
}

func newTestServices(t *testing.T) (*CustomerService, *LedgerService, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	return NewCustomerService(store, pub), NewLedgerService(store, pub), pub
}

func mustCreateCustomer(t *testing.T, svc *CustomerService, name, village string) core.Customer {
	t.Helper()
	customer, err := svc.CreateCustomer(context.Background(), name, village, "")
	if err != nil {
		t.Fatalf("CreateCustomer() error: %v", err)
	}
	return customer
}

func TestCreateTransactionSignConvention(t *testing.T) {
	tests := []struct {
		name      string
		txnType   core.TransactionType
		amount    int64
		wantPaise int64
	}{
		{"debit stays positive", core.Debit, 10000, 10000},
		{"credit is negated", core.Credit, 10000, -10000},
		{"negative input is normalized first", core.Credit, -7500, -7500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customers, ledger, _ := newTestServices(t)
			customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")

			txn, err := ledger.CreateTransaction(context.Background(), customer.ID, tt.txnType, core.Money{Paise: tt.amount}, "")
			if err != nil {
				t.Fatalf("CreateTransaction() error: %v", err)
			}
			if txn.Amount.Paise != tt.wantPaise {
				t.Errorf("stored amount = %d, want %d", txn.Amount.Paise, tt.wantPaise)
			}
			if txn.Description != core.DefaultDescription {
				t.Errorf("description = %q, want default", txn.Description)
			}
		})
	}
}

func TestLedgerLifecycleMovesDues(t *testing.T) {
	customers, ledger, _ := newTestServices(t)
	customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")
	ctx := context.Background()

	// Debit 200 rupees: dues go up.
	txn, err := ledger.CreateTransaction(ctx, customer.ID, core.Debit, core.Money{Paise: 20000}, "seed purchase")
	if err != nil {
		t.Fatalf("CreateTransaction() error: %v", err)
	}
	assertDues(t, customers, customer.ID, 20000)

	// Credit 50 rupees: dues go down.
	credit, err := ledger.CreateTransaction(ctx, customer.ID, core.Credit, core.Money{Paise: 5000}, "part payment")
	if err != nil {
		t.Fatalf("CreateTransaction() error: %v", err)
	}
	assertDues(t, customers, customer.ID, 15000)

	// Edit the debit from 200 down to 150: dues move by the delta.
	if _, err := ledger.EditTransaction(ctx, txn.ID, core.Debit, core.Money{Paise: 15000}, "seed purchase"); err != nil {
		t.Fatalf("EditTransaction() error: %v", err)
	}
	assertDues(t, customers, customer.ID, 10000)

	// Delete the credit: its effect is reversed.
	if err := ledger.DeleteTransaction(ctx, credit.ID); err != nil {
		t.Fatalf("DeleteTransaction() error: %v", err)
	}
	assertDues(t, customers, customer.ID, 15000)

	txns, err := ledger.ListTransactions(ctx, customer.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("transactions remaining = %d, want 1", len(txns))
	}
}

func TestCreateTransactionUnknownCustomer(t *testing.T) {
	_, ledger, _ := newTestServices(t)

	_, err := ledger.CreateTransaction(context.Background(), "no-such-id", core.Debit, core.Money{Paise: 100}, "")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTransactionZeroAmount(t *testing.T) {
	customers, ledger, _ := newTestServices(t)
	customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")

	_, err := ledger.CreateTransaction(context.Background(), customer.ID, core.Debit, core.Money{}, "")
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTransactionPublishesSyncEvent(t *testing.T) {
	customers, ledger, pub := newTestServices(t)
	customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")

	if _, err := ledger.CreateTransaction(context.Background(), customer.ID, core.Debit, core.Money{Paise: 100}, ""); err != nil {
		t.Fatalf("CreateTransaction() error: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(pub.events))
	}
	if pub.events[0].customerID != customer.ID {
		t.Errorf("event customer = %s, want %s", pub.events[0].customerID, customer.ID)
	}
	if pub.events[0].version != 2 {
		t.Errorf("event version = %d, want 2 (bumped by ledger write)", pub.events[0].version)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	customers, ledger, pub := newTestServices(t)
	customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")
	pub.fail = true

	if _, err := ledger.CreateTransaction(context.Background(), customer.ID, core.Debit, core.Money{Paise: 100}, ""); err != nil {
		t.Fatalf("CreateTransaction() should succeed despite publish failure, got: %v", err)
	}
	assertDues(t, customers, customer.ID, 100)
}

func TestConcurrentTransactionsLoseNoUpdates(t *testing.T) {
	customers, ledger, _ := newTestServices(t)
	customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.CreateTransaction(ctx, customer.ID, core.Debit, core.Money{Paise: 100}, "")
			if err != nil {
				t.Errorf("concurrent CreateTransaction() error: %v", err)
			}
		}()
	}
	wg.Wait()

	assertDues(t, customers, customer.ID, writers*100)
}

// conflictOnceStore fails the first ledger write with ErrConflict, the way
// the sqlite backend does when another writer bumped the customer version.
type conflictOnceStore struct {
	storage.Store
	mu        sync.Mutex
	conflicts int
}

func (s *conflictOnceStore) ApplyTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	first := s.conflicts == 0
	if first {
		s.conflicts++
	}
	s.mu.Unlock()
	if first {
		return core.Transaction{}, core.ErrConflict
	}
	return s.Store.ApplyTransaction(ctx, t)
}

func TestCreateTransactionRetriesOnConflict(t *testing.T) {
	store := &conflictOnceStore{Store: memory.New()}
	customers := NewCustomerService(store, nil)
	ledger := NewLedgerService(store, nil)
	customer := mustCreateCustomer(t, customers, "Ravi", "Kothapet")

	if _, err := ledger.CreateTransaction(context.Background(), customer.ID, core.Debit, core.Money{Paise: 100}, ""); err != nil {
		t.Fatalf("CreateTransaction() should succeed after one conflict, got: %v", err)
	}
	if store.conflicts != 1 {
		t.Errorf("conflicts seen = %d, want 1", store.conflicts)
	}
	assertDues(t, customers, customer.ID, 100)
}

func assertDues(t *testing.T, svc *CustomerService, customerID string, wantPaise int64) {
	t.Helper()
	customer, err := svc.GetCustomer(context.Background(), customerID)
	if err != nil {
		t.Fatalf("GetCustomer() error: %v", err)
	}
	if customer.Dues.Paise != wantPaise {
		t.Errorf("dues = %d paise, want %d", customer.Dues.Paise, wantPaise)
	}
}

var _ storage.Store = (*memory.Store)(nil)
