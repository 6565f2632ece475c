// Package memory implements storage.Store with in-process maps. It backs
// tests and the zero-configuration default backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	customers    map[string]core.Customer
	transactions map[string]core.Transaction
	synced       map[string]int64 // customer id -> last exported version
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		customers:    make(map[string]core.Customer),
		transactions: make(map[string]core.Transaction),
		synced:       make(map[string]int64),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateCustomer(_ context.Context, c core.Customer) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Version = 1
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCustomerLocked(id)
}

func (s *Store) getCustomerLocked(id string) (core.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return core.Customer{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, id string, upd storage.CustomerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return core.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Village != nil {
		c.Village = *upd.Village
	}
	if upd.Contact != nil {
		c.Contact = *upd.Contact
	}
	c.Version++
	s.customers[id] = c
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.customers, id)
	delete(s.synced, id)
	for tid, t := range s.transactions {
		if t.CustomerID == id {
			delete(s.transactions, tid)
		}
	}
	return nil
}

func (s *Store) ListCustomers(_ context.Context, key storage.SortKey) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		switch key {
		case storage.SortByVillage:
			vi, vj := strings.ToLower(out[i].Village), strings.ToLower(out[j].Village)
			if vi != vj {
				return vi < vj
			}
		case storage.SortByDues:
			if out[i].Dues.Paise != out[j].Dues.Paise {
				return out[i].Dues.Paise > out[j].Dues.Paise
			}
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) Villages(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]struct{}{}
	var out []string
	for _, c := range s.customers {
		v := strings.TrimSpace(c.Village)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, customerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.transactions {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) RecentTransactions(_ context.Context, limit int) ([]core.RecentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.RecentTransaction
	for _, t := range s.transactions {
		c, ok := s.customers[t.CustomerID]
		if !ok {
			continue
		}
		out = append(out, core.RecentTransaction{
			Transaction:  t,
			CustomerName: c.Name,
			Village:      c.Village,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ApplyTransaction holds the lock across the read-modify-write, so the
// balance update and the transaction insert are one atomic step.
func (s *Store) ApplyTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[t.CustomerID]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	s.transactions[t.ID] = t
	c.Dues = core.ApplyNew(c.Dues, t.Amount)
	c.Version++
	s.customers[c.ID] = c
	return t, nil
}

func (s *Store) EditTransaction(_ context.Context, id string, upd storage.TransactionUpdate) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	c, ok := s.customers[old.CustomerID]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}

	updated := old
	updated.Amount = upd.Amount
	updated.Type = upd.Type
	updated.Description = upd.Description
	s.transactions[id] = updated

	c.Dues = core.ApplyEdit(c.Dues, old.Amount, updated.Amount)
	c.Version++
	s.customers[c.ID] = c
	return updated, nil
}

func (s *Store) RemoveTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[id]
	if !ok {
		return core.ErrNotFound
	}
	c, ok := s.customers[old.CustomerID]
	if !ok {
		return core.ErrNotFound
	}

	delete(s.transactions, id)
	c.Dues = core.ApplyDelete(c.Dues, old.Amount)
	c.Version++
	s.customers[c.ID] = c
	return nil
}

func (s *Store) PendingSyncCustomers(_ context.Context, limit int) ([]storage.PendingSyncCustomer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.PendingSyncCustomer
	for _, c := range s.customers {
		if s.synced[c.ID] == c.Version {
			continue
		}
		out = append(out, storage.PendingSyncCustomer{ID: c.ID, Version: c.Version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkCustomerSynced(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.customers[id]; ok && c.Version == version {
		s.synced[id] = version
	}
	return nil
}

func (s *Store) MarkCustomerSyncError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.synced, id)
	return nil
}
