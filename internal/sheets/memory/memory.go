package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wiz-abhi/LedgerBook/internal/core"
)

// Store is an in-memory stand-in for the Google Sheets writer, used by the
// memory backend and in tests.
type Store struct {
	mu   sync.Mutex
	rows map[string]core.Customer
}

func New() *Store {
	return &Store{rows: make(map[string]core.Customer)}
}

// UpsertCustomerRow stores the customer and returns a synthetic row reference.
func (s *Store) UpsertCustomerRow(_ context.Context, c core.Customer) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.ID] = c
	return fmt.Sprintf("mem:%s", c.ID), nil
}

// DeleteCustomerRow drops the row if present.
func (s *Store) DeleteCustomerRow(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, customerID)
	return nil
}

// Row returns the stored row for a customer, if any.
func (s *Store) Row(customerID string) (core.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[customerID]
	return c, ok
}

// Len returns the number of exported rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
