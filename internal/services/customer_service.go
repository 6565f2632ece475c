package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/log"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

const recentTransactionsLimit = 5

// CustomerService manages the customer directory: creation, profile edits,
// search, village listing and dashboard stats.
type CustomerService struct {
	store     storage.Store
	publisher CustomerEventPublisher
}

func NewCustomerService(store storage.Store, publisher CustomerEventPublisher) *CustomerService {
	return &CustomerService{
		store:     store,
		publisher: publisher,
	}
}

// CreateCustomer registers a new customer with zero outstanding dues.
func (s *CustomerService) CreateCustomer(ctx context.Context, name, village, contact string) (core.Customer, error) {
	customer := core.Customer{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Village:   strings.TrimSpace(village),
		Contact:   strings.TrimSpace(contact),
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}

	if err := customer.Validate(); err != nil {
		return core.Customer{}, err
	}

	created, err := s.store.CreateCustomer(ctx, customer)
	if err != nil {
		return core.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	slog.InfoContext(ctx, "Customer created",
		log.FieldCustomerID, created.ID,
		log.FieldCustomerName, created.Name,
		log.FieldVillage, created.Village)

	return created, nil
}

// GetCustomer returns a customer by ID.
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (core.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

// UpdateCustomer changes a customer's profile fields. Dues are never
// touched here; only ledger operations move them.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, update storage.CustomerUpdate) (core.Customer, error) {
	existing, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return core.Customer{}, fmt.Errorf("load customer: %w", err)
	}

	check := existing
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
		check.Name = trimmed
	}
	if update.Village != nil {
		trimmed := strings.TrimSpace(*update.Village)
		update.Village = &trimmed
		check.Village = trimmed
	}
	if update.Contact != nil {
		trimmed := strings.TrimSpace(*update.Contact)
		update.Contact = &trimmed
		check.Contact = trimmed
	}
	if err := check.Validate(); err != nil {
		return core.Customer{}, err
	}

	if err := s.store.UpdateCustomer(ctx, id, update); err != nil {
		return core.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	updated, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return core.Customer{}, fmt.Errorf("reload customer: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCustomerSync(ctx, id, updated.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish customer sync message",
				log.FieldCustomerID, id, log.FieldError, err)
		}
	}

	slog.InfoContext(ctx, "Customer updated", log.FieldCustomerID, id)

	return updated, nil
}

// DeleteCustomer removes a customer and all of their transactions, then
// publishes a sync message so the worker clears the exported row.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	existing, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCustomerSync(ctx, id, existing.Version+1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish customer sync message",
				log.FieldCustomerID, id, log.FieldError, err)
		}
	}

	slog.InfoContext(ctx, "Customer deleted", log.FieldCustomerID, id)
	return nil
}

// ListCustomers returns customers matching the query, ordered by sort key.
// The query is a case-insensitive substring match on name or village; an
// empty query matches everyone.
func (s *CustomerService) ListCustomers(ctx context.Context, query string, sort storage.SortKey) ([]core.Customer, error) {
	customers, err := s.store.ListCustomers(ctx, sort)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return customers, nil
	}

	filtered := make([]core.Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Village), query) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Villages returns the distinct village names across all customers.
func (s *CustomerService) Villages(ctx context.Context) ([]string, error) {
	return s.store.Villages(ctx)
}

// Stats assembles the dashboard summary: customer count, total outstanding
// dues and the most recent transactions across all customers.
func (s *CustomerService) Stats(ctx context.Context) (core.Stats, error) {
	customers, err := s.store.ListCustomers(ctx, storage.SortByName)
	if err != nil {
		return core.Stats{}, fmt.Errorf("list customers: %w", err)
	}

	var total core.Money
	for _, c := range customers {
		total = core.Money{Paise: total.Paise + c.Dues.Paise}
	}

	recent, err := s.store.RecentTransactions(ctx, recentTransactionsLimit)
	if err != nil {
		return core.Stats{}, fmt.Errorf("recent transactions: %w", err)
	}

	return core.Stats{
		TotalCustomers: len(customers),
		TotalDues:      total,
		Recent:         recent,
	}, nil
}
