package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

// customerRow is one customer in the directory listing.
type customerRow struct {
	ID      string
	Name    string
	Village string
	Contact string
	Dues    string
	Owes    bool
}

// customersPageData feeds the customers template.
type customersPageData struct {
	Customers []customerRow
	Query     string
	Sort      string
	Count     int
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListCustomers(w, r)
	case http.MethodPost:
		s.handleCreateCustomer(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	query, sort := parseListParams(r)

	customers, err := s.customers.ListCustomers(r.Context(), query, sort)
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer list error", "error", err, "query", query)
		http.Error(w, "failed to load customers", http.StatusInternalServerError)
		return
	}

	data := customersPageData{
		Query: query,
		Sort:  string(sort),
		Count: len(customers),
	}
	for _, c := range customers {
		data.Customers = append(data.Customers, customerRowFrom(c))
	}

	// HTMX search requests swap just the table body.
	if isHTMX(r) {
		s.renderTemplate(w, r, "customer_rows.html", data)
		return
	}
	s.renderTemplate(w, r, "customers.html", data)
}

func customerRowFrom(c core.Customer) customerRow {
	return customerRow{
		ID:      c.ID,
		Name:    c.Name,
		Village: c.Village,
		Contact: c.Contact,
		Dues:    formatRupees(c.Dues),
		Owes:    c.Dues.Paise > 0,
	}
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		slog.ErrorContext(r.Context(), "Parse customer form error", "error", err)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form, err := parser.CustomerForm()
	if err != nil {
		UnprocessableEntityError("Name and village are required").Write(w)
		return
	}

	customer, err := s.customers.CreateCustomer(r.Context(), form.Name, form.Village, form.Contact)
	if errors.Is(err, core.ErrValidation) {
		UnprocessableEntityError("Invalid data: " + err.Error()).Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create customer",
			"error", err,
			"customer_name", form.Name,
			"village", form.Village)
		InternalServerError("Error saving customer").Write(w)
		return
	}

	s.invalidateCaches()

	successMsg := fmt.Sprintf("Customer added: %s (%s)",
		template.HTMLEscapeString(customer.Name),
		template.HTMLEscapeString(customer.Village))

	NewHTMXResponse().
		TriggerCustomerCreated(customer.ID).
		TriggerFormReset().
		TriggerSuccessNotification(successMsg).
		Write(w)
}

// transactionRow is one ledger entry on the customer details page.
type transactionRow struct {
	ID          string
	Type        string
	Amount      string
	Description string
	Date        string
	IsCredit    bool
}

// customerDetailsData feeds the customer details template.
type customerDetailsData struct {
	Customer     customerRow
	Transactions []transactionRow
}

func (s *Server) handleCustomerDetails(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.URL.Query().Get("id"))
	if id == "" {
		BadRequestError("Missing customer id").Write(w)
		return
	}

	customer, err := s.customers.GetCustomer(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Customer not found").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer details error", "error", err, "customer_id", id)
		InternalServerError("Failed to load customer").Write(w)
		return
	}

	txns, err := s.ledger.ListTransactions(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list error", "error", err, "customer_id", id)
		InternalServerError("Failed to load transactions").Write(w)
		return
	}

	data := customerDetailsData{Customer: customerRowFrom(customer)}
	for _, t := range txns {
		data.Transactions = append(data.Transactions, transactionRow{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      formatRupees(t.Amount.Abs()),
			Description: t.Description,
			Date:        formatDate(t.CreatedAt),
			IsCredit:    t.Type == core.Credit,
		})
	}

	s.renderTemplate(w, r, "customer_details.html", data)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form, err := parser.CustomerForm()
	if err != nil || form.ID == "" {
		UnprocessableEntityError("Invalid customer data").Write(w)
		return
	}

	update := storage.CustomerUpdate{
		Name:    &form.Name,
		Village: &form.Village,
		Contact: &form.Contact,
	}

	customer, err := s.customers.UpdateCustomer(r.Context(), form.ID, update)
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Customer not found").Write(w)
		return
	case errors.Is(err, core.ErrValidation):
		UnprocessableEntityError("Invalid data: " + err.Error()).Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to update customer",
			"error", err, "customer_id", form.ID)
		InternalServerError("Error updating customer").Write(w)
		return
	}

	s.invalidateCaches()

	NewHTMXResponse().
		TriggerCustomerUpdated(customer.ID).
		TriggerSuccessNotification("Customer updated").
		Write(w)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	id := parser.Get("id")
	if id == "" {
		BadRequestError("Missing customer id").Write(w)
		return
	}

	err := s.customers.DeleteCustomer(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Customer not found").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete customer",
			"error", err, "customer_id", id)
		InternalServerError("Error deleting customer").Write(w)
		return
	}

	s.invalidateCaches()

	NewHTMXResponse().
		TriggerCustomerDeleted(id).
		TriggerSuccessNotification("Customer and their transactions removed").
		Write(w)
}
