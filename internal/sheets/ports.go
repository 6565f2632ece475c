package sheets

import (
	"context"

	"github.com/wiz-abhi/LedgerBook/internal/core"
)

// Ports for outbound adapters.
type (
	// CustomerRowWriter mirrors one customer per spreadsheet row, keyed by
	// customer ID. Upserting with a newer balance overwrites the old row.
	CustomerRowWriter interface {
		UpsertCustomerRow(ctx context.Context, c core.Customer) (rowRef string, err error)
	}

	// CustomerRowDeleter clears the exported row for a removed customer.
	CustomerRowDeleter interface {
		DeleteCustomerRow(ctx context.Context, customerID string) error
	}
)
