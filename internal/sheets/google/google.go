package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	ports "github.com/wiz-abhi/LedgerBook/internal/sheets"
)

// Client mirrors customers into a Google Sheets worksheet, one row per
// customer keyed by customer ID in column A.
type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	customersSheet string
}

// Ensure interface conformance
var (
	_ ports.CustomerRowWriter  = (*Client)(nil)
	_ ports.CustomerRowDeleter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Customers")
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Customers"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		customersSheet: sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// UpsertCustomerRow writes the customer to its row, or appends a new row
// when the customer ID is not in the sheet yet.
// Columns: A=ID, B=Name, C=Village, D=Contact, E=Outstanding Dues (rupees).
func (c *Client) UpsertCustomerRow(ctx context.Context, customer core.Customer) (string, error) {
	if err := customer.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, err := c.findRowByID(ctx, customer.ID)
	if err != nil {
		return "", err
	}

	values := [][]any{{
		customer.ID,
		customer.Name,
		customer.Village,
		customer.Contact,
		customer.Dues.Rupees(),
	}}

	if row == 0 {
		// Not present yet: append after the last used row.
		rng := fmt.Sprintf("%s!A:E", c.customersSheet)
		vr := &gsheet.ValueRange{Values: values}
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("append customer row to %s: %w", c.customersSheet, err)
		}
		ref := rng
		if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
			ref = resp.Updates.UpdatedRange
		}
		return ref, nil
	}

	rng := fmt.Sprintf("%s!A%d:E%d", c.customersSheet, row, row)
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update customer row in %s: %w", c.customersSheet, err)
	}
	return rng, nil
}

// DeleteCustomerRow blanks the row for a customer that no longer exists.
func (c *Client) DeleteCustomerRow(ctx context.Context, customerID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRowByID(ctx, customerID)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:E%d", c.customersSheet, row, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear customer row in %s: %w", c.customersSheet, err)
	}
	return nil
}

// findRowByID returns the 1-based row holding the customer ID, or 0 if absent.
func (c *Client) findRowByID(ctx context.Context, customerID string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.customersSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ID column of %s: %w", c.customersSheet, err)
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == customerID {
			return i + 1, nil
		}
	}
	return 0, nil
}
