package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/wiz-abhi/LedgerBook/internal/core"
)

var csvHeader = []string{"Name", "Village", "Contact", "Outstanding Dues"}

// WriteCustomersCSV writes the customer directory as CSV. Dues are
// rendered as decimal rupees with two places.
func WriteCustomersCSV(w io.Writer, customers []core.Customer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, c := range customers {
		record := []string{c.Name, c.Village, c.Contact, c.Dues.String()}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row for %s: %w", c.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
