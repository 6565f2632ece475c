package http

import (
	"log/slog"
	"net/http"

	"github.com/wiz-abhi/LedgerBook/internal/export"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

// handleExportCustomers streams the full customer directory as a CSV download.
func (s *Server) handleExportCustomers(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	customers, err := s.customers.ListCustomers(r.Context(), "", storage.SortByName)
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer export error", "error", err)
		http.Error(w, "failed to export customers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="customers.csv"`)

	if err := export.WriteCustomersCSV(w, customers); err != nil {
		// Headers are already out, all we can do is log.
		slog.ErrorContext(r.Context(), "CSV write error", "error", err)
	}
}
