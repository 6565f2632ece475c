package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

const statsCacheKey = "stats"
const villagesCacheKey = "villages"

// recentRow is one line of the dashboard's recent activity list.
type recentRow struct {
	CustomerName string
	Village      string
	Type         string
	Amount       string
	Description  string
	When         string
}

// dashboardData feeds the index template.
type dashboardData struct {
	TotalCustomers int
	TotalDues      string
	Recent         []recentRow
	Customers      []customerRow
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := s.getStats(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard stats error", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	// Customer list feeds the quick-entry form's picker.
	customers, err := s.customers.ListCustomers(r.Context(), "", storage.SortByName)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard customer list error", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	data := dashboardData{
		TotalCustomers: stats.TotalCustomers,
		TotalDues:      formatRupees(stats.TotalDues),
	}
	for _, c := range customers {
		data.Customers = append(data.Customers, customerRowFrom(c))
	}
	for _, t := range stats.Recent {
		data.Recent = append(data.Recent, recentRow{
			CustomerName: t.CustomerName,
			Village:      t.Village,
			Type:         string(t.Type),
			Amount:       formatRupees(t.Amount.Abs()),
			Description:  t.Description,
			When:         t.CreatedAt.Format("02 Jan 2006 15:04"),
		})
	}

	s.renderTemplate(w, r, "index.html", data)
}

func (s *Server) getStats(r *http.Request) (core.Stats, error) {
	if stats, found := s.statsCache.Get(statsCacheKey); found {
		slog.DebugContext(r.Context(), "Stats cache hit")
		return stats, nil
	}

	stats, err := s.customers.Stats(r.Context())
	if err != nil {
		return core.Stats{}, err
	}
	s.statsCache.Set(statsCacheKey, stats)
	return stats, nil
}

// villagesData feeds the villages template.
type villagesData struct {
	Villages []string
	Count    int
}

func (s *Server) handleVillages(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	villages, found := s.villagesCache.Get(villagesCacheKey)
	if !found {
		var err error
		villages, err = s.customers.Villages(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Villages list error", "error", err)
			http.Error(w, "failed to load villages", http.StatusInternalServerError)
			return
		}
		s.villagesCache.Set(villagesCacheKey, villages)
	}

	s.renderTemplate(w, r, "villages.html", villagesData{
		Villages: villages,
		Count:    len(villages),
	})
}

// formatDate renders timestamps the way the ledger pages show them.
func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}
