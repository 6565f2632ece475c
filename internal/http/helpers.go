package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"
)

// formatRupees formats a money value as a Rupee currency string (e.g., "₹1,234.50").
func formatRupees(m core.Money) string {
	paise := m.Paise
	neg := paise < 0
	if neg {
		paise = -paise
	}
	rupees := paise / 100
	rem := paise % 100
	s := groupIndian(rupees) + "." + pad2(rem)
	if neg {
		return "-₹" + s
	}
	return "₹" + s
}

// groupIndian inserts digit separators in the Indian convention:
// the last three digits, then groups of two (12,34,567).
func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	head := s[:len(s)-3]
	tail := s[len(s)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// parseListParams extracts the search query and sort key from the request.
func parseListParams(r *http.Request) (query string, sort storage.SortKey) {
	query = sanitizeInput(r.URL.Query().Get("q"))
	sort = storage.ParseSortKey(r.URL.Query().Get("sort"))
	return query, sort
}

// isHTMX reports whether the request was issued by HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
