package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wiz-abhi/LedgerBook/internal/auth"
	"github.com/wiz-abhi/LedgerBook/internal/services"
	"github.com/wiz-abhi/LedgerBook/internal/storage/memory"
)

const (
	testEmail    = "owner@example.com"
	testPassword = "secret123"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	sessions, err := auth.NewManager(auth.Config{
		Email:    testEmail,
		Password: testPassword,
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	t.Cleanup(sessions.Stop)

	store := memory.New()
	customers := services.NewCustomerService(store, nil)
	ledger := services.NewLedgerService(store, nil)

	srv := NewServer(":0", customers, ledger, sessions)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rr := do(srv, postForm("/login", url.Values{
		"email":    {testEmail},
		"password": {testPassword},
	}))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("session cookie not set after login")
	return nil
}

// createCustomer posts the form and pulls the new ID out of the HX-Trigger header.
func createCustomer(t *testing.T, srv *Server, cookie *http.Cookie, name, village string) string {
	t.Helper()
	req := postForm("/customers", url.Values{"name": {name}, "village": {village}})
	req.AddCookie(cookie)
	rr := do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("create customer status=%d body=%s", rr.Code, rr.Body.String())
	}

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("parse HX-Trigger: %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(triggers["customer:created"], &created); err != nil {
		t.Fatalf("parse customer:created payload: %v", err)
	}
	if created.ID == "" {
		t.Fatal("customer:created trigger missing id")
	}
	return created.ID
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/customers", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}

	// HTMX requests get a client-side redirect instead.
	req := httptest.NewRequest(http.MethodGet, "/customers", nil)
	req.Header.Set("HX-Request", "true")
	rr = do(srv, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for htmx request, got %d", rr.Code)
	}
	if rr.Header().Get("HX-Redirect") != "/login" {
		t.Fatal("expected HX-Redirect header")
	}
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, postForm("/login", url.Values{
		"email":    {testEmail},
		"password": {"wrong-password"},
	}))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid email or password") {
		t.Fatal("expected login error message in body")
	}

	cookie := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Dashboard") {
		t.Fatal("dashboard body missing heading")
	}

	// Logout invalidates the session.
	req = postForm("/logout", url.Values{})
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", rr.Code)
	}
}

func TestCustomerLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	id := createCustomer(t, srv, cookie, "Ramesh Kumar", "Rampur")

	req := httptest.NewRequest(http.MethodGet, "/customers/details?id="+id, nil)
	req.AddCookie(cookie)
	rr := do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("details status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Ramesh Kumar") {
		t.Fatal("details missing customer name")
	}

	req = postForm("/customers/update", url.Values{
		"id":      {id},
		"name":    {"Ramesh K."},
		"village": {"Rampur"},
		"contact": {"9876543210"},
	})
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	req = postForm("/customers/delete", url.Values{"id": {id}})
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/customers/details?id="+id, nil)
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestCreateCustomerValidation(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	req := postForm("/customers", url.Values{"name": {""}, "village": {"Rampur"}})
	req.AddCookie(cookie)
	rr := do(srv, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty name, got %d", rr.Code)
	}
}

func TestTransactionsAdjustDues(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	id := createCustomer(t, srv, cookie, "Sita Devi", "Madhopur")

	// Goods given on credit
	req := postForm("/transactions", url.Values{
		"customer_id": {id},
		"type":        {"DEBIT"},
		"amount":      {"200"},
		"description": {"Seed bags"},
	})
	req.AddCookie(cookie)
	rr := do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("debit status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Partial payment received
	req = postForm("/transactions", url.Values{
		"customer_id": {id},
		"type":        {"CREDIT"},
		"amount":      {"50.25"},
	})
	req.AddCookie(cookie)
	rr = do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("credit status=%d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/customers/details?id="+id, nil)
	req.AddCookie(cookie)
	rr = do(srv, req)
	body := rr.Body.String()
	if !strings.Contains(body, "₹149.75") {
		t.Fatalf("details missing adjusted dues, body=%s", body)
	}
	if !strings.Contains(body, "Seed bags") {
		t.Fatal("details missing transaction description")
	}
}

func TestTransactionInvalidAmount(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	id := createCustomer(t, srv, cookie, "Mohan", "Rampur")

	for _, amount := range []string{"abc", "0", "-5", ""} {
		req := postForm("/transactions", url.Values{
			"customer_id": {id},
			"type":        {"DEBIT"},
			"amount":      {amount},
		})
		req.AddCookie(cookie)
		rr := do(srv, req)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("amount %q: expected 422, got %d", amount, rr.Code)
		}
	}
}

func TestCustomerSearch(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	createCustomer(t, srv, cookie, "Ramesh", "Rampur")
	createCustomer(t, srv, cookie, "Suresh", "Madhopur")

	req := httptest.NewRequest(http.MethodGet, "/customers?q=madho", nil)
	req.Header.Set("HX-Request", "true")
	req.AddCookie(cookie)
	rr := do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("search status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Suresh") {
		t.Fatal("search result missing matching customer")
	}
	if strings.Contains(body, "Ramesh") {
		t.Fatal("search result contains non-matching customer")
	}
	// HTMX search swaps rows only, not the full page
	if strings.Contains(body, "<html") {
		t.Fatal("htmx search returned a full page")
	}
}

func TestCSVExport(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)
	id := createCustomer(t, srv, cookie, "Ramesh", "Rampur")

	req := postForm("/transactions", url.Values{
		"customer_id": {id},
		"type":        {"DEBIT"},
		"amount":      {"1500"},
	})
	req.AddCookie(cookie)
	if rr := do(srv, req); rr.Code != http.StatusOK {
		t.Fatalf("debit status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/export/customers.csv", nil)
	req.AddCookie(cookie)
	rr := do(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "customers.csv") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Name,Village,Contact,Outstanding Dues") {
		t.Fatal("export missing header row")
	}
	if !strings.Contains(body, "Ramesh,Rampur,,1500.00") {
		t.Fatalf("export missing customer row, body=%s", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/transactions"},
		{http.MethodGet, "/customers/update"},
		{http.MethodGet, "/customers/delete"},
		{http.MethodPost, "/export/customers.csv"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.AddCookie(cookie)
		rr := do(srv, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	srv := newTestServer(t)
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if rr.Header().Get(h) == "" {
			t.Fatalf("missing %s header", h)
		}
	}
}
