package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wiz-abhi/LedgerBook/internal/auth"
	"github.com/wiz-abhi/LedgerBook/internal/cache"
	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/log"
	"github.com/wiz-abhi/LedgerBook/internal/middleware/ratelimit"
	"github.com/wiz-abhi/LedgerBook/internal/middleware/security"
	"github.com/wiz-abhi/LedgerBook/internal/middleware/trace"
	"github.com/wiz-abhi/LedgerBook/internal/services"
	appweb "github.com/wiz-abhi/LedgerBook/web"
)

const sessionCookieName = "ledgerbook_session"

// Server serves the ledger UI: customer directory, per-customer ledgers,
// dashboard and spreadsheet export, behind session auth.
type Server struct {
	http.Server
	templates *template.Template

	customers *services.CustomerService
	ledger    *services.LedgerService
	sessions  *auth.Manager

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	headers     *security.HeadersMiddleware
	tracer      *trace.Middleware

	villagesCache *cache.LRUCache[[]string]
	statsCache    *cache.LRUCache[core.Stats]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, customers *services.CustomerService, ledger *services.LedgerService, sessions *auth.Manager) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()

	s := &Server{
		customers: customers,
		ledger:    ledger,
		sessions:  sessions,

		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    detector,
		headers:     security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),

		villagesCache: cache.NewLRUCache[[]string](10, time.Minute),
		statsCache:    cache.NewLRUCache[core.Stats](10, 30*time.Second),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.villagesCache)
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.HandleFunc("/", s.requireSession(s.handleDashboard))
	mux.HandleFunc("/customers", s.requireSession(s.handleCustomers))
	mux.HandleFunc("/customers/details", s.requireSession(s.handleCustomerDetails))
	mux.HandleFunc("/customers/update", s.requireSession(s.handleUpdateCustomer))
	mux.HandleFunc("/customers/delete", s.requireSession(s.handleDeleteCustomer))
	mux.HandleFunc("/transactions", s.requireSession(s.handleCreateTransaction))
	mux.HandleFunc("/transactions/update", s.requireSession(s.handleUpdateTransaction))
	mux.HandleFunc("/transactions/delete", s.requireSession(s.handleDeleteTransaction))
	mux.HandleFunc("/villages", s.requireSession(s.handleVillages))
	mux.HandleFunc("/export/customers.csv", s.requireSession(s.handleExportCustomers))

	// Request-scoped loggers pick up the request id minted by the tracer.
	logmw := log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	handler := s.headers.Middleware(s.tracer.Middleware(logmw(s.withWriteRateLimit(mux))))

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// withWriteRateLimit screens requests and applies per-IP rate limiting to
// write requests.
func (s *Server) withWriteRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"client_ip", s.detector.ExtractClientIP(r),
				"method", r.Method, "url", r.URL.Path)
		}
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.rateLimiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession redirects unauthenticated requests to the login page.
// HTMX requests get a HX-Redirect so the full page navigates.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.currentSession(r); err != nil {
			if isHTMX(r) {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) currentSession(r *http.Request) (auth.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return auth.Session{}, core.ErrNotFound
	}
	return s.sessions.Current(cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) invalidateCaches() {
	s.villagesCache.Clear()
	s.statsCache.Clear()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
