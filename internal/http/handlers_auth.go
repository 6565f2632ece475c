package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/wiz-abhi/LedgerBook/internal/auth"
)

// loginPageData feeds the login template.
type loginPageData struct {
	Error string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Already signed in: straight to the dashboard.
		if _, err := s.currentSession(r); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.renderTemplate(w, r, "login.html", loginPageData{})

	case http.MethodPost:
		parser := NewRequestBodyParser(r)
		if err := parser.Parse(); err != nil {
			slog.ErrorContext(r.Context(), "Parse login form error", "error", err)
			s.renderLoginError(w, r, "Invalid request format")
			return
		}

		form, err := parser.LoginForm()
		if err != nil {
			s.renderLoginError(w, r, "Email and password are required")
			return
		}

		session, err := s.sessions.Login(r.Context(), form.Email, form.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.renderLoginError(w, r, "Invalid email or password")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Login failed", "error", err)
			s.renderLoginError(w, r, "Login failed, please try again")
			return
		}

		s.setSessionCookie(w, session)
		http.Redirect(w, r, "/", http.StatusSeeOther)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, msg string) {
	w.WriteHeader(http.StatusUnauthorized)
	if s.templates == nil {
		_, _ = w.Write([]byte(msg))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "login.html", loginPageData{Error: msg}); err != nil {
		slog.ErrorContext(r.Context(), "Login template execution failed", "error", err)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.Logout(cookie.Value)
	}
	s.clearSessionCookie(w)

	slog.InfoContext(r.Context(), "Logged out")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
