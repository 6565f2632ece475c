package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wiz-abhi/LedgerBook/internal/core"
)

// ErrInvalidCredentials is returned when the email/password pair does not
// match the configured account.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Session is an authenticated login with an expiry.
type Session struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Manager holds the single configured account and all live sessions.
// Sessions are in-memory only; a restart logs everyone out.
type Manager struct {
	email        string
	passwordHash []byte
	ttl          time.Duration

	mu       sync.RWMutex
	sessions map[string]Session

	cleanupTicker *time.Ticker
	done          chan struct{}
}

// Config configures the session manager. Exactly one of PasswordHash or
// Password must be set; a plain Password is hashed at startup.
type Config struct {
	Email        string
	PasswordHash string
	Password     string
	TTL          time.Duration
}

// NewManager creates a session manager and starts expired-session cleanup.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Email == "" {
		return nil, errors.New("auth: email must be configured")
	}

	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		if cfg.Password == "" {
			return nil, errors.New("auth: password or password hash must be configured")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	m := &Manager{
		email:         strings.ToLower(strings.TrimSpace(cfg.Email)),
		passwordHash:  hash,
		ttl:           ttl,
		sessions:      make(map[string]Session),
		cleanupTicker: time.NewTicker(10 * time.Minute),
		done:          make(chan struct{}),
	}

	go m.cleanupExpired()

	return m, nil
}

// Login verifies credentials and creates a new session on success.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(m.email)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password))
	if !emailMatch || passwordErr != nil {
		slog.WarnContext(ctx, "Login rejected", "email", email)
		return Session{}, ErrInvalidCredentials
	}

	now := time.Now()
	session := Session{
		Token:     uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[session.Token] = session
	m.mu.Unlock()

	slog.InfoContext(ctx, "Login succeeded", "email", email)
	return session, nil
}

// Current returns the session for a token, or ErrNotFound if the token is
// unknown or expired. Expired tokens are dropped on lookup.
func (m *Manager) Current(token string) (Session, error) {
	if token == "" {
		return Session{}, core.ErrNotFound
	}

	m.mu.RLock()
	session, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return Session{}, core.ErrNotFound
	}
	if session.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return Session{}, core.ErrNotFound
	}
	return session, nil
}

// Logout invalidates a session token. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) cleanupExpired() {
	for {
		select {
		case <-m.cleanupTicker.C:
			now := time.Now()
			m.mu.Lock()
			for token, session := range m.sessions {
				if session.Expired(now) {
					delete(m.sessions, token)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (m *Manager) Stop() {
	m.cleanupTicker.Stop()
	close(m.done)
}
