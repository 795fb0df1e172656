package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"go.uber.org/zap"
)

// ErrNotLoggedIn is returned by operations that need an identity when none is stored
var ErrNotLoggedIn = errors.New("not logged in; run `console login` first")

// Credentials identify an operator
type Credentials struct {
	Email    string
	Password string
}

// Session is the identity every view is constructed with
type Session interface {
	Token() string
	CurrentUser() (domain.User, bool)
	Login(ctx context.Context, creds Credentials) (domain.User, error)
	Logout(ctx context.Context) error
}

// Authenticator is the part of the billing API the session needs
type Authenticator interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.LoginResponse, error)
	Logout(ctx context.Context) error
}

// Manager is the Session backed by the on-disk mirror
type Manager struct {
	store  *Store
	auth   Authenticator
	logger *zap.Logger
}

// NewManager creates a session manager
func NewManager(store *Store, auth Authenticator, logger *zap.Logger) *Manager {
	return &Manager{store: store, auth: auth, logger: logger}
}

// Token returns the current bearer token, empty when absent or expired
func (m *Manager) Token() string {
	return m.store.Token()
}

// CurrentUser returns the logged in user. A stored user whose token has expired is
// not returned.
func (m *Manager) CurrentUser() (domain.User, bool) {
	user, ok := m.store.User()
	if !ok {
		return domain.User{}, false
	}
	m.store.mu.RLock()
	hadToken := m.store.token != ""
	m.store.mu.RUnlock()
	if hadToken && m.store.Token() == "" {
		return domain.User{}, false
	}
	return user, true
}

// Login authenticates against the API and mirrors the identity locally
func (m *Manager) Login(ctx context.Context, creds Credentials) (domain.User, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return domain.User{}, errors.New("email and password are required")
	}
	resp, err := m.auth.Login(ctx, apiclient.LoginRequest{Email: email, Password: creds.Password})
	if err != nil {
		m.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return domain.User{}, fmt.Errorf("login failed: %w", err)
	}
	if err := m.store.Save(resp.Token, resp.User); err != nil {
		return domain.User{}, err
	}
	m.logger.Info("logged in", zap.Int64("user_id", resp.User.ID), zap.String("name", resp.User.Name))
	return resp.User, nil
}

// Logout ends the server session best-effort and always clears the local mirror
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Warn("server logout failed, clearing local session anyway", zap.Error(err))
	}
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.logger.Info("logged out")
	return nil
}

// Require returns the current user or ErrNotLoggedIn
func Require(s Session) (domain.User, error) {
	user, ok := s.CurrentUser()
	if !ok {
		return domain.User{}, ErrNotLoggedIn
	}
	return user, nil
}
