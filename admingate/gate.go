// Package admingate guards the admin area of the site behind an admin login.
package admingate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/session"
)

// InvalidCredentialsMessage is shown for every refused admin login
const InvalidCredentialsMessage = "Invalid credentials or insufficient permissions"

var (
	ErrInFlight    = errors.New("admin login already in progress")
	ErrNotAdmin    = errors.New(InvalidCredentialsMessage)
	ErrMissingData = errors.New("email and password are required")
)

// State of the gate
type State int

const (
	LoggedOut State = iota
	LoginPending
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case LoginPending:
		return "login pending"
	case LoggedIn:
		return "logged in"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoginAPI exchanges credentials for a token
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (model.AuthResponse, error)
}

// Gate is the admin login state machine
type Gate struct {
	mu       sync.Mutex
	api      LoginAPI
	sessions *session.Provider
	state    State
	err      string
}

func New(api LoginAPI, sessions *session.Provider) *Gate {
	return &Gate{api: api, sessions: sessions}
}

// Restore enters LoggedIn when an admin token is already persisted
func (g *Gate) Restore() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == LoggedOut && g.sessions.AdminToken() != "" {
		g.state = LoggedIn
	}
	return g.state
}

// Submit tries an admin login. Only a successful response carrying the
// admin claim opens the gate. There is no retry.
func (g *Gate) Submit(ctx context.Context, email, password string) error {
	g.mu.Lock()
	switch g.state {
	case LoginPending:
		g.mu.Unlock()
		return ErrInFlight
	case LoggedIn:
		g.mu.Unlock()
		return nil
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		g.err = "Email and password are required"
		g.mu.Unlock()
		return ErrMissingData
	}
	g.state = LoginPending
	g.err = ""
	g.mu.Unlock()

	err := g.login(ctx, email, password)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		log.Debugf("admin login refused for %s: %v", email, err)
		g.state = LoggedOut
		g.err = InvalidCredentialsMessage
		return err
	}
	g.state = LoggedIn
	return nil
}

func (g *Gate) login(ctx context.Context, email, password string) error {
	resp, err := g.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if !resp.IsAdmin || resp.Token == "" {
		return ErrNotAdmin
	}
	// the regular session is left as it is
	return g.sessions.GrantAdmin(resp.Token)
}

// Logout closes the gate and clears the session
func (g *Gate) Logout() error {
	g.mu.Lock()
	g.state = LoggedOut
	g.err = ""
	g.mu.Unlock()
	return g.sessions.Logout()
}

// State returns the current state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Error is the message of the last refused login, or ""
func (g *Gate) Error() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}
