package session

import (
	"errors"
	"fmt"
	"sync"
)

// Provider owns the current Session and keeps it in sync with Storage
type Provider struct {
	mu        sync.RWMutex
	storage   Storage
	current   Session
	observers map[int]func(View)
	nextID    int
}

// NewProvider restores the session persisted in storage. The admin flag is
// derived from the admin token alone.
func NewProvider(storage Storage) (*Provider, error) {
	p := &Provider{
		storage:   storage,
		current:   Anonymous{},
		observers: make(map[int]func(View)),
	}

	username, _, err := storage.Get(KeyUsername)
	if err != nil {
		return nil, fmt.Errorf("cannot read session: %w", err)
	}
	token, _, err := storage.Get(KeyToken)
	if err != nil {
		return nil, fmt.Errorf("cannot read session: %w", err)
	}
	adminToken, _, err := storage.Get(KeyAdminToken)
	if err != nil {
		return nil, fmt.Errorf("cannot read session: %w", err)
	}
	if err := storage.Remove(KeyLegacyAdmin); err != nil {
		return nil, fmt.Errorf("cannot clear legacy admin flag: %w", err)
	}

	if admin, err := NewAdmin(username, token, adminToken); err == nil {
		p.current = admin
	} else if user, err := NewUser(username, token); err == nil {
		p.current = user
	}
	return p, nil
}

// Login stores a regular session. The result is an Admin session only when
// isAdminClaim is set and an admin token is already persisted. A login
// without the claim drops any stale admin token.
func (p *Provider) Login(username, token string, isAdminClaim bool) error {
	user, err := NewUser(username, token)
	if err != nil {
		return err
	}

	p.mu.Lock()
	next := Session(user)
	adminToken, _, err := p.storage.Get(KeyAdminToken)
	if err == nil && isAdminClaim {
		if admin, aerr := NewAdmin(username, token, adminToken); aerr == nil {
			next = admin
		}
	}
	if err == nil && !isAdminClaim {
		err = p.storage.Remove(KeyAdminToken)
	}
	if err == nil {
		err = errors.Join(
			p.storage.Set(KeyUsername, username),
			p.storage.Set(KeyToken, token),
			p.storage.Remove(KeyLegacyAdmin),
		)
	}
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("cannot store session: %w", err)
	}
	p.current = next
	view := next.View()
	p.mu.Unlock()

	p.notify(view)
	return nil
}

// GrantAdmin persists an admin token and upgrades the current session
func (p *Provider) GrantAdmin(adminToken string) error {
	p.mu.Lock()
	cur := p.current.View()
	admin, err := NewAdmin(cur.Username, cur.Token, adminToken)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if err := p.storage.Set(KeyAdminToken, adminToken); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("cannot store admin token: %w", err)
	}
	p.current = admin
	view := admin.View()
	p.mu.Unlock()

	p.notify(view)
	return nil
}

// Logout clears the session and every persisted key. The in-memory state is
// reset even when storage fails.
func (p *Provider) Logout() error {
	p.mu.Lock()
	var errs []error
	for _, key := range Keys {
		errs = append(errs, p.storage.Remove(key))
	}
	p.current = Anonymous{}
	p.mu.Unlock()

	p.notify(View{})
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cannot clear session: %w", err)
	}
	return nil
}

// Current returns the session value
func (p *Provider) Current() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Snapshot returns the flattened view of the current session
func (p *Provider) Snapshot() View {
	return p.Current().View()
}

// IsAuthenticated reports whether a regular or an admin token is present
func (p *Provider) IsAuthenticated() bool {
	return p.Snapshot().IsAuthenticated
}

// IsAdmin reports whether an admin token is present
func (p *Provider) IsAdmin() bool {
	_, ok := p.Current().(Admin)
	return ok
}

func (p *Provider) Username() string {
	return p.Snapshot().Username
}

func (p *Provider) Token() string {
	return p.Snapshot().Token
}

// AdminToken returns the admin token, or "" when not an admin
func (p *Provider) AdminToken() string {
	if admin, ok := p.Current().(Admin); ok {
		return admin.AdminToken()
	}
	return ""
}

// Subscribe registers fn to be called with every new view. The returned
// function removes the subscription.
func (p *Provider) Subscribe(fn func(View)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(view View) {
	p.mu.RLock()
	fns := make([]func(View), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(view)
	}
}
