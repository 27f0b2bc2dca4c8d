package admingate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allura/allura-web/client"
	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/session"
)

type stubAPI struct {
	resp    model.AuthResponse
	err     error
	release chan struct{}
	calls   int
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (model.AuthResponse, error) {
	s.calls++
	if s.release != nil {
		<-s.release
	}
	return s.resp, s.err
}

func newGate(t *testing.T, api LoginAPI, seed map[string]string) (*Gate, *session.Provider, *session.MemoryStorage) {
	t.Helper()
	storage := session.NewMemoryStorage(seed)
	p, err := session.NewProvider(storage)
	require.NoError(t, err)
	return New(api, p), p, storage
}

func TestSubmitWithoutAdminClaim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc","username":"bob"}`))
	}))
	defer srv.Close()

	g, p, storage := newGate(t, client.New(srv.URL), nil)
	err := g.Submit(context.Background(), "bob@example.com", "pw")
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, LoggedOut, g.State())
	assert.Equal(t, InvalidCredentialsMessage, g.Error())

	_, ok, _ := storage.Get(session.KeyAdminToken)
	assert.False(t, ok)
	assert.False(t, p.IsAdmin())
}

func TestSubmitAdmin(t *testing.T) {
	api := &stubAPI{resp: model.AuthResponse{Token: "adm", Username: "root", IsAdmin: true}}
	g, p, storage := newGate(t, api, nil)

	require.NoError(t, g.Submit(context.Background(), "root@example.com", "pw"))
	assert.Equal(t, LoggedIn, g.State())
	assert.Empty(t, g.Error())
	assert.True(t, p.IsAdmin())
	assert.Empty(t, p.Token())
	v, ok, _ := storage.Get(session.KeyAdminToken)
	assert.True(t, ok)
	assert.Equal(t, "adm", v)

	// logged in: a second submit does nothing
	require.NoError(t, g.Submit(context.Background(), "root@example.com", "pw"))
	assert.Equal(t, 1, api.calls)

	require.NoError(t, g.Logout())
	assert.Equal(t, LoggedOut, g.State())
	assert.False(t, p.IsAuthenticated())
	assert.Zero(t, storage.Len())
}

func TestSubmitKeepsRegularSession(t *testing.T) {
	api := &stubAPI{resp: model.AuthResponse{Token: "adm", Username: "root", IsAdmin: true}}
	g, p, storage := newGate(t, api, map[string]string{
		session.KeyUsername: "bob",
		session.KeyToken:    "bob-token",
	})

	require.NoError(t, g.Submit(context.Background(), "root@example.com", "pw"))
	assert.Equal(t, LoggedIn, g.State())
	assert.True(t, p.IsAdmin())
	assert.Equal(t, "bob", p.Username())
	assert.Equal(t, "bob-token", p.Token())
	assert.Equal(t, "adm", p.AdminToken())

	username, _, _ := storage.Get(session.KeyUsername)
	token, _, _ := storage.Get(session.KeyToken)
	adminToken, _, _ := storage.Get(session.KeyAdminToken)
	assert.Equal(t, "bob", username)
	assert.Equal(t, "bob-token", token)
	assert.Equal(t, "adm", adminToken)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name string
		api  *stubAPI
	}{
		{"unauthorized", &stubAPI{err: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}}},
		{"network", &stubAPI{err: client.ErrTransport}},
		{"no token", &stubAPI{resp: model.AuthResponse{Username: "root", IsAdmin: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, p, _ := newGate(t, tt.api, nil)
			require.Error(t, g.Submit(context.Background(), "root@example.com", "pw"))
			assert.Equal(t, LoggedOut, g.State())
			assert.Equal(t, InvalidCredentialsMessage, g.Error())
			assert.False(t, p.IsAdmin())
		})
	}
}

func TestSubmitMissingFields(t *testing.T) {
	api := &stubAPI{}
	g, _, _ := newGate(t, api, nil)
	assert.ErrorIs(t, g.Submit(context.Background(), "  ", "pw"), ErrMissingData)
	assert.Zero(t, api.calls)
	assert.Equal(t, LoggedOut, g.State())
}

func TestSubmitWhilePending(t *testing.T) {
	api := &stubAPI{release: make(chan struct{}), resp: model.AuthResponse{Token: "adm", IsAdmin: true}}
	g, _, _ := newGate(t, api, nil)

	done := make(chan error)
	go func() { done <- g.Submit(context.Background(), "root@example.com", "pw") }()
	require.Eventually(t, func() bool { return g.State() == LoginPending }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, g.Submit(context.Background(), "root@example.com", "pw"), ErrInFlight)
	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, LoggedIn, g.State())
}

func TestRestore(t *testing.T) {
	g, _, _ := newGate(t, &stubAPI{}, nil)
	assert.Equal(t, LoggedOut, g.Restore())

	g, _, _ = newGate(t, &stubAPI{}, map[string]string{session.KeyAdminToken: "adm", session.KeyLegacyAdmin: "true"})
	assert.Equal(t, LoggedIn, g.Restore())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "login pending", LoginPending.String())
	assert.Equal(t, "State(7)", State(7).String())
}
