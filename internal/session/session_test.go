package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmarchuk/storefront-core/internal/api"
	"github.com/dmarchuk/storefront-core/internal/entities"
	"github.com/dmarchuk/storefront-core/internal/session"
	"github.com/dmarchuk/storefront-core/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenKey = "auth_token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newManager(ts *httptest.Server, state session.KV) *session.Manager {
	return session.NewManager(discardLogger(), api.NewClient(ts.URL, time.Second), state)
}

// brokenKV отказывает на чтении чем угодно, кроме "ключ не найден".
type brokenKV struct{}

func (brokenKV) Get(string) (string, error) { return "", errors.New("disk gone") }
func (brokenKV) Set(string, string) error   { return nil }
func (brokenKV) Delete(string) error        { return nil }

func TestNewManager_NoStoredToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	assert.Empty(t, m.Token())
	assert.True(t, m.Loading())
}

func TestNewManager_StoredToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	state := kv.NewMemory()
	require.NoError(t, state.Set(tokenKey, "stored-token"))

	m := newManager(ts, state)
	assert.Equal(t, "stored-token", m.Token())
}

func TestNewManager_UnreadableStore(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	m := newManager(ts, brokenKV{})
	assert.Empty(t, m.Token(), "unreadable storage starts an anonymous session")
}

func TestManager_RestoreWithoutToken(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	assert.True(t, m.Loading())

	m.Restore(context.Background())

	assert.False(t, m.Loading())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	assert.Zero(t, requests.Load(), "nothing to resolve without a token")
}

func TestManager_RestoreValidToken(t *testing.T) {
	user := entities.User{ID: "u1", Name: "Олена", Email: "olena@example.com", Role: entities.RoleCustomer}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer stored-token", r.Header.Get("Authorization"))
		writeJSON(t, w, user)
	}))
	defer ts.Close()

	state := kv.NewMemory()
	require.NoError(t, state.Set(tokenKey, "stored-token"))

	m := newManager(ts, state)
	m.Restore(context.Background())

	assert.False(t, m.Loading())
	got, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, user, got)
	assert.Equal(t, "stored-token", m.Token())
}

func TestManager_RestoreRejectedTokenLogsOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid token"}`))
	}))
	defer ts.Close()

	state := kv.NewMemory()
	require.NoError(t, state.Set(tokenKey, "expired-token"))

	m := newManager(ts, state)
	m.Restore(context.Background())

	assert.False(t, m.Loading())
	assert.Empty(t, m.Token())
	_, ok := m.CurrentUser()
	assert.False(t, ok)

	_, err := state.Get(tokenKey)
	assert.ErrorIs(t, err, kv.ErrNotFound, "rejected token is purged from storage")
}

func TestManager_RestoreTransportFailureLogsOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	state := kv.NewMemory()
	require.NoError(t, state.Set(tokenKey, "stored-token"))

	m := newManager(ts, state)
	m.Restore(context.Background())

	assert.False(t, m.Loading())
	assert.Empty(t, m.Token())
}

func TestManager_Login(t *testing.T) {
	user := entities.User{ID: "u1", Name: "Олена", Email: "olena@example.com", Role: entities.RoleCustomer}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "olena@example.com", creds.Email)

		writeJSON(t, w, map[string]any{"token": "fresh-token", "user": user})
	}))
	defer ts.Close()

	state := kv.NewMemory()
	m := newManager(ts, state)

	res := m.Login(context.Background(), "olena@example.com", "secret")
	require.True(t, res.Success)

	assert.Equal(t, "fresh-token", m.Token())
	got, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, user, got)

	stored, err := state.Get(tokenKey)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored)
}

func TestManager_LoginRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid email or password"}`))
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	res := m.Login(context.Background(), "olena@example.com", "wrong")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Message)

	assert.Empty(t, m.Token())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestManager_LoginInvalidEmailSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	res := m.Login(context.Background(), "not-an-email", "secret")
	assert.False(t, res.Success)
	assert.Zero(t, requests.Load())
}

func TestManager_Register(t *testing.T) {
	user := entities.User{ID: "u2", Name: "Тарас", Email: "taras@example.com", Role: entities.RoleCustomer}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		writeJSON(t, w, map[string]any{"token": "new-token", "user": user})
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	res := m.Register(context.Background(), "Тарас", "taras@example.com", "secret")
	require.True(t, res.Success)
	assert.Equal(t, "new-token", m.Token())
}

func TestManager_RegisterWithoutName(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	res := m.Register(context.Background(), "", "taras@example.com", "secret")
	assert.False(t, res.Success)
	assert.Zero(t, requests.Load())
}

func TestManager_LogoutIdempotent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"token": "t", "user": entities.User{ID: "u1"}})
	}))
	defer ts.Close()

	state := kv.NewMemory()
	m := newManager(ts, state)

	require.True(t, m.Login(context.Background(), "olena@example.com", "secret").Success)

	m.Logout()
	m.Logout()

	assert.Empty(t, m.Token())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	_, err := state.Get(tokenKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestManager_UpdateMyProfileRotatesToken(t *testing.T) {
	updated := entities.User{ID: "u1", Name: "Олена Нова", Email: "olena@example.com", Role: entities.RoleCustomer}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(t, w, map[string]any{"token": "token-1", "user": entities.User{ID: "u1"}})
		case "/auth/me/profile":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			writeJSON(t, w, map[string]any{"token": "token-2", "user": updated, "message": "Profile updated"})
		}
	}))
	defer ts.Close()

	state := kv.NewMemory()
	m := newManager(ts, state)
	require.True(t, m.Login(context.Background(), "olena@example.com", "secret").Success)

	res := m.UpdateMyProfile(context.Background(), session.ProfileUpdate{Name: "Олена Нова"})
	require.True(t, res.Success)
	assert.Equal(t, "Profile updated", res.Message)

	// старый токен отозван сервером, в ходу только новый
	assert.Equal(t, "token-2", m.Token())
	stored, err := state.Get(tokenKey)
	require.NoError(t, err)
	assert.Equal(t, "token-2", stored)

	got, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestManager_UpdateMyProfileUnauthenticated(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	res := m.UpdateMyProfile(context.Background(), session.ProfileUpdate{Name: "X"})
	assert.False(t, res.Success)
	assert.Equal(t, entities.ErrNotAuthenticated.Error(), res.Message)
	assert.Zero(t, requests.Load())
}

func TestManager_ChangePassword(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(t, w, map[string]any{"token": "t", "user": entities.User{ID: "u1"}})
		case "/auth/me/password":
			assert.Equal(t, http.MethodPut, r.Method)
			writeJSON(t, w, map[string]string{"message": "Password changed"})
		}
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "olena@example.com", "secret").Success)

	res := m.ChangePassword(context.Background(), "secret", "stronger")
	require.True(t, res.Success)
	assert.Equal(t, "Password changed", res.Message)
	assert.Equal(t, "t", m.Token(), "password change does not touch the session")
}

func TestManager_ForgotPassword(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/forgot-password", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, map[string]string{"message": "Check your inbox"})
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	res := m.ForgotPassword(context.Background(), "olena@example.com")
	require.True(t, res.Success)
	assert.Equal(t, "Check your inbox", res.Message)
}

func TestManager_FetchUsers(t *testing.T) {
	users := []entities.User{
		{ID: "u1", Name: "Admin", Role: entities.RoleAdmin},
		{ID: "u2", Name: "Customer", Role: entities.RoleCustomer},
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(t, w, map[string]any{"token": "t", "user": users[0]})
		case "/users":
			writeJSON(t, w, users)
		}
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "admin@example.com", "secret").Success)

	m.FetchUsers(context.Background())
	assert.Equal(t, users, m.Users())
}

func TestManager_FetchUsersWithoutToken(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	m.FetchUsers(context.Background())

	assert.Empty(t, m.Users())
	assert.Zero(t, requests.Load())
}

func TestManager_FetchUsersFailureKeepsCache(t *testing.T) {
	users := []entities.User{{ID: "u1", Name: "Admin", Role: entities.RoleAdmin}}
	var failing atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(t, w, map[string]any{"token": "t", "user": users[0]})
		case "/users":
			if failing.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeJSON(t, w, users)
		}
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "admin@example.com", "secret").Success)
	m.FetchUsers(context.Background())

	failing.Store(true)
	m.FetchUsers(context.Background())

	assert.Equal(t, users, m.Users())
}

func TestManager_UpdateUserSelfEditRefreshesCurrent(t *testing.T) {
	self := entities.User{ID: "u1", Name: "Admin", Email: "admin@example.com", Role: entities.RoleAdmin}
	renamed := entities.User{ID: "u1", Name: "Root", Email: "admin@example.com", Role: entities.RoleAdmin}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/login":
			writeJSON(t, w, map[string]any{"token": "t", "user": self})
		case r.URL.Path == "/auth/me":
			writeJSON(t, w, renamed)
		case r.URL.Path == "/users" && r.Method == http.MethodGet:
			writeJSON(t, w, []entities.User{renamed})
		case r.URL.Path == "/users/u1" && r.Method == http.MethodPut:
			writeJSON(t, w, map[string]string{"message": "updated"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "admin@example.com", "secret").Success)

	ok := m.UpdateUser(context.Background(), "u1", session.UserUpdate{Name: "Root"})
	require.True(t, ok)

	got, has := m.CurrentUser()
	require.True(t, has)
	assert.Equal(t, renamed, got, "self-edit re-resolves the session user")
	assert.Equal(t, []entities.User{renamed}, m.Users())
}

func TestManager_UpdateUserRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(t, w, map[string]any{"token": "t", "user": entities.User{ID: "u1", Role: entities.RoleAdmin}})
		default:
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"Forbidden"}`))
		}
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "admin@example.com", "secret").Success)

	assert.False(t, m.UpdateUser(context.Background(), "u2", session.UserUpdate{Name: "X"}))
}

func TestManager_DeleteUserSelfGuard(t *testing.T) {
	var extra atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			writeJSON(t, w, map[string]any{"token": "t", "user": entities.User{ID: "u1", Role: entities.RoleAdmin}})
			return
		}
		extra.Add(1)
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "admin@example.com", "secret").Success)

	assert.False(t, m.DeleteUser(context.Background(), "u1"))
	assert.Zero(t, extra.Load(), "deleting yourself never reaches the network")
}

func TestManager_DeleteUser(t *testing.T) {
	remaining := []entities.User{{ID: "u1", Name: "Admin", Role: entities.RoleAdmin}}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/login":
			writeJSON(t, w, map[string]any{"token": "t", "user": remaining[0]})
		case r.URL.Path == "/users/u2" && r.Method == http.MethodDelete:
			writeJSON(t, w, map[string]string{"message": "deleted"})
		case r.URL.Path == "/users" && r.Method == http.MethodGet:
			writeJSON(t, w, remaining)
		}
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())
	require.True(t, m.Login(context.Background(), "admin@example.com", "secret").Success)

	assert.True(t, m.DeleteUser(context.Background(), "u2"))
	assert.Equal(t, remaining, m.Users(), "user cache is refreshed after delete")
}

func TestManager_SubscribeNotified(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"token": "t", "user": entities.User{ID: "u1"}})
	}))
	defer ts.Close()

	m := newManager(ts, kv.NewMemory())

	var notified atomic.Int32
	m.Subscribe(func() { notified.Add(1) })

	m.Login(context.Background(), "olena@example.com", "secret")
	m.Logout()

	assert.Equal(t, int32(2), notified.Load())
}
