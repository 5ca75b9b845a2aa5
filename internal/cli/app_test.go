package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincli/internal/config"
	"fincli/internal/gateway"
	"fincli/internal/log"
	"fincli/internal/session"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		APIBaseURL:         baseURL,
		APITimeout:         5 * time.Second,
		CredentialBackend:  config.BackendSQLite,
		SQLiteDBPath:       filepath.Join(t.TempDir(), "fincli.db"),
		RateLimitPerMinute: 600,
		CacheTTL:           time.Minute,
		LogLevel:           "info",
	}
}

func TestAppLoginPersistsAcrossRestarts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		switch r.URL.Path {
		case "/auth/login/":
			_, _ = w.Write([]byte(`{"access":"a1","refresh":"r1"}`))
		case "/auth/profile/":
			_, _ = w.Write([]byte(`{"id":"u1","email":"ana@example.com"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	cfg := testConfig(t, ts.URL)
	ctx := context.Background()

	app, err := NewApp(ctx, cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, app.Auth.Login(ctx, "ana@example.com", "secret"))
	require.NoError(t, app.Close())

	restarted, err := NewApp(ctx, cfg, log.Discard())
	require.NoError(t, err)
	defer restarted.Close()

	require.NoError(t, restarted.Auth.LoadProfile(ctx))
	assert.True(t, restarted.Auth.IsAuthenticated())
	assert.Equal(t, "r1", restarted.Session.RefreshToken())
	assert.False(t, restarted.SessionExpired())
	assert.EqualValues(t, 1, restarted.Trace.GetMetrics().TotalRequests)
}

func TestAppSessionExpired(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cfg := testConfig(t, ts.URL)
	cfg.CredentialBackend = config.BackendMemory
	ctx := context.Background()

	app, err := NewApp(ctx, cfg, log.Discard())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Session.SetPair(ctx, session.Credentials{Access: "a1", Refresh: "r1"}))
	_, err = app.API.Accounts.List(ctx, false)
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.True(t, app.SessionExpired())
	assert.True(t, app.Session.Credentials().Empty())
}

func TestOpenCredentialStoreRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{CredentialBackend: "keychain"}
	_, err := OpenCredentialStore(context.Background(), cfg, log.Discard())
	assert.Error(t, err)
}

func TestOpenLedgerSharesSQLiteStore(t *testing.T) {
	cfg := &config.Config{CredentialBackend: config.BackendSQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "f.db")}
	store, err := OpenCredentialStore(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer store.Close()

	ledger, closeLedger, err := OpenLedger(cfg, store, log.Discard())
	require.NoError(t, err)
	require.NoError(t, closeLedger())
	assert.Same(t, store, ledger)

	mem, err := OpenCredentialStore(context.Background(), &config.Config{CredentialBackend: config.BackendMemory}, log.Discard())
	require.NoError(t, err)
	other, closeOther, err := OpenLedger(cfg, mem, log.Discard())
	require.NoError(t, err)
	defer closeOther()
	assert.NotSame(t, store, other)
}
