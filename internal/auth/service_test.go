package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincli/internal/api"
	"fincli/internal/gateway"
	"fincli/internal/session"
)

type fixture struct {
	svc   *Service
	sess  *session.Session
	nav   *gateway.MemoryNavigator
	calls *atomic.Int32
}

func newFixture(t *testing.T, handler http.HandlerFunc, creds session.Credentials) fixture {
	t.Helper()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	sess := session.New(session.NewMemoryStore())
	if !creds.Empty() {
		require.NoError(t, sess.SetPair(context.Background(), creds))
	}
	nav := gateway.NewMemoryNavigator(gateway.LoginLocation)
	gw, err := gateway.New(gateway.Config{BaseURL: ts.URL, Navigator: nav}, sess)
	require.NoError(t, err)

	return fixture{
		svc:   NewService(api.New(gw, api.Config{}), sess, nav, nil),
		sess:  sess,
		nav:   nav,
		calls: &calls,
	}
}

func profileHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login/":
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access":"a1","refresh":"r1"}`))
	case "/auth/register/":
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != in["password_confirm"] {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"password":["Passwords do not match."],"email":["Taken."]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
	case "/auth/profile/":
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"ana@example.com","first_name":"Ana"}`))
	case "/auth/logout/":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestLoadProfileWithoutCredentialMakesNoCalls(t *testing.T) {
	f := newFixture(t, profileHandler, session.Credentials{})

	require.NoError(t, f.svc.LoadProfile(context.Background()))
	assert.False(t, f.svc.IsAuthenticated())
	assert.Nil(t, f.svc.User())
	assert.Zero(t, f.calls.Load())
}

func TestLoadProfileFailureClearsCredentials(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, session.Credentials{Access: "a1", Refresh: "r1"})

	err := f.svc.LoadProfile(context.Background())
	require.Error(t, err)
	assert.False(t, f.svc.IsAuthenticated())
	assert.True(t, f.sess.Credentials().Empty())
}

func TestLogin(t *testing.T) {
	f := newFixture(t, profileHandler, session.Credentials{})

	require.NoError(t, f.svc.Login(context.Background(), "ana@example.com", "secret"))
	assert.True(t, f.svc.IsAuthenticated())
	assert.Equal(t, "Ana", f.svc.User().FirstName)
	assert.Equal(t, session.Credentials{Access: "a1", Refresh: "r1"}, f.sess.Credentials())
	assert.Equal(t, gateway.DashboardLocation, f.nav.Location())
}

func TestLoginFailureUsesDetail(t *testing.T) {
	f := newFixture(t, profileHandler, session.Credentials{})

	err := f.svc.Login(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", err.Error())
	assert.False(t, f.svc.IsAuthenticated())
	assert.Empty(t, f.nav.Visits())
}

func TestLoginFallbackMessage(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email":["Enter a valid email address."]}`))
	}, session.Credentials{})

	err := f.svc.Login(context.Background(), "nope", "x")
	require.Error(t, err)
	assert.Equal(t, msgLoginFailed, err.Error())
}

func TestRegisterLogsIn(t *testing.T) {
	f := newFixture(t, profileHandler, session.Credentials{})

	err := f.svc.Register(context.Background(), api.RegisterRequest{
		Email: "ana@example.com", Password: "secret", PasswordConfirm: "secret",
		FirstName: "Ana", LastName: "Silva",
	})
	require.NoError(t, err)
	assert.True(t, f.svc.IsAuthenticated())
}

func TestRegisterReportsFirstFieldError(t *testing.T) {
	f := newFixture(t, profileHandler, session.Credentials{})

	err := f.svc.Register(context.Background(), api.RegisterRequest{
		Email: "ana@example.com", Password: "secret", PasswordConfirm: "other",
	})
	require.Error(t, err)
	assert.Equal(t, "Passwords do not match.", err.Error())

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.True(t, gateway.IsStatus(authErr.Err, http.StatusBadRequest))
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	var logoutCalls atomic.Int32
	var logoutAuth atomic.Value
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/logout/" {
			logoutCalls.Add(1)
			logoutAuth.Store(r.Header.Values("Authorization"))
		}
		profileHandler(w, r)
	}, session.Credentials{})
	ctx := context.Background()

	require.NoError(t, f.svc.Login(ctx, "ana@example.com", "secret"))
	f.svc.Logout(ctx)

	assert.True(t, f.sess.Credentials().Empty())
	assert.False(t, f.svc.IsAuthenticated())
	assert.Equal(t, gateway.LoginLocation, f.nav.Location())

	f.svc.Wait()
	assert.EqualValues(t, 1, logoutCalls.Load())
	assert.Equal(t, []string{"Bearer a1"}, logoutAuth.Load())
}

func TestLogoutWithoutRefreshSendsNothing(t *testing.T) {
	f := newFixture(t, profileHandler, session.Credentials{Access: "a1"})

	f.svc.Logout(context.Background())
	f.svc.Wait()
	assert.Zero(t, f.calls.Load())
	assert.True(t, f.sess.Credentials().Empty())
}

func TestChangePasswordMessage(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"old_password":["Wrong password."]}`))
	}, session.Credentials{Access: "a1", Refresh: "r1"})

	err := f.svc.ChangePassword(context.Background(), api.ChangePasswordRequest{OldPassword: "x", NewPassword: "y", NewPasswordConfirm: "y"})
	require.Error(t, err)
	assert.Equal(t, "Wrong password.", err.Error())
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_, _ = w.Write([]byte(`{"id":"u1","email":"ana@example.com","theme":"dark"}`))
			return
		}
		profileHandler(w, r)
	}, session.Credentials{Access: "a1", Refresh: "r1"})
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateProfile(ctx, api.ProfileUpdate{Theme: "dark"}))
	assert.Equal(t, "dark", f.svc.User().Theme)
}
