// Package auth owns the user's login state: it loads the profile for a held
// credential, logs in and out, and keeps the cached API responses in step
// with the identity behind the session.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"fincli/internal/api"
	"fincli/internal/core"
	"fincli/internal/gateway"
	"fincli/internal/log"
	"fincli/internal/session"
)

// Fallback messages when the backend gives no usable error body.
const (
	msgLoginFailed          = "login failed"
	msgRegistrationFailed   = "registration failed"
	msgUpdateProfileFailed  = "profile update failed"
	msgChangePasswordFailed = "password change failed"
)

// logoutTimeout bounds the background logout call.
const logoutTimeout = 10 * time.Second

// Error is a user-facing failure of an auth operation. Err keeps the
// underlying cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type Service struct {
	api     *api.Client
	session *session.Session
	nav     gateway.Navigator
	logger  *log.Logger

	mu   sync.RWMutex
	user *core.User

	pending sync.WaitGroup
}

// NewService creates the auth service. nav may be nil.
func NewService(client *api.Client, sess *session.Session, nav gateway.Navigator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		api:     client,
		session: sess,
		nav:     nav,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

// User returns the loaded profile, or nil.
func (s *Service) User() *core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a profile is loaded for a held credential.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.session.Access() != ""
}

func (s *Service) setUser(u *core.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// LoadProfile fetches the profile for the held access credential. Without
// one it returns immediately and sends nothing. When the fetch fails both
// credentials are dropped and the session stays unauthenticated.
func (s *Service) LoadProfile(ctx context.Context) error {
	if s.session.Access() == "" {
		s.setUser(nil)
		return nil
	}

	u, err := s.api.Auth.Profile(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load profile, clearing credentials",
			log.FieldOperation, log.OpRead,
			log.FieldError, err)
		s.setUser(nil)
		if cerr := s.session.Clear(ctx); cerr != nil {
			s.logger.ErrorContext(ctx, "Failed to clear credentials", log.FieldError, cerr)
		}
		return err
	}

	s.setUser(&u)
	return nil
}

// Login stores the credential pair issued for email and password, loads
// the profile and moves to the dashboard.
func (s *Service) Login(ctx context.Context, email, password string) error {
	creds, err := s.api.Auth.Login(ctx, email, password)
	if err != nil {
		return &Error{Message: api.Detail(err, msgLoginFailed), Err: err}
	}
	if creds.Access == "" || creds.Refresh == "" {
		return &Error{Message: msgLoginFailed, Err: errors.New("login response carried no credentials")}
	}

	s.api.Invalidate()
	if err := s.session.SetPair(ctx, creds); err != nil {
		return &Error{Message: msgLoginFailed, Err: err}
	}
	if err := s.LoadProfile(ctx); err != nil {
		return &Error{Message: api.Detail(err, msgLoginFailed), Err: err}
	}

	s.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin, "email", email)
	s.navigate(gateway.DashboardLocation)
	return nil
}

// Register creates the account and logs in with the same email and
// password.
func (s *Service) Register(ctx context.Context, req api.RegisterRequest) error {
	if err := s.api.Auth.Register(ctx, req); err != nil {
		return &Error{Message: api.Message(err, msgRegistrationFailed), Err: err}
	}
	// The account exists at this point; a failed automatic login is still
	// reported as a failed registration.
	if err := s.Login(ctx, req.Email, req.Password); err != nil {
		return &Error{Message: msgRegistrationFailed, Err: err}
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) error {
	u, err := s.api.Auth.UpdateProfile(ctx, upd)
	if err != nil {
		return &Error{Message: api.Message(err, msgUpdateProfileFailed), Err: err}
	}
	s.setUser(&u)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error {
	if err := s.api.Auth.ChangePassword(ctx, req); err != nil {
		return &Error{Message: api.Message(err, msgChangePasswordFailed), Err: err}
	}
	return nil
}

// Logout revokes the refresh credential in the background and clears the
// session right away. The revoke call never blocks or fails the logout.
func (s *Service) Logout(ctx context.Context) {
	// Captured before Clear so the revoke call carries the bearer
	if creds := s.session.Credentials(); creds.Refresh != "" {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
			defer cancel()
			if err := s.api.Auth.Logout(lctx, creds); err != nil {
				s.logger.DebugContext(lctx, "Logout call failed", log.FieldOperation, log.OpLogout, log.FieldError, err)
			}
		}()
	}

	if err := s.session.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear stored credentials", log.FieldOperation, log.OpLogout, log.FieldError, err)
	}
	s.setUser(nil)
	s.api.Invalidate()
	s.logger.InfoContext(ctx, "Logged out", log.FieldOperation, log.OpLogout)
	s.navigate(gateway.LoginLocation)
}

// Wait blocks until background logout calls have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) navigate(path string) {
	if s.nav != nil {
		s.nav.Navigate(path)
	}
}
