package api

import (
	"context"
	"net/http"

	"fincli/internal/core"
	"fincli/internal/gateway"
	"fincli/internal/session"
)

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Username        string `json:"username,omitempty"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	FullName        string `json:"full_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	DefaultCurrency string `json:"default_currency,omitempty"`
	Theme           string `json:"theme,omitempty"`
}

// ProfileUpdate carries the profile fields to change. Empty fields are not
// sent.
type ProfileUpdate struct {
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	FullName        string `json:"full_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	DefaultCurrency string `json:"default_currency,omitempty"`
	Theme           string `json:"theme,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

type AuthAPI struct{ c *Client }

// Login exchanges email and password for a credential pair.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (session.Credentials, error) {
	var creds session.Credentials
	err := a.c.send(ctx, http.MethodPost, "/auth/login/", map[string]string{
		"email":    email,
		"password": password,
	}, &creds)
	return creds, err
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) error {
	return a.c.send(ctx, http.MethodPost, "/auth/register/", req, nil)
}

// Logout revokes the refresh credential on the backend, authenticated with
// access. The session may already be cleared when it runs.
func (a *AuthAPI) Logout(ctx context.Context, creds session.Credentials) error {
	return a.c.sendRequest(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/logout/",
		Body:   map[string]string{"refresh": creds.Refresh},
		Access: creds.Access,
	}, nil)
}

func (a *AuthAPI) Profile(ctx context.Context) (core.User, error) {
	var u core.User
	err := a.c.get(ctx, "/auth/profile/", nil, &u, false)
	return u, err
}

func (a *AuthAPI) UpdateProfile(ctx context.Context, upd ProfileUpdate) (core.User, error) {
	var u core.User
	err := a.c.send(ctx, http.MethodPut, "/auth/profile/", upd, &u)
	return u, err
}

func (a *AuthAPI) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return a.c.send(ctx, http.MethodPut, "/auth/change-password/", req, nil)
}
