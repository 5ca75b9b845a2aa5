package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"fincli/internal/auth"
	"fincli/internal/core"
	"fincli/internal/gateway"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"frobnicate"}))
}

func TestErrorMessage(t *testing.T) {
	fieldErr := &gateway.HTTPError{
		Method:     "POST",
		Path:       "/transactions/",
		StatusCode: 400,
		Body:       []byte(`{"amount":["Ensure this value is greater than 0."]}`),
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth error keeps its message", &auth.Error{Message: "login failed", Err: fieldErr}, "login failed"},
		{"field error", fmt.Errorf("create: %w", fieldErr), "Ensure this value is greater than 0."},
		{"expired session", &gateway.RefreshError{Err: errors.New("boom")}, "session expired, please log in again"},
		{"plain error", errors.New("disk full"), "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.err))
		})
	}
}

func TestSingleID(t *testing.T) {
	id, err := singleID("rm", []string{"tx-1"})
	assert.NoError(t, err)
	assert.Equal(t, "tx-1", id)

	_, err = singleID("rm", nil)
	assert.ErrorIs(t, err, errUsage)
}

func TestParseReportsUsage(t *testing.T) {
	fs := newFlags("accounts")
	fs.Bool("inactive", false, "")
	assert.ErrorIs(t, parse("accounts", fs, []string{"-nope"}), errUsage)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "unknown user", displayName(nil))
	assert.Equal(t, "Ana Rossi", displayName(&core.User{FirstName: "Ana", LastName: "Rossi"}))
	assert.Equal(t, "ana@example.com", displayName(&core.User{Email: "ana@example.com"}))
}
