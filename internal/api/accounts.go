package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"fincli/internal/core"
)

const accountsPath = "/accounts/"

type AccountsAPI struct{ c *Client }

// List returns the accounts, including archived ones when includeInactive.
func (a *AccountsAPI) List(ctx context.Context, includeInactive bool) ([]core.Account, error) {
	q := url.Values{"include_inactive": {strconv.FormatBool(includeInactive)}}
	return list[core.Account](ctx, a.c, accountsPath, q, true)
}

func (a *AccountsAPI) Create(ctx context.Context, in core.AccountInput) (core.Account, error) {
	var out core.Account
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := a.c.send(ctx, http.MethodPost, accountsPath, in, &out)
	return out, err
}

func (a *AccountsAPI) Update(ctx context.Context, id string, in core.AccountInput) (core.Account, error) {
	var out core.Account
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := a.c.send(ctx, http.MethodPut, itemPath(accountsPath, id), in, &out)
	return out, err
}

// Delete archives the account. Archived accounts can be restored.
func (a *AccountsAPI) Delete(ctx context.Context, id string) error {
	return a.c.send(ctx, http.MethodDelete, itemPath(accountsPath, id), nil, nil)
}

func (a *AccountsAPI) Restore(ctx context.Context, id string) error {
	return a.c.send(ctx, http.MethodPost, itemPath(accountsPath, id)+"restore/", nil, nil)
}
