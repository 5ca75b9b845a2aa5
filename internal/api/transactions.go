package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"fincli/internal/core"
)

const transactionsPath = "/transactions/"

type TransactionsAPI struct{ c *Client }

// List returns one page of transactions matching f. A bare array response
// is wrapped into a single page.
func (a *TransactionsAPI) List(ctx context.Context, f core.TransactionFilter, page int) (core.TransactionPage, error) {
	var raw json.RawMessage
	if err := a.c.get(ctx, transactionsPath, f.Query(page), &raw, false); err != nil {
		return core.TransactionPage{}, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var p core.TransactionPage
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return p, fmt.Errorf("decode transactions: %w", err)
		}
		if p.Results == nil {
			p.Results = []core.Transaction{}
		}
		return p, nil
	}

	items, err := decodeList[core.Transaction](trimmed)
	if err != nil {
		return core.TransactionPage{}, err
	}
	return core.TransactionPage{Count: len(items), Results: items}, nil
}

func (a *TransactionsAPI) Get(ctx context.Context, id string) (core.Transaction, error) {
	var out core.Transaction
	err := a.c.get(ctx, itemPath(transactionsPath, id), nil, &out, false)
	return out, err
}

func (a *TransactionsAPI) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := a.c.send(ctx, http.MethodPost, transactionsPath, in, &out)
	return out, err
}

func (a *TransactionsAPI) Update(ctx context.Context, id string, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := a.c.send(ctx, http.MethodPut, itemPath(transactionsPath, id), in, &out)
	return out, err
}

func (a *TransactionsAPI) Delete(ctx context.Context, id string) error {
	return a.c.send(ctx, http.MethodDelete, itemPath(transactionsPath, id), nil, nil)
}

func (a *TransactionsAPI) Dashboard(ctx context.Context) (core.Dashboard, error) {
	var out core.Dashboard
	err := a.c.get(ctx, transactionsPath+"dashboard/", nil, &out, false)
	return out, err
}

// ByCategory returns totals per category for the given transaction type.
func (a *TransactionsAPI) ByCategory(ctx context.Context, t core.TransactionType) ([]core.CategoryTotal, error) {
	var q url.Values
	if t != "" {
		q = url.Values{"type": {string(t)}}
	}
	return list[core.CategoryTotal](ctx, a.c, transactionsPath+"by_category/", q, false)
}

func (a *TransactionsAPI) MonthlyEvolution(ctx context.Context) ([]core.MonthlyPoint, error) {
	return list[core.MonthlyPoint](ctx, a.c, transactionsPath+"monthly_evolution/", nil, false)
}
