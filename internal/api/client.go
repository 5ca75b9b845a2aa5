// Package api provides typed access to the backend resources. Every call
// goes through the authenticated gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"fincli/internal/cache"
	"fincli/internal/gateway"
	"fincli/internal/log"
)

// Doer sends one backend request.
type Doer interface {
	Do(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// Config holds client configuration
type Config struct {
	// CacheTTL enables the response cache for account and category lists
	// when positive.
	CacheTTL  time.Duration
	CacheSize int
	Logger    *log.Logger
}

type Client struct {
	doer   Doer
	cache  *cache.LRUCache[[]byte]
	logger *log.Logger
	// generation changes on every invalidation; a response fetched across
	// a change is not cached.
	generation atomic.Uint64

	Auth         *AuthAPI
	Accounts     *AccountsAPI
	Categories   *CategoriesAPI
	Transactions *TransactionsAPI
	Reports      *ReportsAPI
}

// Mutations under a resource also stale the lists derived from it.
var invalidates = map[string][]string{
	"/accounts/":     {"/accounts/"},
	"/categories/":   {"/categories/"},
	"/transactions/": {"/transactions/", "/accounts/", "/categories/"},
}

// New creates a client sending through doer.
func New(doer Doer, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	c := &Client{
		doer:   doer,
		logger: cfg.Logger.WithComponent(log.ComponentAPI),
	}
	if cfg.CacheTTL > 0 {
		size := cfg.CacheSize
		if size <= 0 {
			size = 64
		}
		c.cache = cache.NewLRUCache[[]byte](size, cfg.CacheTTL)
	}

	c.Auth = &AuthAPI{c: c}
	c.Accounts = &AccountsAPI{c: c}
	c.Categories = &CategoriesAPI{c: c}
	c.Transactions = &TransactionsAPI{c: c}
	c.Reports = &ReportsAPI{c: c}
	return c
}

// Cache returns the response cache, or nil when caching is disabled.
func (c *Client) Cache() *cache.LRUCache[[]byte] { return c.cache }

// Invalidate drops every cached response. Called whenever the identity
// behind the session changes.
func (c *Client) Invalidate() {
	if c.cache != nil {
		c.generation.Add(1)
		c.cache.Purge()
	}
}

// get fetches path and decodes the body into out. Cacheable responses are
// served from the cache when fresh.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any, cacheable bool) error {
	key := cacheKey(path, query)
	if cacheable && c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			c.logger.DebugContext(ctx, "Serving cached response", log.FieldPath, key)
			return decode(body, out)
		}
	}

	gen := c.generation.Load()
	resp, err := c.doer.Do(ctx, &gateway.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		c.dropOnExpiry(err)
		return err
	}
	if cacheable && c.cache != nil && c.generation.Load() == gen {
		c.cache.Set(key, resp.Body)
	}
	return decode(resp.Body, out)
}

// send performs a mutating call and invalidates cached lists it affects.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.sendRequest(ctx, &gateway.Request{Method: method, Path: path, Body: body}, out)
}

func (c *Client) sendRequest(ctx context.Context, req *gateway.Request, out any) error {
	path := req.Path
	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		c.dropOnExpiry(err)
		return err
	}
	c.invalidate(path)
	if out == nil {
		return nil
	}
	return decode(resp.Body, out)
}

// dropOnExpiry purges the cache when the session was cleared by a failed
// refresh.
func (c *Client) dropOnExpiry(err error) {
	if errors.Is(err, gateway.ErrSessionExpired) {
		c.Invalidate()
	}
}

func (c *Client) invalidate(path string) {
	if c.cache == nil {
		return
	}
	c.generation.Add(1)
	for root, prefixes := range invalidates {
		if !strings.HasPrefix(path, root) {
			continue
		}
		for _, p := range prefixes {
			c.cache.DeletePrefix(p)
		}
	}
}

func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeList accepts either a bare JSON array or a paginated envelope.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}
	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page.Results, nil
}

// list fetches path and decodes either list shape.
func list[T any](ctx context.Context, c *Client, path string, query url.Values, cacheable bool) ([]T, error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, query, &raw, cacheable); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

func itemPath(root, id string) string {
	return root + url.PathEscape(id) + "/"
}
