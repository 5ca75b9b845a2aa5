// Package session owns the access/refresh credential pair.
//
// A Session is created once per process, hydrated from a Store and then
// shared by the request gateway (reads on every request, writes on refresh)
// and the auth service (writes on login, clears on logout). All reads are
// served from memory; writes go through to the Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Credentials is the bearer credential pair issued by the backend.
type Credentials struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether neither credential is held.
func (c Credentials) Empty() bool {
	return c.Access == "" && c.Refresh == ""
}

type Session struct {
	mu    sync.RWMutex
	store Store
	creds Credentials
}

// New creates a session backed by store. Call Load to pick up credentials
// persisted by an earlier process.
func New(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store}
}

// Load reads both slots from the store. Missing slots are treated as empty.
func (s *Session) Load(ctx context.Context) error {
	access, err := s.get(ctx, KeyAccess)
	if err != nil {
		return err
	}
	refresh, err := s.get(ctx, KeyRefresh)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = Credentials{Access: access, Refresh: refresh}
	s.mu.Unlock()
	return nil
}

// Reload reads the store again when no credential is held in memory, so a
// pair written by another process is picked up. It reports whether a
// credential is held afterwards.
func (s *Session) Reload(ctx context.Context) (bool, error) {
	if !s.Credentials().Empty() {
		return true, nil
	}
	if err := s.Load(ctx); err != nil {
		return false, err
	}
	return !s.Credentials().Empty(), nil
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// Credentials returns a snapshot of the pair.
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Access returns the access credential, or "" when none is held.
func (s *Session) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Access
}

// RefreshToken returns the refresh credential, or "" when none is held.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Refresh
}

// SetPair replaces both credentials, as after login.
func (s *Session) SetPair(ctx context.Context, c Credentials) error {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()

	if err := s.store.Set(ctx, KeyAccess, c.Access); err != nil {
		return fmt.Errorf("store access credential: %w", err)
	}
	if err := s.store.Set(ctx, KeyRefresh, c.Refresh); err != nil {
		return fmt.Errorf("store refresh credential: %w", err)
	}
	return nil
}

// SetAccess replaces only the access credential, as after a refresh.
func (s *Session) SetAccess(ctx context.Context, access string) error {
	s.mu.Lock()
	s.creds.Access = access
	s.mu.Unlock()

	if err := s.store.Set(ctx, KeyAccess, access); err != nil {
		return fmt.Errorf("store access credential: %w", err)
	}
	return nil
}

// Clear drops both credentials. The in-memory pair is always cleared, even
// when the store fails.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, KeyAccess, KeyRefresh); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
