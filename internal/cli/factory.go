package cli

import (
	"context"
	"fmt"

	"fincli/internal/config"
	"fincli/internal/log"
	"fincli/internal/session"
	"fincli/internal/storage"
)

// CredentialStore is a session.Store that may hold resources.
type CredentialStore interface {
	session.Store
	Close() error
}

type memoryStore struct{ *session.MemoryStore }

func (memoryStore) Close() error { return nil }

// OpenCredentialStore opens the store selected by CREDENTIAL_BACKEND.
func OpenCredentialStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (CredentialStore, error) {
	logger.Debug("Opening credential store", log.FieldBackend, cfg.CredentialBackend)

	switch cfg.CredentialBackend {
	case config.BackendMemory:
		return memoryStore{session.NewMemoryStore()}, nil
	case config.BackendSQLite:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	case config.BackendRedis:
		store, err := storage.NewRedisStore(ctx, storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported credential backend: %s", cfg.CredentialBackend)
	}
}

// OpenLedger returns the SQLite import ledger. When the credential store is
// already the SQLite database it is shared; the returned closer is then a
// no-op.
func OpenLedger(cfg *config.Config, store CredentialStore, logger *log.Logger) (*storage.SQLiteStore, func() error, error) {
	if s, ok := store.(*storage.SQLiteStore); ok {
		return s, func() error { return nil }, nil
	}
	s, err := storage.NewSQLiteStore(cfg.SQLiteDBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize import ledger: %w", err)
	}
	return s, s.Close, nil
}
