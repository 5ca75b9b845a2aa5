// Package storage persists credentials and the import ledger outside the
// process.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fincli/internal/log"
	"fincli/internal/session"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps credential slots and the import ledger in one SQLite
// file.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

var _ session.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE name = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set credential %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "Credential stored", log.FieldOperation, log.OpUpdate, "slot", key)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, key); err != nil {
			return fmt.Errorf("delete credential %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	s.logger.DebugContext(ctx, "Credentials deleted", log.FieldOperation, log.OpDelete, "slots", len(keys))
	return nil
}

// ImportedTransaction returns the transaction created for messageID, or ""
// when the message has not been imported yet.
func (s *SQLiteStore) ImportedTransaction(ctx context.Context, messageID string) (string, error) {
	var txID string
	err := s.db.QueryRowContext(ctx,
		`SELECT transaction_id FROM imports WHERE message_id = ?`, messageID).Scan(&txID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup import %s: %w", messageID, err)
	}
	return txID, nil
}

// MarkImported records that messageID produced transactionID.
func (s *SQLiteStore) MarkImported(ctx context.Context, messageID, transactionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (message_id, transaction_id, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(message_id) DO NOTHING`,
		messageID, transactionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record import %s: %w", messageID, err)
	}
	s.logger.InfoContext(ctx, "Import recorded",
		log.FieldMessageID, messageID,
		log.FieldTransactionID, transactionID)
	return nil
}
