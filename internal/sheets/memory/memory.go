// Package memory is an in-process TransactionWriter used when no
// spreadsheet is configured, and by tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fincli/internal/core"
	ports "fincli/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any
	ids  map[string]int
}

var _ ports.TransactionWriter = (*Store)(nil)

func New() *Store {
	return &Store{ids: make(map[string]int)}
}

// AppendTransaction stores the row and returns a synthetic row reference.
// Appending the same transaction twice returns the original reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", errors.New("transaction has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.ids[tx.ID]; ok {
		return fmt.Sprintf("mem:%d", n), nil
	}
	s.rows = append(s.rows, ports.Row(tx))
	s.ids[tx.ID] = len(s.rows)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of every stored row.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
