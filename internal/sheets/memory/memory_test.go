package memory

import (
	"context"
	"testing"

	"fincli/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()
	tx := core.Transaction{ID: "t1", Date: "2026-01-02", Description: "Rent", Amount: core.Money{Cents: 90000}, Type: core.TypeExpense}

	ref, err := s.AppendTransaction(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = s.AppendTransaction(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("duplicate append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0][1] != "Rent" || rows[0][2] != 900.0 {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestMemoryStoreRejectsMissingID(t *testing.T) {
	if _, err := New().AppendTransaction(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected error for transaction without ID")
	}
}
