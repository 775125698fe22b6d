package memory

import (
	"context"
	"errors"
	"testing"

	"kas/internal/core"
	"kas/internal/mirror"
)

func testTransaction(t *testing.T, desc string, cents int64) core.Transaction {
	t.Helper()
	date, err := core.ParseDate("2024-03-10")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	return core.Transaction{
		ID:          1,
		Type:        core.Income,
		Category:    "penjualan",
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Date:        date,
	}
}

func TestAppendAndRows(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, testTransaction(t, "pembayaran klien", 150000000))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	ref, err = s.Append(ctx, testTransaction(t, "dp proyek", 50000000))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:2" {
		t.Errorf("ref = %q, want mem:2", ref)
	}

	if got := len(s.Rows()); got != 2 {
		t.Errorf("len(Rows) = %d, want 2", got)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := testTransaction(t, "x", 100)
	bad.Type = ""
	if _, err := s.Append(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRemove(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx := testTransaction(t, "pembayaran klien", 150000000)
	if _, err := s.Append(ctx, tx); err != nil {
		t.Fatalf("Append: %v", err)
	}

	req := mirror.RemoveRequest{
		Date:        tx.Date.String(),
		Type:        string(tx.Type),
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
	}
	if err := s.Remove(ctx, req); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := len(s.Rows()); got != 0 {
		t.Errorf("len(Rows) = %d, want 0", got)
	}

	if err := s.Remove(ctx, req); !errors.Is(err, mirror.ErrRowNotFound) {
		t.Errorf("second Remove = %v, want ErrRowNotFound", err)
	}
}
