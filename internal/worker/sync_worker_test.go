package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"kas/internal/amqp"
	"kas/internal/core"
	"kas/internal/mirror/memory"
	"kas/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTransaction(t *testing.T, day string, typ core.Type, desc string, cents int64) core.Transaction {
	t.Helper()
	date, err := core.ParseDate(day)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	return core.Transaction{
		Type:        typ,
		Category:    "operasional",
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Method:      core.Cash,
	}
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, sheet, 10)

	id, err := repo.CreateTransaction(ctx, newTransaction(t, "2024-04-01", core.Income, "pembayaran klien", 250000000))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	msg := amqp.NewTransactionSyncMessage(id, 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	rows := sheet.Rows()
	if len(rows) != 1 {
		t.Fatalf("mirrored rows = %d, want 1", len(rows))
	}
	if rows[0].Description != "pembayaran klien" {
		t.Errorf("Description = %q", rows[0].Description)
	}

	// The row left the pending queue.
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestHandleSyncMessageGoneRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, sheet, 10)

	// A sync message for a row deleted before the worker saw it is not
	// an error; the delete message covers the mirror side.
	msg := amqp.NewTransactionSyncMessage(9999, 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Error("nothing should be mirrored for a missing row")
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, sheet, 10)

	tx := newTransaction(t, "2024-04-02", core.Expense, "sewa kantor", 150000000)
	id, err := repo.CreateTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(id, 1)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(sheet.Rows()) != 1 {
		t.Fatalf("mirrored rows = %d, want 1", len(sheet.Rows()))
	}

	tx.ID = id
	if err := w.HandleDeleteMessage(ctx, amqp.NewTransactionDeleteMessage(tx)); err != nil {
		t.Fatalf("HandleDeleteMessage: %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Errorf("mirrored rows = %d, want 0 after delete", len(sheet.Rows()))
	}

	// A second delete finds nothing and is still not an error.
	if err := w.HandleDeleteMessage(ctx, amqp.NewTransactionDeleteMessage(tx)); err != nil {
		t.Fatalf("repeat HandleDeleteMessage: %v", err)
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, sheet, 10)

	for i, desc := range []string{"gaji staf", "listrik", "internet"} {
		day := fmt.Sprintf("2024-05-%02d", i+1)
		if _, err := repo.CreateTransaction(ctx, newTransaction(t, day, core.Expense, desc, 100000)); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if got := len(sheet.Rows()); got != 3 {
		t.Errorf("mirrored rows = %d, want 3", got)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}

	// Idempotent on an empty queue.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second ProcessPending: %v", err)
	}
	if got := len(sheet.Rows()); got != 3 {
		t.Errorf("mirrored rows = %d after re-run, want 3", got)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, sheet, 2)

	for i := 0; i < 5; i++ {
		day := fmt.Sprintf("2024-06-%02d", i+1)
		if _, err := repo.CreateTransaction(ctx, newTransaction(t, day, core.Income, "setoran", 5000000)); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	// Startup check drains more than one regular batch.
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if got := len(sheet.Rows()); got != 5 {
		t.Errorf("mirrored rows = %d, want 5", got)
	}
}

func TestUpdateRequeuesForMirror(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, sheet, 10)

	tx := newTransaction(t, "2024-07-01", core.Expense, "bahan baku", 7500000)
	id, err := repo.CreateTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	tx.Description = "bahan baku revisi"
	if _, err := repo.UpdateTransaction(ctx, id, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending after update: %v", err)
	}
	rows := sheet.Rows()
	if len(rows) != 2 {
		t.Fatalf("mirrored rows = %d, want 2", len(rows))
	}
	if rows[1].Description != "bahan baku revisi" {
		t.Errorf("latest mirrored description = %q", rows[1].Description)
	}
}
