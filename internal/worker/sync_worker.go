// Package worker drains the mirror queue, copying transactions from
// the SQLite store to the configured mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"kas/internal/amqp"
	"kas/internal/core"
	"kas/internal/mirror"
	"kas/internal/storage"
)

// SyncWorker mirrors transactions from the store to an external sheet.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  mirror.Appender
	remover   mirror.Remover
	batchSize int
}

func NewSyncWorker(store *storage.SQLiteRepository, appender mirror.Appender, remover mirror.Remover, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   store,
		appender:  appender,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors one transaction by id. The message only
// names the row; the worker always reads the current state from the
// store, so a stale message still mirrors the latest version.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "processing sync message", "id", msg.ID, "version", msg.Version)

	t, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume. The delete message
			// cleans up the mirror, nothing to do here.
			slog.WarnContext(ctx, "transaction gone before sync", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.mirrorTransaction(ctx, t)
}

// HandleDeleteMessage removes a mirrored row. The source row is gone,
// so the message carries the values that identify the mirror row.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "processing delete message", "id", msg.ID)

	if w.remover == nil {
		slog.WarnContext(ctx, "no mirror remover configured, skipping", "id", msg.ID)
		return nil
	}

	req := mirror.RemoveRequest{
		Date:        msg.Date,
		Type:        msg.Type,
		Description: msg.Description,
		AmountCents: msg.AmountCents,
	}
	if err := w.remover.Remove(ctx, req); err != nil {
		if errors.Is(err, mirror.ErrRowNotFound) {
			// Never mirrored or already removed.
			slog.WarnContext(ctx, "mirrored row not found for delete", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("remove mirrored row: %w", err)
	}

	slog.InfoContext(ctx, "removed mirrored row", "id", msg.ID)
	return nil
}

// ProcessPending mirrors queued transactions that have not reached the
// mirror yet. It backs up the AMQP path when messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch of the pending queue when the
// worker starts, recovering from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "no pending transactions on startup")
		return nil
	}
	slog.InfoContext(ctx, "found pending transactions on startup", "count", len(pending))
	return w.mirrorPending(ctx, pending)
}

func (w *SyncWorker) processPendingBatch(ctx context.Context, limit int) error {
	pending, err := w.storage.PendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	slog.InfoContext(ctx, "processing pending transactions", "count", len(pending))
	return w.mirrorPending(ctx, pending)
}

// mirrorPending appends pending rows concurrently. Failures are marked
// on the row and do not stop the batch.
func (w *SyncWorker) mirrorPending(ctx context.Context, pending []storage.PendingTransaction) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range pending {
		g.Go(func() error {
			t, err := w.storage.GetTransaction(ctx, p.ID)
			if err != nil {
				slog.ErrorContext(ctx, "failed to load pending transaction", "id", p.ID, "error", err)
				if markErr := w.storage.MarkSyncError(ctx, p.ID); markErr != nil {
					slog.ErrorContext(ctx, "failed to mark sync error", "id", p.ID, "error", markErr)
				}
				return nil
			}
			if err := w.mirrorTransaction(ctx, t); err != nil {
				slog.ErrorContext(ctx, "failed to mirror transaction", "id", p.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, t core.Transaction) error {
	if w.appender == nil {
		return errors.New("no mirror appender configured")
	}

	rowRef, err := w.appender.Append(ctx, t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "failed to mark sync error", "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, t.ID); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "mirrored transaction", "id", t.ID, "row_ref", rowRef)
	return nil
}
