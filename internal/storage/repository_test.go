package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kas/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "kas.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *SQLiteRepository, tx core.Transaction) int64 {
	t.Helper()
	id, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return id
}

func TestCreateGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	pid, err := repo.CreateProject(ctx, "Website Redesign")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	in := core.Transaction{
		Type:        core.Income,
		Category:    "project_payment",
		ProjectID:   &pid,
		Description: "first instalment",
		Amount:      core.Money{Cents: 150000},
		Date:        core.NewDate(2025, 1, 10),
		Method:      core.Transfer,
		Note:        "wired from client",
	}
	id := mustCreate(t, repo, in)

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.ID != id {
		t.Fatalf("expected id %d, got %d", id, got.ID)
	}
	if got.Type != in.Type || got.Category != in.Category || got.Description != in.Description ||
		got.Amount != in.Amount || got.Date.String() != in.Date.String() ||
		got.Method != in.Method || got.Note != in.Note {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, got)
	}
	if got.ProjectID == nil || *got.ProjectID != pid {
		t.Fatalf("project id lost: %+v", got.ProjectID)
	}
	if got.ProjectName != "Website Redesign" {
		t.Fatalf("expected joined project name, got %q", got.ProjectName)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetTransaction(context.Background(), 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateFullReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := mustCreate(t, repo, core.Transaction{
		Type:        core.Income,
		Category:    "project_payment",
		Description: "deposit",
		Amount:      core.Money{Cents: 100000},
		Date:        core.NewDate(2025, 1, 10),
		Method:      core.Cash,
		Note:        "keep",
	})

	// Omitted optional fields mean "no value", not "leave unchanged".
	replacement := core.Transaction{
		Type:   core.Expense,
		Amount: core.Money{Cents: 2500},
		Date:   core.NewDate(2025, 3, 1),
	}
	version, err := repo.UpdateTransaction(ctx, id, replacement)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if version != 2 {
		t.Fatalf("version after first update = %d, want 2", version)
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Type != core.Expense || got.Amount.Cents != 2500 || got.Date.String() != "2025-03-01" {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Category != "" || got.Description != "" || got.Note != "" || got.Method != "" || got.ProjectID != nil {
		t.Fatalf("optional fields should have been cleared: %+v", got)
	}

	if _, err := repo.UpdateTransaction(ctx, 12345, replacement); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent id, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := mustCreate(t, repo, core.Transaction{
		Type:   core.Expense,
		Amount: core.Money{Cents: 500},
		Date:   core.NewDate(2025, 2, 2),
	})

	if err := repo.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is not an idempotent no-op.
	if err := repo.DeleteTransaction(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}

	// Deleted rows vanish from aggregations.
	totals, err := repo.MonthlyTotals(ctx, 2025)
	if err != nil {
		t.Fatalf("monthly totals: %v", err)
	}
	if len(totals) != 0 {
		t.Fatalf("expected no totals after delete, got %+v", totals)
	}
}

func seedScenario(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	mustCreate(t, repo, core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 100000},
		Date: core.NewDate(2025, 1, 10), Category: "project_payment",
	})
	mustCreate(t, repo, core.Transaction{
		Type: core.Expense, Amount: core.Money{Cents: 40000},
		Date: core.NewDate(2025, 1, 20), Category: "hosting",
	})
	mustCreate(t, repo, core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 50000},
		Date: core.NewDate(2025, 2, 5), Category: "project_payment",
	})
}

func TestListFilteringAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedScenario(t, repo)

	all, err := repo.ListTransactions(ctx, core.Filter{}, NewestFirst)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	if all[0].Date.String() != "2025-02-05" || all[2].Date.String() != "2025-01-10" {
		t.Fatalf("default order should be newest first: %s .. %s", all[0].Date, all[2].Date)
	}

	cases := []struct {
		name string
		f    core.Filter
		want int
	}{
		{"january inclusive bounds", core.Filter{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 1, 31)}, 2},
		{"from on transaction date", core.Filter{From: core.NewDate(2025, 2, 5)}, 1},
		{"type", core.Filter{Type: core.Income}, 2},
		{"category", core.Filter{Category: "hosting"}, 1},
		{"type and category", core.Filter{Type: core.Income, Category: "hosting"}, 0},
	}
	for _, tc := range cases {
		got, err := repo.ListTransactions(ctx, tc.f, NewestFirst)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d rows, got %d", tc.name, tc.want, len(got))
		}
		// Filtering only narrows: every match must appear in the
		// unfiltered listing and satisfy the predicate.
		for _, tx := range got {
			if !tc.f.Matches(tx) {
				t.Fatalf("%s: row %d does not match its own filter", tc.name, tx.ID)
			}
		}
	}

	export, err := repo.ListTransactions(ctx,
		core.Filter{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 1, 31)}, Chronological)
	if err != nil {
		t.Fatalf("export list: %v", err)
	}
	if len(export) != 2 || export[0].Date.String() != "2025-01-10" || export[1].Date.String() != "2025-01-20" {
		t.Fatalf("export order should be chronological: %+v", export)
	}
}

func TestMonthlyTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedScenario(t, repo)
	// A different year must not leak in.
	mustCreate(t, repo, core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 777}, Date: core.NewDate(2024, 12, 31),
	})

	rows, err := repo.MonthlyTotals(ctx, 2025)
	if err != nil {
		t.Fatalf("monthly totals: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 sparse months, got %+v", rows)
	}
	s := core.BuildYearSummary(2025, rows)
	if s.Series[0].Income.Cents != 100000 || s.Series[0].Expense.Cents != 40000 || s.Series[0].Balance.Cents != 60000 {
		t.Fatalf("january: %+v", s.Series[0])
	}
	if s.Series[1].Balance.Cents != 110000 {
		t.Fatalf("february balance: %+v", s.Series[1])
	}
}

func TestOverviewTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedScenario(t, repo)

	o, err := repo.OverviewTotals(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if o.Transactions != 3 {
		t.Fatalf("expected 3 transactions, got %d", o.Transactions)
	}
	if o.IncomeAllCents != 150000 || o.ExpenseAllCents != 40000 {
		t.Fatalf("all-time totals: %+v", o)
	}
	if o.IncomeMonthCents != 100000 || o.ExpenseMonthCents != 40000 {
		t.Fatalf("january totals: %+v", o)
	}
}

func TestSyncQueue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreate(t, repo, core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 5, 5),
	})

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id || pending[0].Version != 1 {
		t.Fatalf("expected fresh row pending at version 1, got %+v", pending)
	}

	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending after sync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue, got %+v", pending)
	}

	// A full replace re-queues the row with a bumped version.
	if _, err := repo.UpdateTransaction(ctx, id, core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 200}, Date: core.NewDate(2025, 5, 6),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending after update: %v", err)
	}
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("expected re-queued row at version 2, got %+v", pending)
	}

	if err := repo.MarkSyncError(ctx, id); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending after error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("errored rows must leave the pending queue, got %+v", pending)
	}
}
