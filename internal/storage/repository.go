// Package storage persists ledger transactions in SQLite and compiles
// list filters into SQL predicates.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kas/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the transaction store. One instance owns the
// database handle; it is injected into every component that needs
// storage access instead of living in a package-level variable.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies the database connection, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Order selects the listing sort.
type Order int

const (
	// NewestFirst is the default listing order: date descending, then
	// id descending.
	NewestFirst Order = iota
	// Chronological sorts by date ascending, then id ascending. Report
	// exports use it.
	Chronological
)

func (o Order) clause() string {
	if o == Chronological {
		return "ORDER BY t.date ASC, t.id ASC"
	}
	return "ORDER BY t.date DESC, t.id DESC"
}

// buildWhere compiles an optional-field filter into a WHERE clause.
// Present fields combine with AND; date bounds are inclusive. An empty
// filter yields an empty clause.
func buildWhere(f core.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.To.String())
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		conds = append(conds, "t.category = ?")
		args = append(args, f.Category)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// CreateTransaction stores a new transaction and returns its id. The
// row starts in sync_status=pending for the mirror worker.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (type, category, project_id, description, amount_cents, date, method, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Type),
		nullString(t.Category),
		t.ProjectID,
		nullString(t.Description),
		t.Amount.Cents,
		t.Date.String(),
		nullString(string(t.Method)),
		nullString(t.Note),
	)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return id, nil
}

// UpdateTransaction replaces every mutable field of the row and
// returns the bumped row version. Omitted optional fields become NULL,
// not "leave unchanged". Returns core.ErrNotFound when the id does not
// exist.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, t core.Transaction) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET type = ?, category = ?, project_id = ?, description = ?, amount_cents = ?,
		    date = ?, method = ?, note = ?,
		    sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING version`,
		string(t.Type),
		nullString(t.Category),
		t.ProjectID,
		nullString(t.Description),
		t.Amount.Cents,
		t.Date.String(),
		nullString(string(t.Method)),
		nullString(t.Note),
		id,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	return version, nil
}

// DeleteTransaction removes the row permanently. Deleting an absent id
// reports core.ErrNotFound; the delete is not an idempotent no-op.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT t.id, t.type, t.category, t.project_id, p.name, t.description,
	       t.amount_cents, t.date, t.method, t.note
	FROM transactions t
	LEFT JOIN projects p ON p.id = t.project_id`

// GetTransaction fetches a single row by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns the rows matching the filter in the given
// order. No matches yields an empty, non-nil slice.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.Filter, order Order) ([]core.Transaction, error) {
	where, args := buildWhere(f)
	rows, err := r.db.QueryContext(ctx, selectColumns+" "+where+" "+order.clause(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	list := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}

// MonthlyTotals sums income and expense per calendar month of the
// year. Months without transactions are absent from the result; the
// aggregator fills them in.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, year int) ([]core.MonthAggregate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CAST(strftime('%m', date) AS INTEGER) AS m,
		       SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END) AS income,
		       SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END) AS expense
		FROM transactions
		WHERE date >= ? AND date <= ?
		GROUP BY m
		ORDER BY m`,
		fmt.Sprintf("%04d-01-01", year),
		fmt.Sprintf("%04d-12-31", year),
	)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []core.MonthAggregate
	for rows.Next() {
		var a core.MonthAggregate
		if err := rows.Scan(&a.Month, &a.IncomeCents, &a.ExpenseCents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		totals = append(totals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return totals, nil
}

// Overview carries the dashboard aggregates: all-time totals plus the
// totals of one specific month.
type Overview struct {
	Transactions      int64
	Projects          int64
	IncomeAllCents    int64
	ExpenseAllCents   int64
	IncomeMonthCents  int64
	ExpenseMonthCents int64
}

// OverviewTotals computes the dashboard summary in one round trip.
func (r *SQLiteRepository) OverviewTotals(ctx context.Context, year, month int) (Overview, error) {
	firstDay := fmt.Sprintf("%04d-%02d-01", year, month)
	lastDay := core.Date{Time: time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)}.String()

	var o Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM projects),
			(SELECT IFNULL(SUM(amount_cents), 0) FROM transactions WHERE type = 'income'),
			(SELECT IFNULL(SUM(amount_cents), 0) FROM transactions WHERE type = 'expense'),
			(SELECT IFNULL(SUM(amount_cents), 0) FROM transactions WHERE type = 'income' AND date >= ? AND date <= ?),
			(SELECT IFNULL(SUM(amount_cents), 0) FROM transactions WHERE type = 'expense' AND date >= ? AND date <= ?)`,
		firstDay, lastDay, firstDay, lastDay,
	).Scan(&o.Transactions, &o.Projects, &o.IncomeAllCents, &o.ExpenseAllCents, &o.IncomeMonthCents, &o.ExpenseMonthCents)
	if err != nil {
		return Overview{}, fmt.Errorf("overview totals: %w", err)
	}
	return o, nil
}

// PendingTransaction is the minimal row the mirror worker needs to
// queue a sync.
type PendingTransaction struct {
	ID      int64
	Version int64
}

// PendingSync returns transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get pending transactions: %w", err)
	}
	return pending, nil
}

// MarkSynced records a successful mirror write.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

// MarkSyncError records a failed mirror write so the periodic scan
// stops retrying it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// CreateProject registers a project display name. Exists for the
// external project module and for tests; the ledger itself only reads
// the table through the listing join.
func (r *SQLiteRepository) CreateProject(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO projects (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted project id: %w", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t           core.Transaction
		category    sql.NullString
		projectID   sql.NullInt64
		projectName sql.NullString
		description sql.NullString
		method      sql.NullString
		note        sql.NullString
		date        string
		cents       int64
		typ         string
	)
	if err := row.Scan(&t.ID, &typ, &category, &projectID, &projectName, &description, &cents, &date, &method, &note); err != nil {
		return core.Transaction{}, err
	}

	t.Type = core.Type(typ)
	t.Category = category.String
	if projectID.Valid {
		id := projectID.Int64
		t.ProjectID = &id
	}
	t.ProjectName = projectName.String
	t.Description = description.String
	t.Amount = core.Money{Cents: cents}
	t.Method = core.Method(method.String)
	t.Note = note.String

	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = d
	return t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
