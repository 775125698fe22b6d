package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kas/internal/core"
	"kas/internal/export"
	"kas/internal/storage"
)

type transactionRequest struct {
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	ProjectID   *int64      `json:"project_id"`
	Description string      `json:"description"`
	Amount      *core.Money `json:"amount"`
	Date        string      `json:"date"`
	Method      string      `json:"method"`
	Note        string      `json:"note"`
}

type transactionResponse struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Category    string     `json:"category,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
	ProjectName string     `json:"project_name,omitempty"`
	Description string     `json:"description,omitempty"`
	Amount      core.Money `json:"amount"`
	Date        core.Date  `json:"date"`
	Method      string     `json:"method,omitempty"`
	Note        string     `json:"note,omitempty"`
}

func toResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		Category:    t.Category,
		ProjectID:   t.ProjectID,
		ProjectName: t.ProjectName,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        t.Date,
		Method:      string(t.Method),
		Note:        t.Note,
	}
}

// decodeTransaction parses and validates a write body.
func decodeTransaction(r *http.Request) (core.Transaction, error) {
	var req transactionRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		return core.Transaction{}, invalidParam("body", "malformed JSON: "+err.Error())
	}

	if req.Amount == nil {
		return core.Transaction{}, invalidParam("amount", "is required")
	}
	if req.Date == "" {
		return core.Transaction{}, invalidParam("date", "is required")
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, invalidParam("date", "must be YYYY-MM-DD")
	}

	t := core.Transaction{
		Type:        core.Type(sanitizeInput(req.Type)),
		Category:    sanitizeInput(req.Category),
		ProjectID:   req.ProjectID,
		Description: sanitizeInput(req.Description),
		Amount:      *req.Amount,
		Date:        date,
		Method:      core.Method(sanitizeInput(req.Method)),
		Note:        sanitizeInput(req.Note),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Server) handleListFinances(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	txs, err := s.repo.ListTransactions(r.Context(), f, storage.NewestFirst)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateFinance(w http.ResponseWriter, r *http.Request) {
	t, err := decodeTransaction(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.repo.CreateTransaction(r.Context(), t)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateCaches()
	s.publishSync(r, id, 1)

	created, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toResponse(created))
}

func (s *Server) handleUpdateFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	t, err := decodeTransaction(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	version, err := s.repo.UpdateTransaction(r.Context(), id, t)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateCaches()
	s.publishSync(r, id, version)

	updated, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(updated))
}

func (s *Server) handleDeleteFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Read before delete so the mirror event still has the row data.
	t, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.repo.DeleteTransaction(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateCaches()
	s.publishDelete(r, t)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	key := fmt.Sprintf("summary:%d", year)
	if cached, ok := s.summaryCache.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	rows, err := s.repo.MonthlyTotals(r.Context(), year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	summary := core.BuildYearSummary(year, rows)
	s.summaryCache.Set(key, summary)
	respondJSON(w, http.StatusOK, summary)
}

type dashboardResponse struct {
	Transactions int64      `json:"transactions"`
	Projects     int64      `json:"projects"`
	IncomeAll    core.Money `json:"income_all"`
	ExpenseAll   core.Money `json:"expense_all"`
	BalanceAll   core.Money `json:"balance_all"`
	IncomeMonth  core.Money `json:"income_month"`
	ExpenseMonth core.Money `json:"expense_month"`
	Year         int        `json:"year"`
	Month        int        `json:"month"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	key := fmt.Sprintf("dashboard:%d-%02d", year, month)
	if cached, ok := s.dashboardCache.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	o, err := s.repo.OverviewTotals(r.Context(), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := dashboardResponse{
		Transactions: o.Transactions,
		Projects:     o.Projects,
		IncomeAll:    core.Money{Cents: o.IncomeAllCents},
		ExpenseAll:   core.Money{Cents: o.ExpenseAllCents},
		BalanceAll:   core.Money{Cents: o.IncomeAllCents - o.ExpenseAllCents},
		IncomeMonth:  core.Money{Cents: o.IncomeMonthCents},
		ExpenseMonth: core.Money{Cents: o.ExpenseMonthCents},
		Year:         year,
		Month:        month,
	}
	s.dashboardCache.Set(key, resp)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, _, err := s.exportRows(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="laporan-keuangan.csv"`)
	if err := export.WriteCSV(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "csv export failed", "error", err)
	}
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	txs, period, err := s.exportRows(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="laporan-keuangan.pdf"`)
	if err := export.WritePDF(w, txs, period); err != nil {
		slog.ErrorContext(r.Context(), "pdf export failed", "error", err)
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	txs, _, err := s.exportRows(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="laporan-keuangan.xlsx"`)
	if err := export.WriteXLSX(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "xlsx export failed", "error", err)
	}
}

// exportRows fetches the report rows in chronological order along with
// the period shown on the PDF header.
func (s *Server) exportRows(r *http.Request) ([]core.Transaction, export.Period, error) {
	f, err := parseFilter(r)
	if err != nil {
		return nil, export.Period{}, err
	}
	txs, err := s.repo.ListTransactions(r.Context(), f, storage.Chronological)
	if err != nil {
		return nil, export.Period{}, err
	}
	return txs, export.Period{From: f.From, To: f.To}, nil
}

// publishSync queues a mirror event. Publish failures never fail the
// request: the periodic pending scan picks the row up later.
func (s *Server) publishSync(r *http.Request, id, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(r.Context(), id, version); err != nil {
		slog.ErrorContext(r.Context(), "failed to publish sync event", "id", id, "error", err)
	}
}

func (s *Server) publishDelete(r *http.Request, t core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionDelete(r.Context(), t); err != nil {
		slog.ErrorContext(r.Context(), "failed to publish delete event", "id", t.ID, "error", err)
	}
}
