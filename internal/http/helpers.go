package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kas/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError maps domain errors to status codes: validation failures
// become 400, missing rows 404, anything else 500 with a generic body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error()})
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "transaction not found"})
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "url", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// parseID extracts the numeric id path value.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParam("id", "must be a positive integer")
	}
	return id, nil
}

// parseFilter reads the optional query filters. Absent parameters
// leave their dimension unconstrained; a malformed value is a 400, not
// an ignored parameter.
func parseFilter(r *http.Request) (core.Filter, error) {
	var f core.Filter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, invalidParam("from", "must be YYYY-MM-DD")
		}
		f.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, invalidParam("to", "must be YYYY-MM-DD")
		}
		f.To = d
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		t := core.Type(v)
		if !t.Valid() {
			return core.Filter{}, invalidParam("type", "must be income or expense")
		}
		f.Type = t
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		f.Category = v
	}
	return f, nil
}

// parseYear reads the year query parameter, defaulting to the current
// year.
func parseYear(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("year"))
	if v == "" {
		return time.Now().Year(), nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1 || year > 9999 {
		return 0, invalidParam("year", "must be a four digit year")
	}
	return year, nil
}

func invalidParam(field, reason string) *core.ValidationError {
	return &core.ValidationError{Field: field, Reason: reason}
}

// sanitizeInput trims whitespace and strips control characters except
// tab and newline.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
