// Package http exposes the ledger as a JSON API: transaction CRUD,
// the monthly summary, report exports and the dashboard.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kas/internal/cache"
	"kas/internal/core"
	"kas/internal/storage"
)

// EventPublisher queues mirror events for the sync worker. The server
// runs without one when AMQP is not configured.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, t core.Transaction) error
}

type Server struct {
	http.Server
	repo        *storage.SQLiteRepository
	publisher   EventPublisher
	apiToken    string
	rateLimiter *rateLimiter

	// Read caches, purged on every write.
	summaryCache   *cache.LRUCache[core.YearSummary]
	dashboardCache *cache.LRUCache[dashboardResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run
// server. publisher may be nil.
func NewServer(addr, apiToken string, repo *storage.SQLiteRepository, publisher EventPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		repo:             repo,
		publisher:        publisher,
		apiToken:         apiToken,
		rateLimiter:      newRateLimiter(),
		summaryCache:     newSummaryCache(),
		dashboardCache:   newDashboardCache(),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := func(h http.HandlerFunc) http.HandlerFunc {
		return s.withSecurityHeaders(s.withAuth(h))
	}
	mux.HandleFunc("GET /api/finances", api(s.handleListFinances))
	mux.HandleFunc("POST /api/finances", api(s.handleCreateFinance))
	mux.HandleFunc("PUT /api/finances/{id}", api(s.handleUpdateFinance))
	mux.HandleFunc("DELETE /api/finances/{id}", api(s.handleDeleteFinance))
	mux.HandleFunc("GET /api/finances/summary", api(s.handleSummary))
	mux.HandleFunc("GET /api/finances/export.csv", api(s.handleExportCSV))
	mux.HandleFunc("GET /api/finances/export.pdf", api(s.handleExportPDF))
	mux.HandleFunc("GET /api/finances/export.xlsx", api(s.handleExportXLSX))
	mux.HandleFunc("GET /api/dashboard", api(s.handleDashboard))

	return s
}

func newSummaryCache() *cache.LRUCache[core.YearSummary] {
	return cache.NewLRUCache[core.YearSummary](32, 5*time.Minute)
}

func newDashboardCache() *cache.LRUCache[dashboardResponse] {
	return cache.NewLRUCache[dashboardResponse](32, time.Minute)
}

// invalidateCaches drops cached aggregates after any write.
func (s *Server) invalidateCaches() {
	s.summaryCache.Purge()
	s.dashboardCache.Purge()
}

// withSecurityHeaders adds security headers, rate limiting on writes,
// a request id, and request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// startCacheCleanup evicts expired cache entries in the background.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.summaryCache.CleanExpired() + s.dashboardCache.CleanExpired()
			if removed > 0 {
				slog.Debug("cache cleanup completed", "entries_removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
