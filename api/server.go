// Package api exposes a cashledger.Ledger over HTTP. Every ledger route
// is scoped to the store named in the X-Store-ID header. X-Actor-ID, when
// present, is recorded as the author of changes. /scheduler/run triggers
// one scheduler pass over every store.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/cashledger"
)

// Header names.
const (
	HeaderStoreID        = "X-Store-ID"
	HeaderActorID        = "X-Actor-ID"
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// SchedulerPath triggers one AdvanceDue pass. It is not store scoped.
const SchedulerPath = "/scheduler/run"

// Server is the HTTP adapter around a Ledger.
type Server struct {
	ledger   *cashledger.Ledger
	logger   *slog.Logger
	basePath string

	idempotency    *cache.Cache
	idempotencyTTL time.Duration

	limiters  *cache.Cache
	rateLimit float64
	rateBurst int

	metricsHandler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithBasePath sets the URL prefix of the ledger routes (default "/api/v1").
func WithBasePath(path string) Option {
	return func(s *Server) { s.basePath = path }
}

// WithIdempotencyTTL sets how long payment responses are replayed.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *Server) { s.idempotencyTTL = ttl }
}

// WithRateLimit sets the per-store token bucket. A limit of zero
// disables rate limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateBurst = burst
	}
}

// WithMetricsHandler replaces the /metrics handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// New creates a Server for l.
func New(l *cashledger.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:         l,
		logger:         slog.Default(),
		basePath:       "/api/v1",
		idempotencyTTL: 24 * time.Hour,
		rateLimit:      50,
		rateBurst:      100,
		metricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.idempotency = cache.New(s.idempotencyTTL, s.idempotencyTTL/2+time.Minute)
	s.limiters = cache.New(10*time.Minute, 15*time.Minute)

	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger, s.instrument)

	r.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc(SchedulerPath, s.advanceDue).Methods(http.MethodPost)

	v1 := r.PathPrefix(s.basePath).Subrouter()
	v1.Use(s.requireStore, s.rateLimitByStore)

	// Transactions
	v1.HandleFunc("/transactions", s.createTransaction).Methods(http.MethodPost)
	v1.HandleFunc("/transactions", s.listTransactions).Methods(http.MethodGet)
	v1.HandleFunc("/transactions/{id}", s.getTransaction).Methods(http.MethodGet)
	v1.HandleFunc("/transactions/{id}/cancel", s.cancelTransaction).Methods(http.MethodPost)
	v1.HandleFunc("/transactions/{id}/workflow", s.setWorkflow).Methods(http.MethodPost)

	// Payments
	v1.HandleFunc("/transactions/{id}/payments", s.applyPayment).Methods(http.MethodPost)
	v1.HandleFunc("/transactions/{id}/payments", s.listPayments).Methods(http.MethodGet)
	v1.HandleFunc("/payments/{id}/reverse", s.reversePayment).Methods(http.MethodPost)

	// Recurrences
	v1.HandleFunc("/recurrences", s.createRecurrence).Methods(http.MethodPost)
	v1.HandleFunc("/recurrences", s.listRecurrences).Methods(http.MethodGet)
	v1.HandleFunc("/recurrences/{id}", s.getRecurrence).Methods(http.MethodGet)
	v1.HandleFunc("/recurrences/{id}/pause", s.pauseRecurrence).Methods(http.MethodPost)
	v1.HandleFunc("/recurrences/{id}/resume", s.resumeRecurrence).Methods(http.MethodPost)
	v1.HandleFunc("/recurrences/{id}/finish", s.finishRecurrence).Methods(http.MethodPost)
	v1.HandleFunc("/recurrences/{id}/advance", s.advanceRecurrence).Methods(http.MethodPost)

	// Parties
	v1.HandleFunc("/parties", s.createParty).Methods(http.MethodPost)
	v1.HandleFunc("/parties", s.listParties).Methods(http.MethodGet)
	v1.HandleFunc("/parties/{id}", s.getParty).Methods(http.MethodGet)
	v1.HandleFunc("/parties/{id}", s.updateParty).Methods(http.MethodPatch)
	v1.HandleFunc("/parties/{id}/archive", s.archiveParty).Methods(http.MethodPost)

	// Reports
	v1.HandleFunc("/reports/balances", s.balances).Methods(http.MethodGet)
	v1.HandleFunc("/reports/aging", s.aging).Methods(http.MethodGet)
	v1.HandleFunc("/reports/totals", s.totals).Methods(http.MethodGet)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Store().Ping(r.Context()); err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
