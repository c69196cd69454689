package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/xraph/cashledger/id"
)

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cashledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	httpRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cashledger_http_rate_limited_total",
		Help: "Requests rejected by the per-store rate limiter",
	})
)

type ctxKey int

const (
	ctxStoreID ctxKey = iota
	ctxActorID
	ctxLogger
)

func storeFrom(r *http.Request) string {
	v, _ := r.Context().Value(ctxStoreID).(string) //nolint:errcheck // zero value is fine
	return v
}

func actorFrom(r *http.Request) string {
	v, _ := r.Context().Value(ctxActorID).(string) //nolint:errcheck // zero value is fine
	return v
}

func (s *Server) loggerFrom(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(ctxLogger).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func newRequestID() string { return id.NewRequestID().String() }

// requestLogger attaches a request-scoped logger and logs each request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = newRequestID()
		}
		w.Header().Set(HeaderRequestID, reqID)

		logger := s.logger.With("request_id", reqID)
		ctx := context.WithValue(r.Context(), ctxLogger, logger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"store_id", r.Header.Get(HeaderStoreID),
		)
	})
}

// instrument records request counts and latency by route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpoint))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()

		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

// requireStore rejects ledger requests without a store scope.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeID := strings.TrimSpace(r.Header.Get(HeaderStoreID))
		if storeID == "" {
			respondWithError(w, http.StatusBadRequest, "missing_store", "Missing "+HeaderStoreID+" header")
			return
		}
		ctx := context.WithValue(r.Context(), ctxStoreID, storeID)
		ctx = context.WithValue(ctx, ctxActorID, strings.TrimSpace(r.Header.Get(HeaderActorID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitByStore applies one token bucket per store. Idle buckets
// expire from the cache.
func (s *Server) rateLimitByStore(next http.Handler) http.Handler {
	if s.rateLimit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(storeFrom(r)).Allow() {
			httpRateLimited.Inc()
			s.loggerFrom(r).Warn("rate limit exceeded", "store_id", storeFrom(r), "path", r.URL.Path)
			respondWithError(w, http.StatusTooManyRequests, "rate_limited", http.StatusText(http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiterFor(storeID string) *rate.Limiter {
	if v, ok := s.limiters.Get(storeID); ok {
		s.limiters.SetDefault(storeID, v)
		return v.(*rate.Limiter) //nolint:errcheck // only limiters are stored
	}
	l := rate.NewLimiter(rate.Limit(s.rateLimit), s.rateBurst)
	if err := s.limiters.Add(storeID, l, cache.DefaultExpiration); err != nil {
		// Lost the race to another request for the same store.
		if v, ok := s.limiters.Get(storeID); ok {
			return v.(*rate.Limiter) //nolint:errcheck // only limiters are stored
		}
	}
	return l
}
