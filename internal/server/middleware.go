package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/search"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request with status and duration.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// recoverer turns a panic into a 500 carrying an empty result, so clients never see a bare error page.
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic serving request",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				respondJSON(w, http.StatusInternalServerError,
					models.EmptyResponse(r.URL.Query().Get("q"), search.MsgInternalError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// clientLimiters hands out one token bucket per client address. Idle clients
// expire so the set stays bounded.
type clientLimiters struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

func newClientLimiters(limit float64, burst int) *clientLimiters {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiters{
		limit:    rate.Limit(limit),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
	}
}

// get returns the limiter for client, creating it on first use.
func (c *clientLimiters) get(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.limiters.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(c.limit, c.burst)
	c.limiters.Add(client, l)
	return l
}

// clientKey is the client address without its port. middleware.RealIP has
// already replaced RemoteAddr when a proxy header is present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// rateLimit rejects a client's requests beyond its budget with 429. Nil limiters disable it.
func rateLimit(limiters *clientLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiters == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := limiters.get(clientKey(r))
			if !limiter.Allow() {
				retry := time.Second
				if l := limiter.Limit(); l > 0 {
					retry = time.Duration(float64(time.Second) / float64(l))
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(retry.Seconds())))))
				respondJSON(w, http.StatusTooManyRequests,
					models.EmptyResponse(r.URL.Query().Get("q"), search.MsgTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
