package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/parchmint/pdfstruct/internal/config"
)

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// rateLimit applies a per-client-IP token bucket. Limiters are created
// lazily and kept for the life of the process.
func rateLimit(cfg config.ServerConfig) func(http.Handler) http.Handler {
	every := cfg.RateLimitEvery
	if every <= 0 {
		every = 600 * time.Millisecond
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	var limiters sync.Map
	limiterFor := func(ip string) *rate.Limiter {
		if v, ok := limiters.Load(ip); ok {
			return v.(*rate.Limiter)
		}
		v, _ := limiters.LoadOrStore(ip, rate.NewLimiter(rate.Every(every), burst))
		return v.(*rate.Limiter)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(clientIP(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// concurrencyGate bounds in-flight extraction requests; excess requests
// get an immediate 503 rather than queueing.
func concurrencyGate(sem *semaphore.Weighted) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sem.TryAcquire(1) {
				writeError(w, http.StatusServiceUnavailable, "server is at capacity, retry later")
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
