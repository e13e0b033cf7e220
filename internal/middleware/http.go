package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// HTTPConfig configures the CORS and rate limiting middleware.
type HTTPConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// HTTP builds CORS and rate limiting middleware from one config.
type HTTP struct {
	config HTTPConfig
	cors   func(http.Handler) http.Handler
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.CORSMaxAge == 0 {
		cfg.CORSMaxAge = 86400
	}

	return &HTTP{
		config: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
			MaxAge:         cfg.CORSMaxAge,
		}),
	}
}

func (h *HTTP) CORS() func(http.Handler) http.Handler {
	return h.cors
}

// RateLimit limits requests per client IP. The handler answers 429 with a
// JSON body in the API's error format. When disabled it is a no-op.
func (h *HTTP) RateLimit() func(http.Handler) http.Handler {
	if h.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		h.config.RateLimitRequests,
		h.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}`))
		}),
	)
}

// WritesOnly applies mw to state-changing requests and lets reads through.
// Browsing recipes is cheap; registration, login and uploads are not.
func WritesOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}
