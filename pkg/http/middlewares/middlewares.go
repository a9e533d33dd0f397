package middlewares

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/pkg/ratelimiter"
	"go.uber.org/zap"
)

// MaxBodySize rejects request bodies larger than limit bytes.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				response.Error(w, http.StatusRequestEntityTooLarge, "request entity too large", nil)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// RequestContext attaches the visitor identity of the request to its context.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := identity.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(identity.WithContext(r.Context(), rc)))
	})
}

// RateLimit limits requests per client IP. Limiter failures let the request
// through.
func RateLimit(limiter ratelimiter.RateLimiter, cfg modules.RateLimit, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	period := time.Duration(cfg.Period) * time.Second
	quota := int(cfg.Quota)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "trackify:ratelimit:" + identity.ClientIP(r)
			res, err := limiter.Allow(r.Context(), key, quota, period)
			if err != nil {
				log.Warnf("rate limiter unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, http.StatusTooManyRequests, "rate limit exceeded",
					fmt.Sprintf("retry after %ds", retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
