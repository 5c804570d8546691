package ratelimit

import (
	"net"
	"net/http"

	"github.com/coachloop/backend/libs/golog"
	"github.com/samuel/go-metrics/metrics"
)

// RemoteAddrHandler rate limits requests by remote address. Requests over the
// limit receive a 403. On limiter errors the request is allowed through.
func RemoteAddrHandler(h http.Handler, rl KeyedRateLimiter, keyPrefix string, statsRegistry metrics.Registry) http.Handler {
	statRateLimited := metrics.NewCounter()
	statsRegistry.Add("ratelimited", statRateLimited)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		ok, err := rl.Check(keyPrefix+addr, 1)
		if err != nil {
			golog.Errorf("Rate limit check failed: %s", err)
			ok = true
		}
		if !ok {
			statRateLimited.Inc(1)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		h.ServeHTTP(w, r)
	})
}
