package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorIdle is how long a client may stay quiet before its bucket is dropped.
const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per client IP.
type visitors struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitors(limit rate.Limit, burst int) *visitors {
	if limit <= 0 {
		limit = 1
	}
	if burst <= 0 {
		burst = 3
	}
	return &visitors{
		limiters: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     visitorIdle,
		now:      time.Now,
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	v.sweep(now)

	vis, exists := v.limiters[ip]
	if !exists {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.limiters[ip] = vis
	}
	vis.lastSeen = now
	return vis.limiter
}

// sweep drops idle visitors, at most once per idle period. Callers hold mu.
func (v *visitors) sweep(now time.Time) {
	if now.Sub(v.lastSweep) < v.idle {
		return
	}
	for ip, vis := range v.limiters {
		if now.Sub(vis.lastSeen) >= v.idle {
			delete(v.limiters, ip)
		}
	}
	v.lastSweep = now
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.limiters)
}

// clientIP strips the port so every connection from one host shares a bucket.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func (v *visitors) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.get(clientIP(r.RemoteAddr)).Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Status: "error", Message: "Too Many Requests"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
