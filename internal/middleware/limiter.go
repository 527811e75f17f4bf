package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"order-service/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Order placement fans out to the catalog (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Frontend-heavy apps
	limitFrontend = rate.Limit(20)
	burstFrontend = 40

	// Internal / trusted services
	limitInternal = rate.Limit(100)
	burstInternal = 200

	visitorTTL      = 3 * time.Minute
	cleanupInterval = time.Minute
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	internalKey string
}

// NewRateLimiter starts a limiter whose idle buckets are swept until ctx is
// done. internalKey enables the trusted-service tier via X-Service-Auth.
func NewRateLimiter(ctx context.Context, internalKey string) *RateLimiter {
	rl := &RateLimiter{
		visitors:    make(map[string]*visitor),
		internalKey: internalKey,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

// getVisitor retrieves or creates a rate limiter for the given key.
func (rl *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		rl.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

// cleanup removes buckets idle for longer than visitorTTL.
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
		}
	}
}

// Middleware checks if the request is allowed by the rate limiter.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Determine Rate Tier
		limit, burst, tier := rl.resolveRateTier(r)

		// 2. Determine Identity Key
		var identity string

		if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
			identity = fmt.Sprintf("user:%d", userID)
		} else if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			identity = "device:" + deviceID
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		// 3. Same identity gets a separate quota per tier, e.g. "user:1:strict"
		key := fmt.Sprintf("%s:%s", identity, tier)

		limiter := rl.getVisitor(key, limit, burst)
		if !limiter.Allow() {
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		if tier == "internal" {
			r = r.WithContext(utils.WithInternalRequest(r.Context()))
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier determines which rate limit policy applies to the request.
func (rl *RateLimiter) resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	// 1. Internal / Trusted Services
	if rl.internalKey != "" && r.Header.Get("X-Service-Auth") == rl.internalKey {
		return limitInternal, burstInternal, "internal"
	}

	// 2. Order placement (Strict)
	if r.Method == http.MethodPost && r.URL.Path == "/api/orders" {
		return limitStrict, burstStrict, "strict"
	}

	// 3. Frontend-heavy apps
	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return limitFrontend, burstFrontend, "frontend"
	}

	// 4. General (Default)
	return limitGeneral, burstGeneral, "general"
}
