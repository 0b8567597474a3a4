package grpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devraj-iyer/mipsindex/pkg/mipsconfig"
	"github.com/devraj-iyer/mipsindex/pkg/mipsobs"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimiter grounds the teacher's pkg/api/rest/middleware.RateLimiter
// on golang.org/x/time/rate, keyed by authenticated user when claims are
// present (via the auth interceptor running first in the chain) and by
// peer address otherwise.
type RateLimiter struct {
	cfg      mipsconfig.RateLimitConfig
	metrics  *mipsobs.Metrics
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a RateLimiter and starts its background cleanup
// goroutine.
func NewRateLimiter(cfg mipsconfig.RateLimitConfig, metrics *mipsobs.Metrics) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg,
		metrics:  metrics,
		limiters: make(map[string]*rate.Limiter),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	rl.limiters[key] = limiter
	return limiter
}

// cleanup periodically drops the whole limiter map once it grows past a
// fixed bound, trading a burst of fresh buckets for unbounded growth.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		if len(rl.limiters) > 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		rl.mu.Unlock()
	}
}

// UnaryInterceptor rejects calls once the caller's token bucket is empty.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !rl.cfg.Enabled {
			return handler(ctx, req)
		}

		key := rateLimitKey(ctx)
		limiter := rl.getLimiter(key)
		if !limiter.Allow() {
			if rl.metrics != nil {
				rl.metrics.RateLimitRejections.Inc()
			}
			return nil, status.Error(codes.ResourceExhausted, fmt.Sprintf("rate limit exceeded for %s", key))
		}
		return handler(ctx, req)
	}
}

func rateLimitKey(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return "user:" + claims.UserID
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "addr:" + p.Addr.String()
	}
	return "anonymous"
}
