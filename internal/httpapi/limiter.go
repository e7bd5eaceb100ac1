package httpapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTimeout = 10 * time.Minute
	limiterSweepPeriod = 5 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per client IP. Every request may
// trigger network queries, so bursts from one client are refused.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	now      func() time.Time
}

func newLimiterSet() *limiterSet {
	return &limiterSet{
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
	}
}

func (s *limiterSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(1, 3) // 1 per second, burst 3
		s.limiters[ip] = &clientLimiter{limiter: limiter, lastSeen: s.now()}
		return limiter
	}
	entry.lastSeen = s.now()
	return entry.limiter
}

func (s *limiterSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, entry := range s.limiters {
		if s.now().Sub(entry.lastSeen) > limiterIdleTimeout {
			delete(s.limiters, ip)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// StartJanitor evicts idle client limiters until ctx is done.
func (a *API) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepPeriod)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.limiters.sweep()
			}
		}
	}()
}

func (a *API) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !a.limiters.get(ip).Allow() {
			log.Warn().Msgf("rate limit exceeded for %s", ip)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
