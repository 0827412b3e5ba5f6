package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-IP token buckets for the chat endpoints. Dispatch work is the expensive
// part of this service, so only completion-triggering routes pay the toll.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitorsMu sync.Mutex
	visitors   = make(map[string]*visitor)
)

// rateLimitAllow reports whether ip may issue another completion request now.
func rateLimitAllow(ip string) bool {
	visitorsMu.Lock()
	defer visitorsMu.Unlock()

	v, exists := visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(RateLimitRPS), RateLimitBurst)}
		visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

// startRateLimitJanitor evicts buckets idle for ten minutes so the visitor
// map does not grow without bound.
func startRateLimitJanitor() {
	go func() {
		for range time.Tick(time.Minute) {
			cutoff := time.Now().Add(-10 * time.Minute)
			visitorsMu.Lock()
			for ip, v := range visitors {
				if v.lastSeen.Before(cutoff) {
					delete(visitors, ip)
				}
			}
			visitorsMu.Unlock()
		}
	}()
}
