package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimitReason describes why a subscriber was turned away.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

const limiterIdle = 10 * time.Minute

// ConnectionLimits caps concurrent subscribers overall and per remote IP, and
// rate-limits new connections per IP with a token bucket. Zero maximums are
// unlimited.
type ConnectionLimits struct {
	mu       sync.Mutex
	max      int
	maxPerIP int
	rate     rate.Limit
	burst    int

	current   int
	perIP     map[string]int
	limiters  map[string]*ipLimiter
	cleanupAt time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewConnectionLimits creates limits allowing max subscribers in total,
// maxPerIP per address and perSecond new connections per address with burst.
// A non-positive perSecond disables rate limiting.
func NewConnectionLimits(max, maxPerIP int, perSecond float64, burst int) *ConnectionLimits {
	l := &ConnectionLimits{
		max:       max,
		maxPerIP:  maxPerIP,
		rate:      rate.Inf,
		burst:     burst,
		perIP:     make(map[string]int),
		limiters:  make(map[string]*ipLimiter),
		cleanupAt: time.Now().Add(limiterIdle),
	}
	if perSecond > 0 {
		l.rate = rate.Limit(perSecond)
	}
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

// Acquire takes a subscriber slot for ip. On failure it returns the limit that
// was hit and nothing is held.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		l.cleanup(now)
		l.cleanupAt = now.Add(limiterIdle)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	if !entry.limiter.AllowN(now, 1) {
		return false, LimitReasonRate
	}

	if l.max > 0 && l.current >= l.max {
		return false, LimitReasonGlobal
	}
	if l.maxPerIP > 0 && l.perIP[ip] >= l.maxPerIP {
		return false, LimitReasonPerIP
	}

	l.current++
	l.perIP[ip]++
	return true, ""
}

// Release returns a slot taken by Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current > 0 {
		l.current--
	}
	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else {
		delete(l.perIP, ip)
	}
}

// Current returns the number of held slots.
func (l *ConnectionLimits) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// cleanup drops rate limiters not used recently. Must be called with mu held.
func (l *ConnectionLimits) cleanup(now time.Time) {
	cutoff := now.Add(-limiterIdle)
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// remoteIP returns the host part of the request's remote address.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
