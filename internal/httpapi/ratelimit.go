package httpapi

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type RateLimitConfig struct {
	IPPerMinute         int
	IPBurst             int
	IdentifierPerMinute int
	IdentifierBurst     int
}

// RateLimiter throttles login attempts per client IP and per submitted
// identifier, so one address cannot spray many accounts and many addresses
// cannot hammer one account.
type RateLimiter struct {
	byIP         *loginBuckets
	byIdentifier *loginBuckets
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		byIP:         newLoginBuckets(cfg.IPPerMinute, cfg.IPBurst),
		byIdentifier: newLoginBuckets(cfg.IdentifierPerMinute, cfg.IdentifierBurst),
	}
}

// AllowLogin reads the submitted email from the parsed form. When it refuses,
// retryAfter is how long until the exhausted bucket holds a token again.
func (l *RateLimiter) AllowLogin(r *http.Request) (retryAfter time.Duration, ok bool) {
	if ip := clientIP(r); ip != "" {
		if wait, ok := l.byIP.take(ip); !ok {
			return wait, false
		}
	}
	identifier := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	if identifier == "" {
		return 0, true
	}
	return l.byIdentifier.take(identifier)
}

// Sweep forgets buckets that have refilled completely.
func (l *RateLimiter) Sweep() {
	l.byIP.sweep()
	l.byIdentifier.sweep()
}

type loginBuckets struct {
	mu       sync.Mutex
	perSec   float64
	capacity float64
	now      func() time.Time
	buckets  map[string]*bucket
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newLoginBuckets(perMinute, burst int) *loginBuckets {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &loginBuckets{
		perSec:   float64(perMinute) / 60.0,
		capacity: float64(burst),
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

func (l *loginBuckets) take(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, seen: now}
		return 0, true
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.seen).Seconds()*l.perSec)
	b.seen = now
	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / l.perSec * float64(time.Second))
		return wait, false
	}
	b.tokens--
	return 0, true
}

func (l *loginBuckets) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, b := range l.buckets {
		if b.tokens+now.Sub(b.seen).Seconds()*l.perSec >= l.capacity {
			delete(l.buckets, key)
		}
	}
}

// clientIP trusts the first X-Forwarded-For hop; the portal runs behind one proxy.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
