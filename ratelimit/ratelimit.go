// Package ratelimit provides a bounded, fixed-window, per-client request
// limiter and its HTTP middleware.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config defines the limit applied to every client.
type Config struct {
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int `json:"max_requests" yaml:"max_requests"`

	// Window is the length of one counting window.
	Window time.Duration `json:"window" yaml:"window"`

	// MaxClients caps the number of tracked clients. When full, the client
	// whose window started first is evicted.
	MaxClients int `json:"max_clients" yaml:"max_clients"`

	// SweepInterval controls how often expired windows are dropped.
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`

	// TrustedProxies lists the proxy addresses or CIDRs whose
	// X-Forwarded-For header is honoured. Empty means the header is ignored.
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
}

// DefaultConfig returns a limit of 30 requests per minute for up to 10000
// clients.
func DefaultConfig() Config {
	return Config{
		MaxRequests:   30,
		Window:        time.Minute,
		MaxClients:    10000,
		SweepInterval: 5 * time.Minute,
	}
}

type window struct {
	count   int
	started time.Time
}

// Limiter counts requests per client key. It is safe for concurrent use.
type Limiter struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*window
	exclude []string
	trusted []netip.Prefix
}

// New creates a Limiter. Zero fields in cfg take their DefaultConfig value.
// Requests whose path starts with one of excludePrefixes bypass the limit.
func New(cfg Config, excludePrefixes ...string) *Limiter {
	def := DefaultConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	trusted, err := ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		slog.Warn("ratelimit: ignoring trusted proxies", "error", err)
		trusted = nil
	}
	return &Limiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*window),
		exclude: excludePrefixes,
		trusted: trusted,
	}
}

// ParsePrefixes parses addresses ("10.0.0.1") and CIDRs ("10.0.0.0/8").
func ParsePrefixes(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Allow records one request for key and reports whether it is within the
// limit. When it is not, the returned duration is the time until the
// client's window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if ok && now.Sub(w.started) >= l.cfg.Window {
		w.count = 0
		w.started = now
	}
	if !ok {
		if len(l.clients) >= l.cfg.MaxClients {
			l.evictOldestLocked()
		}
		w = &window{started: now}
		l.clients[key] = w
	}

	w.count++
	if w.count <= l.cfg.MaxRequests {
		return true, 0
	}
	return false, w.started.Add(l.cfg.Window).Sub(now)
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, w := range l.clients {
		if oldestKey == "" || w.started.Before(oldest) {
			oldestKey, oldest = k, w.started
		}
	}
	delete(l.clients, oldestKey)
}

// Sweep drops every client whose window has expired and returns how many
// were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, w := range l.clients {
		if now.Sub(w.started) >= l.cfg.Window {
			delete(l.clients, k)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every SweepInterval until done is closed.
func (l *Limiter) StartSweeper(done <-chan struct{}) {
	tick := time.NewTicker(l.cfg.SweepInterval)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				if n := l.Sweep(); n > 0 {
					slog.Debug("ratelimit: swept expired clients", "count", n)
				}
			}
		}
	}()
}

// Middleware enforces the limit per client IP. Rejected requests get a
// 429 JSON body and a Retry-After header in whole seconds.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range l.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ip := ClientIP(r, l.trusted)
		ok, retry := l.Allow(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		slog.Warn("ratelimit: request blocked", "ip", ip, "path", r.URL.Path)

		secs := int((retry + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "rate limit exceeded",
		})
	})
}

// ClientIP returns the client address of r. X-Forwarded-For is consulted
// only when the direct peer is a trusted proxy; the chain is then walked
// from the right and the first untrusted hop is the client.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if len(trusted) == 0 || !isTrusted(host, trusted) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		host = hop
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
