package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a client's bucket may go unused before cleanup drops it.
const idleAfter = 10 * time.Minute

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*client
	limit        rate.Limit
	burst        int
	errorMessage string
	now          func() time.Time
	stop         chan struct{}
	stopOnce     sync.Once
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Config for creating a new rate limiter
type Config struct {
	TokensPerMinute int    // Sustained rate per client
	MaxTokens       int    // Burst size, defaults to TokensPerMinute
	ErrorMessage    string // Message returned to limited clients
	CleanupEvery    time.Duration
}

// New creates a limiter and starts its cleanup goroutine.
func New(cfg Config) *Limiter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = cfg.TokensPerMinute
	}
	if cfg.CleanupEvery <= 0 {
		cfg.CleanupEvery = 5 * time.Minute
	}
	l := &Limiter{
		clients:      make(map[string]*client),
		limit:        rate.Limit(float64(cfg.TokensPerMinute) / 60),
		burst:        cfg.MaxTokens,
		errorMessage: cfg.ErrorMessage,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	go l.cleanup(cfg.CleanupEvery)
	return l
}

func (l *Limiter) cleanup(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.Prune()
		case <-l.stop:
			return
		}
	}
}

// Prune drops buckets idle for longer than ten minutes.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > idleAfter {
			delete(l.clients, key)
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow reports whether one request from key may proceed.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN reports whether n requests from key may proceed, consuming tokens if so.
func (l *Limiter) AllowN(key string, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.get(key, now).lim.AllowN(now, n)
}

// Remaining returns the whole tokens currently available to key.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[key]
	if !ok {
		return l.burst
	}
	tokens := c.lim.TokensAt(l.now())
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

// Reset forgets key's bucket.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
}

// ErrorMessage returns the error message for this limiter
func (l *Limiter) ErrorMessage() string {
	return l.errorMessage
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) get(key string, now time.Time) *client {
	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c
}
