// Package ratelimit enforces per-platform hourly posting ceilings. The count
// is derived from posted draft outcomes in the trailing window, so the ledger
// and the limiter can never drift apart.
package ratelimit

import (
	"sync"
	"time"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
)

// Result is the outcome of a limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // set when not allowed
}

// Limiter checks posting ceilings per (platform, user).
type Limiter struct {
	cfg    config.RateLimitConfig
	drafts *repository.DraftRepository
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLimiter(cfg config.RateLimitConfig, drafts *repository.DraftRepository) *Limiter {
	return &Limiter{
		cfg:    cfg,
		drafts: drafts,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Lock serializes posting attempts for one (platform, user) pair and returns
// the release func. Callers must hold the lock across check, platform submit,
// and outcome write: two concurrent attempts could otherwise both read "under
// limit" and both post.
func (l *Limiter) Lock(platform models.Platform, userID string) func() {
	l.mu.Lock()
	key := string(platform) + "\x00" + userID
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Check counts posted outcomes in the trailing window against the platform
// ceiling. A platform with no configured ceiling is unlimited.
func (l *Limiter) Check(platform models.Platform, userID string) (Result, error) {
	limit, ok := l.cfg.PerHour[string(platform)]
	if !ok || limit <= 0 {
		return Result{Allowed: true, Limit: 0, Remaining: -1}, nil
	}

	cutoff := l.now().Add(-l.cfg.Window)
	count, err := l.drafts.CountPostedSince(platform, userID, cutoff)
	if err != nil {
		return Result{}, err
	}

	if count >= limit {
		retry := l.cfg.Window
		if oldest, err := l.drafts.OldestPostedSince(platform, userID, cutoff); err == nil && oldest != nil {
			retry = oldest.Add(l.cfg.Window).Sub(l.now())
			if retry < 0 {
				retry = 0
			}
		}
		return Result{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: retry}, nil
	}

	return Result{Allowed: true, Limit: limit, Remaining: limit - count}, nil
}
