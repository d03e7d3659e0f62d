// Package wishlist computes the viewer's wishlist badge count.
//
// The count is a two-stage dependent lookup (wishlist id, then item count)
// that never fails outward: every degrade path yields zero.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketplace-catalog/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const (
	reasonNoWishlist = "no_wishlist"
	reasonFailed     = "failed"

	lookupTimeout = 5 * time.Second
)

type Lookups interface {
	ResolveWishlist(ctx context.Context, userID string) (catalog.WishlistRef, error)
	CountWishlistItems(ctx context.Context, wishlistID string) (int64, error)
}

type Options struct {
	FreshFor     time.Duration
	RetainFor    time.Duration
	RefreshEvery time.Duration
}

type tracked struct {
	session  catalog.Session
	lastUsed time.Time
	// bumped by Invalidate; a refresh that started under an older epoch
	// must not cache its result
	epoch uint64
}

type Aggregator struct {
	lookups  Lookups
	store    Store
	logger   *slog.Logger
	degraded *prometheus.CounterVec
	opts     Options
	now      func() time.Time
	group    singleflight.Group

	mu      sync.Mutex
	viewers map[string]tracked
}

func NewAggregator(lookups Lookups, store Store, logger *slog.Logger, degraded *prometheus.CounterVec, opts Options) *Aggregator {
	return &Aggregator{
		lookups:  lookups,
		store:    store,
		logger:   logger,
		degraded: degraded,
		opts:     opts,
		now:      time.Now,
		viewers:  make(map[string]tracked),
	}
}

// Resolve runs the pipeline once, without consulting the cache.
func (a *Aggregator) Resolve(ctx context.Context, session *catalog.Session) Result {
	if session == nil || session.UserID == "" {
		return Result{Outcome: OutcomeNoSession}
	}

	ref, err := a.lookups.ResolveWishlist(ctx, session.UserID)
	if errors.Is(err, catalog.ErrWishlistNotFound) {
		return Result{Outcome: OutcomeNoWishlist}
	}
	if err != nil {
		return Result{
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%w: resolve wishlist: %w", catalog.ErrDependentLookupFailed, err),
		}
	}

	n, err := a.lookups.CountWishlistItems(ctx, ref.ID)
	if err != nil {
		return Result{
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%w: count wishlist %s: %w", catalog.ErrDependentLookupFailed, ref.ID, err),
		}
	}
	if n < 0 {
		n = 0
	}

	return Result{Outcome: OutcomeCounted, Count: n}
}

// Count returns the badge count for session, serving a cached value while
// it is fresh.
func (a *Aggregator) Count(ctx context.Context, session *catalog.Session) int64 {
	if session == nil || session.UserID == "" {
		return 0
	}

	now := a.now()
	a.track(*session, now)

	if entry, ok := a.store.Get(ctx, session.UserID); ok && now.Sub(entry.FetchedAt) < a.opts.FreshFor {
		return entry.Count
	}

	return a.refresh(ctx, *session)
}

// Invalidate drops the cached count so the next read recomputes it. A
// refresh already in flight for the user will not cache what it read.
func (a *Aggregator) Invalidate(ctx context.Context, userID string) error {
	a.mu.Lock()
	if v, ok := a.viewers[userID]; ok {
		v.epoch++
		a.viewers[userID] = v
	}
	a.mu.Unlock()

	a.group.Forget(userID)
	if err := a.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("invalidate wishlist count: %w", err)
	}
	return nil
}

// Refresh re-validates every tracked viewer regardless of freshness and
// forgets viewers unused beyond the retention window.
func (a *Aggregator) Refresh(ctx context.Context) {
	now := a.now()

	a.mu.Lock()
	sessions := make([]catalog.Session, 0, len(a.viewers))
	for id, v := range a.viewers {
		if now.Sub(v.lastUsed) > a.opts.RetainFor {
			delete(a.viewers, id)
			continue
		}
		sessions = append(sessions, v.session)
	}
	a.mu.Unlock()

	if sweeper, ok := a.store.(interface{ Sweep(time.Time) int }); ok {
		sweeper.Sweep(now)
	}

	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}
		a.refresh(ctx, s)
	}
}

func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.opts.RefreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}

func (a *Aggregator) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.viewers)
}

func (a *Aggregator) track(session catalog.Session, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.viewers[session.UserID]
	v.session = session
	v.lastUsed = now
	a.viewers[session.UserID] = v
}

func (a *Aggregator) epoch(userID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewers[userID].epoch
}

func (a *Aggregator) refresh(ctx context.Context, session catalog.Session) int64 {
	userID := session.UserID
	v, _, _ := a.group.Do(userID, func() (interface{}, error) {
		// shared by every joined caller, so it must not die with the first one
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		epoch := a.epoch(userID)
		res := a.Resolve(ctx, &session)
		a.observe(userID, res)

		if res.Outcome == OutcomeFailed || a.epoch(userID) != epoch {
			return res.Value(), nil
		}
		if err := a.store.Set(ctx, userID, Entry{Count: res.Value(), FetchedAt: a.now()}); err != nil {
			a.logger.Warn("cache wishlist count failed", "user_id", userID, "error", err)
		}
		// Invalidate may have landed between the check and the write.
		if a.epoch(userID) != epoch {
			_ = a.store.Delete(ctx, userID)
		}
		return res.Value(), nil
	})
	count, _ := v.(int64)
	return count
}

func (a *Aggregator) observe(userID string, res Result) {
	switch res.Outcome {
	case OutcomeNoWishlist:
		a.degraded.WithLabelValues(reasonNoWishlist).Inc()
		a.logger.Debug("viewer has no wishlist", "user_id", userID)
	case OutcomeFailed:
		a.degraded.WithLabelValues(reasonFailed).Inc()
		a.logger.Error("wishlist count lookup failed", "user_id", userID, "error", res.Err)
	}
}
