package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type registryEntry struct {
	engine   *Engine
	session  string
	lastUsed time.Time
}

// Registry owns one Engine per viewer and evicts engines that have been
// idle for longer than idleTimeout. An engine is bound to the session token
// it was created under; a different token gets a fresh engine.
type Registry struct {
	backend     Backend
	metrics     Metrics
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	feeds map[string]*registryEntry
}

func NewRegistry(backend Backend, metrics Metrics, idleTimeout time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		backend:     backend,
		metrics:     metrics,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
		feeds:       make(map[string]*registryEntry),
	}
}

// Engine returns the viewer's engine. session is the viewer's session token,
// empty when signed out.
func (r *Registry) Engine(viewerID, session string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.feeds[viewerID]
	if !ok || entry.session != session {
		entry = &registryEntry{engine: NewEngine(r.backend, r.metrics), session: session}
		r.feeds[viewerID] = entry
	}
	entry.lastUsed = r.now()
	return entry.engine
}

// Reset drops the viewer's engine and reports whether there was one.
func (r *Registry) Reset(viewerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.feeds[viewerID]; !ok {
		return false
	}
	delete(r.feeds, viewerID)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

// Sweep drops engines idle since before now-idleTimeout and returns how many
// were dropped.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, entry := range r.feeds {
		if now.Sub(entry.lastUsed) > r.idleTimeout {
			delete(r.feeds, id)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				r.logger.Info("evicted idle feeds", "count", n, "remaining", r.Len())
			}
		}
	}
}
