// Package feed implements the paginated catalog feed owned by one viewer.
//
// An Engine holds the state for a single active descriptor. Pages are
// fetched strictly in cursor order; a descriptor or session change discards
// everything, and responses that arrive for an abandoned descriptor are
// dropped instead of appended.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/filter"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a backend call that no single request owns.
const fetchTimeout = 10 * time.Second

// Range is an inclusive row range.
type Range struct {
	From int
	To   int
}

func RangeFor(cursor, pageSize int) Range {
	from := cursor * pageSize
	return Range{From: from, To: from + pageSize - 1}
}

func (r Range) Size() int { return r.To - r.From + 1 }

type Backend interface {
	ListProducts(ctx context.Context, q filter.Query, r Range) ([]catalog.Product, error)
}

type Page struct {
	Index    int               `json:"index"`
	Products []catalog.Product `json:"products"`
}

// State is a point-in-time copy of a feed.
type State struct {
	Key        filter.Key
	Pages      []Page
	HasMore    bool
	NextCursor int
	Failed     bool
}

func (s State) Len() int {
	n := 0
	for _, p := range s.Pages {
		n += len(p.Products)
	}
	return n
}

type Metrics struct {
	Fetched prometheus.Counter
	Failed  prometheus.Counter
	Stale   prometheus.Counter
}

type Engine struct {
	backend Backend
	metrics Metrics
	group   singleflight.Group

	mu         sync.Mutex
	active     bool
	desc       filter.Descriptor
	generation uint64
	pages      []Page
	cursor     int
	hasMore    bool
	failed     bool
}

func NewEngine(backend Backend, metrics Metrics) *Engine {
	return &Engine{backend: backend, metrics: metrics}
}

// Load returns the feed for desc, fetching the first page only if nothing
// has been fetched for it yet.
func (e *Engine) Load(ctx context.Context, desc filter.Descriptor) (State, error) {
	e.mu.Lock()
	e.activateLocked(desc)
	if len(e.pages) > 0 || !e.hasMore {
		defer e.mu.Unlock()
		return e.snapshotLocked(), nil
	}
	gen, cursor := e.generation, e.cursor
	e.mu.Unlock()

	return e.fetch(ctx, gen, cursor, desc)
}

// FetchNext appends the page at the next cursor. An exhausted feed is
// returned unchanged.
func (e *Engine) FetchNext(ctx context.Context, desc filter.Descriptor) (State, error) {
	e.mu.Lock()
	e.activateLocked(desc)
	if !e.hasMore {
		defer e.mu.Unlock()
		return e.snapshotLocked(), nil
	}
	gen, cursor := e.generation, e.cursor
	e.mu.Unlock()

	return e.fetch(ctx, gen, cursor, desc)
}

// Restart discards the feed and fetches the first page again. Restarting a
// feed that has no pages yet joins its pending first-page fetch.
func (e *Engine) Restart(ctx context.Context, desc filter.Descriptor) (State, error) {
	e.mu.Lock()
	if !e.active || e.desc != desc || e.cursor != 0 || len(e.pages) != 0 {
		e.resetLocked(desc)
	}
	gen, cursor := e.generation, e.cursor
	e.mu.Unlock()

	return e.fetch(ctx, gen, cursor, desc)
}

func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) fetch(ctx context.Context, gen uint64, cursor int, desc filter.Descriptor) (State, error) {
	key := strconv.FormatUint(gen, 10) + ":" + strconv.Itoa(cursor)
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		// joined callers share this call; one of them going away must not fail it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		rows, err := e.backend.ListProducts(ctx, desc.Query(), RangeFor(cursor, desc.Shape.PageSize))
		return e.apply(gen, cursor, desc.Shape.PageSize, rows, err)
	})
	state, _ := v.(State)
	return state, err
}

func (e *Engine) apply(gen uint64, cursor, pageSize int, rows []catalog.Product, fetchErr error) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		e.metrics.Stale.Inc()
		return State{}, catalog.ErrStaleFeed
	}

	if fetchErr != nil {
		if errors.Is(fetchErr, catalog.ErrSessionExpired) {
			return e.snapshotLocked(), fetchErr
		}
		e.failed = true
		e.metrics.Failed.Inc()
		return e.snapshotLocked(), fmt.Errorf("%w: cursor %d: %w", catalog.ErrFetchFailed, cursor, fetchErr)
	}

	// Already recorded by an earlier call for the same cursor.
	if cursor != e.cursor {
		return e.snapshotLocked(), nil
	}

	if rows == nil {
		rows = []catalog.Product{}
	}
	e.pages = append(e.pages, Page{Index: cursor, Products: rows})
	e.cursor++
	e.hasMore = len(rows) >= pageSize
	e.failed = false
	e.metrics.Fetched.Inc()

	return e.snapshotLocked(), nil
}

func (e *Engine) activateLocked(desc filter.Descriptor) {
	if e.active && e.desc == desc {
		return
	}
	e.resetLocked(desc)
}

func (e *Engine) resetLocked(desc filter.Descriptor) {
	e.active = true
	e.desc = desc
	e.generation++
	e.pages = nil
	e.cursor = 0
	e.hasMore = true
	e.failed = false
}

func (e *Engine) snapshotLocked() State {
	pages := make([]Page, len(e.pages))
	copy(pages, e.pages)
	return State{
		Key:        e.desc.Key,
		Pages:      pages,
		HasMore:    e.hasMore,
		NextCursor: e.cursor,
		Failed:     e.failed,
	}
}
