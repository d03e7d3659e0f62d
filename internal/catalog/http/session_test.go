package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/feed"
	"marketplace-catalog/internal/catalog/filter"
	"marketplace-catalog/internal/catalog/service"
	"marketplace-catalog/internal/currency"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type countingBackend struct {
	mu    sync.Mutex
	rows  []catalog.Product
	calls int
}

func (b *countingBackend) ListProducts(_ context.Context, _ filter.Query, r feed.Range) ([]catalog.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if r.From >= len(b.rows) {
		return []catalog.Product{}, nil
	}
	end := r.To + 1
	if end > len(b.rows) {
		end = len(b.rows)
	}
	return b.rows[r.From:end], nil
}

func (b *countingBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type noopWishlist struct{}

func (noopWishlist) Count(context.Context, *catalog.Session) int64 { return 0 }

type noopPublisher struct{}

func (noopPublisher) Invalidated(context.Context, string, string) error { return nil }

func setupCatalogRouter(t *testing.T, backend feed.Backend, resolver SessionResolver) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	rates, err := currency.NewTable("SSP", "USD", map[currency.Code]decimal.Decimal{
		"USD": decimal.RequireFromString("0.0015"),
	}, nil)
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	metrics := feed.Metrics{
		Fetched: prometheus.NewCounter(prometheus.CounterOpts{Name: "t_fetched", Help: "t"}),
		Failed:  prometheus.NewCounter(prometheus.CounterOpts{Name: "t_failed", Help: "t"}),
		Stale:   prometheus.NewCounter(prometheus.CounterOpts{Name: "t_stale", Help: "t"}),
	}
	svc := service.New(
		filter.NewComposer(12),
		feed.NewRegistry(backend, metrics, time.Hour, logger),
		rates, noopWishlist{}, noopPublisher{}, logger,
		prometheus.NewCounter(prometheus.CounterOpts{Name: "t_unknown", Help: "t"}),
	)
	return setupRouter(svc, resolver, svc)
}

func feedRequest(t *testing.T, r http.Handler, method, path, token, viewerID string) service.FeedView {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if viewerID != "" {
		req.Header.Set("X-Viewer-ID", viewerID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: want 200, got %d: %s", method, path, w.Code, w.Body.String())
	}

	var view service.FeedView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	return view
}

func sessionProducts(n int) []catalog.Product {
	out := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.Product{
			ID:     fmt.Sprintf("p-%d", i),
			Title:  fmt.Sprintf("Radio %d", i),
			Price:  decimal.NewFromInt(1000),
			Status: catalog.StatusPublished,
		})
	}
	return out
}

func TestFeed_ResetsAcrossSessionTransitions(t *testing.T) {
	backend := &countingBackend{rows: sessionProducts(40)}
	resolver := &stubResolver{sessions: map[string]catalog.Session{
		"first-login":  {Token: "first-login", UserID: "u1"},
		"second-login": {Token: "second-login", UserID: "u1"},
	}}
	r := setupCatalogRouter(t, backend, resolver)
	device := uuid.NewString()

	// browse signed out, then sign in and page forward
	feedRequest(t, r, http.MethodGet, "/feed", "", device)
	feedRequest(t, r, http.MethodGet, "/feed", "first-login", device)
	view := feedRequest(t, r, http.MethodPost, "/feed/next", "first-login", device)
	if len(view.Pages) != 2 {
		t.Fatalf("want 2 signed-in pages, got %d", len(view.Pages))
	}

	// sign out: the signed-out feed from before sign-in must not come back
	calls := backend.callCount()
	view = feedRequest(t, r, http.MethodGet, "/feed", "", device)
	if backend.callCount() != calls+1 {
		t.Fatal("signed-out feed served from before sign-in")
	}
	if len(view.Pages) != 1 || view.NextCursor != 1 || len(view.Pages[0].Products) != 12 {
		t.Fatalf("want fresh public page, got %d pages cursor %d", len(view.Pages), view.NextCursor)
	}

	// sign back in with a new token: the old signed-in pages must not come back
	calls = backend.callCount()
	view = feedRequest(t, r, http.MethodGet, "/feed", "second-login", device)
	if backend.callCount() != calls+1 {
		t.Fatal("signed-in feed served from before sign-out")
	}
	if len(view.Pages) != 1 || view.NextCursor != 1 || len(view.Pages[0].Products) != filter.SignedInPageSize {
		t.Fatalf("want fresh signed-in page, got %d pages cursor %d", len(view.Pages), view.NextCursor)
	}

	// within one session the feed is still cached
	calls = backend.callCount()
	feedRequest(t, r, http.MethodGet, "/feed", "second-login", device)
	if backend.callCount() != calls {
		t.Fatal("feed refetched without a session transition")
	}
}

func TestFeed_ReloginWithoutViewerIDResets(t *testing.T) {
	backend := &countingBackend{rows: sessionProducts(40)}
	resolver := &stubResolver{sessions: map[string]catalog.Session{
		"first-login":  {Token: "first-login", UserID: "u1"},
		"second-login": {Token: "second-login", UserID: "u1"},
	}}
	r := setupCatalogRouter(t, backend, resolver)

	feedRequest(t, r, http.MethodGet, "/feed", "first-login", "")
	feedRequest(t, r, http.MethodPost, "/feed/next", "first-login", "")

	view := feedRequest(t, r, http.MethodGet, "/feed", "second-login", "")
	if len(view.Pages) != 1 || view.NextCursor != 1 {
		t.Fatalf("want fresh feed after re-login, got %d pages cursor %d", len(view.Pages), view.NextCursor)
	}
}
