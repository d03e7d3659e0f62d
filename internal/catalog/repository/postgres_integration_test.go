//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/feed"
	"marketplace-catalog/internal/catalog/filter"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDBName = "test_catalog"
	testDBUser = "test"
	testDBPass = "test"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:17-alpine"),
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	m, err := migrate.New("file://"+migrationsDir(t), connStr)
	if err != nil {
		t.Fatalf("init migrate: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("run migrations: %v", err)
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		t.Fatalf("close migrate source: %v", srcErr)
	}
	if dbErr != nil {
		t.Fatalf("close migrate db: %v", dbErr)
	}

	return db
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations", "catalog")
}

type seedProduct struct {
	title    string
	category catalog.Category
	status   catalog.Status
	price    string
	age      time.Duration
}

func seed(t *testing.T, db *sql.DB, products []seedProduct) []string {
	t.Helper()
	seller := uuid.NewString()
	now := time.Now().UTC()

	ids := make([]string, 0, len(products))
	for _, p := range products {
		var id string
		err := db.QueryRow(`
			INSERT INTO products (seller_id, title, price, category, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			seller, p.title, p.price, string(p.category), string(p.status), now.Add(-p.age),
		).Scan(&id)
		if err != nil {
			t.Fatalf("seed %q: %v", p.title, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestPostgresRepository_ListProducts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	var rows []seedProduct
	for i := 0; i < 15; i++ {
		rows = append(rows, seedProduct{title: "Smart Phone", category: catalog.CategoryElectronics, status: catalog.StatusPublished, price: "185000.00", age: time.Duration(i) * time.Minute})
	}
	rows = append(rows,
		seedProduct{title: "Phone case", category: catalog.CategoryOther, status: catalog.StatusDraft, price: "500", age: time.Second},
		seedProduct{title: "Sofa", category: catalog.CategoryHome, status: catalog.StatusPublished, price: "900000", age: time.Hour},
		seedProduct{title: "100% cotton shirt", category: catalog.CategoryFashion, status: catalog.StatusPublished, price: "12000", age: 2 * time.Hour},
		seedProduct{title: "1000 cotton shirts", category: catalog.CategoryFashion, status: catalog.StatusPublished, price: "99000", age: 3 * time.Hour},
	)
	seed(t, db, rows)

	t.Run("search paginates published matches", func(t *testing.T) {
		q := filter.Query{Search: "PHONE"}
		first, err := repo.ListProducts(ctx, q, feed.RangeFor(0, 12))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, _ := repo.ListProducts(ctx, q, feed.RangeFor(1, 12))
		if len(first) != 12 || len(second) != 3 {
			t.Fatalf("want 12 then 3 rows, got %d then %d", len(first), len(second))
		}

		seen := make(map[string]bool)
		for _, p := range append(first, second...) {
			if p.Status != catalog.StatusPublished {
				t.Fatalf("unpublished product %s returned", p.ID)
			}
			if seen[p.ID] {
				t.Fatalf("product %s on two pages", p.ID)
			}
			seen[p.ID] = true
		}
	})

	t.Run("ordered by created_at DESC", func(t *testing.T) {
		list, _ := repo.ListProducts(ctx, filter.Query{}, feed.RangeFor(0, 50))
		for i := 1; i < len(list); i++ {
			if list[i].CreatedAt.After(list[i-1].CreatedAt) {
				t.Fatalf("expected descending order at index %d", i)
			}
		}
	})

	t.Run("category predicate", func(t *testing.T) {
		list, _ := repo.ListProducts(ctx, filter.Query{Category: catalog.CategoryHome}, feed.RangeFor(0, 10))
		if len(list) != 1 || list[0].Title != "Sofa" {
			t.Fatalf("want only Sofa, got %+v", list)
		}
		if !list[0].Price.Equal(decimal.RequireFromString("900000")) {
			t.Fatalf("want price 900000, got %s", list[0].Price)
		}
	})

	t.Run("percent in search is literal", func(t *testing.T) {
		list, _ := repo.ListProducts(ctx, filter.Query{Search: "100%"}, feed.RangeFor(0, 10))
		if len(list) != 1 || list[0].Title != "100% cotton shirt" {
			t.Fatalf("want only the 100%% shirt, got %+v", list)
		}
	})

	t.Run("range past end returns empty slice", func(t *testing.T) {
		list, err := repo.ListProducts(ctx, filter.Query{}, feed.RangeFor(100, 10))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Fatalf("want non-nil empty slice, got %v", list)
		}
	})
}

func TestPostgresRepository_Wishlist(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	ids := seed(t, db, []seedProduct{
		{title: "A", category: catalog.CategoryOther, status: catalog.StatusPublished, price: "1"},
		{title: "B", category: catalog.CategoryOther, status: catalog.StatusPublished, price: "2"},
	})

	owner := uuid.NewString()
	var wishlistID string
	if err := db.QueryRow(`INSERT INTO wishlists (user_id) VALUES ($1) RETURNING id`, owner).Scan(&wishlistID); err != nil {
		t.Fatalf("seed wishlist: %v", err)
	}
	for _, id := range ids {
		if _, err := db.Exec(`INSERT INTO wishlist_items (wishlist_id, product_id) VALUES ($1, $2)`, wishlistID, id); err != nil {
			t.Fatalf("seed wishlist item: %v", err)
		}
	}

	t.Run("resolves and counts", func(t *testing.T) {
		ref, err := repo.ResolveWishlist(ctx, owner)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.ID != wishlistID || ref.OwnerID != owner {
			t.Fatalf("unexpected ref %+v", ref)
		}
		n, err := repo.CountWishlistItems(ctx, ref.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 {
			t.Fatalf("want 2, got %d", n)
		}
	})

	t.Run("missing wishlist", func(t *testing.T) {
		_, err := repo.ResolveWishlist(ctx, uuid.NewString())
		if !errors.Is(err, catalog.ErrWishlistNotFound) {
			t.Fatalf("want ErrWishlistNotFound, got %v", err)
		}
	})
}

func TestPostgresRepository_ResolveSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	user := uuid.NewString()
	now := time.Now().UTC()
	if _, err := db.Exec(`INSERT INTO sessions (token, user_id, country_id, expires_at) VALUES ($1, $2, $3, $4), ($5, $2, NULL, $6)`,
		"live", user, "KE", now.Add(time.Hour), "stale", now.Add(-time.Hour)); err != nil {
		t.Fatalf("seed sessions: %v", err)
	}

	s, err := repo.ResolveSession(ctx, "live")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != user || s.CountryID != "KE" {
		t.Fatalf("unexpected session %+v", s)
	}

	for _, token := range []string{"stale", "unknown"} {
		if _, err := repo.ResolveSession(ctx, token); !errors.Is(err, catalog.ErrSessionExpired) {
			t.Fatalf("token %q: want ErrSessionExpired, got %v", token, err)
		}
	}
}

func TestPostgresRepository_Health(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)

	if err := repo.Health(); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}
