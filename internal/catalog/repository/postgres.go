package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/feed"
	"marketplace-catalog/internal/catalog/filter"

	"github.com/lib/pq"
)

const (
	healthCheckTimeout = 2 * time.Second

	// invalid_authorization_specification and friends
	pqAuthErrorClass = "28"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// ListProducts returns published products matching q within the inclusive
// row range r, newest first.
func (r *PostgresRepository) ListProducts(ctx context.Context, q filter.Query, rng feed.Range) ([]catalog.Product, error) {
	query, args := buildListQuery(q, rng)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", classify(err))
	}
	defer rows.Close()

	list := make([]catalog.Product, 0, rng.Size())
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &p.Price, &p.Category, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", classify(err))
	}

	return list, nil
}

func buildListQuery(q filter.Query, rng feed.Range) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, seller_id, title, description, price, category, status, created_at
		FROM products
		WHERE status = $1`)

	args := []any{string(catalog.StatusPublished)}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Search != "" {
		b.WriteString(` AND title ILIKE '%' || ` + next(likeEscaper.Replace(q.Search)) + ` || '%' ESCAPE '\'`)
	}
	if q.Category != "" {
		b.WriteString(` AND category = ` + next(string(q.Category)))
	}

	b.WriteString(`
		ORDER BY created_at DESC, id DESC
		LIMIT ` + next(rng.Size()) + ` OFFSET ` + next(rng.From))

	return b.String(), args
}

func (r *PostgresRepository) ResolveWishlist(ctx context.Context, userID string) (catalog.WishlistRef, error) {
	query := `SELECT id, user_id FROM wishlists WHERE user_id = $1 LIMIT 1`

	var ref catalog.WishlistRef
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&ref.ID, &ref.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.WishlistRef{}, catalog.ErrWishlistNotFound
	}
	if err != nil {
		return catalog.WishlistRef{}, fmt.Errorf("resolve wishlist for %s: %w", userID, err)
	}
	return ref, nil
}

func (r *PostgresRepository) CountWishlistItems(ctx context.Context, wishlistID string) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wishlist_items WHERE wishlist_id = $1`, wishlistID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count wishlist items: %w", err)
	}
	return total, nil
}

// ResolveSession returns the session for token. Unknown and expired tokens
// both report catalog.ErrSessionExpired.
func (r *PostgresRepository) ResolveSession(ctx context.Context, token string) (catalog.Session, error) {
	query := `
		SELECT token, user_id, COALESCE(country_id, ''), expires_at
		FROM sessions
		WHERE token = $1
	`

	var s catalog.Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.UserID, &s.CountryID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Session{}, catalog.ErrSessionExpired
	}
	if err != nil {
		return catalog.Session{}, fmt.Errorf("resolve session: %w", classify(err))
	}
	if !s.ExpiresAt.After(r.now()) {
		return catalog.Session{}, catalog.ErrSessionExpired
	}
	return s, nil
}

func (r *PostgresRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

// classify maps authorization failures raised by the database to
// catalog.ErrSessionExpired so callers can forward them for re-login.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code.Class()) == pqAuthErrorClass {
		return fmt.Errorf("%w: %s", catalog.ErrSessionExpired, pqErr.Message)
	}
	return err
}
