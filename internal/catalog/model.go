package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrFetchFailed           = errors.New("catalog page fetch failed")
	ErrStaleFeed             = errors.New("feed descriptor changed while fetching")
	ErrUnknownCurrency       = errors.New("unknown currency")
	ErrWishlistNotFound      = errors.New("wishlist not found")
	ErrDependentLookupFailed = errors.New("dependent lookup failed")
	ErrSessionExpired        = errors.New("session expired")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrInvalidAmount         = errors.New("invalid amount")
)

const (
	SessionEventsQueue      = "sessions.events"
	WishlistEventsQueue     = "wishlist.events"
	EventSessionInvalidated = "session_invalidated"
	EventWishlistItemAdded  = "wishlist_item_added"
	EventWishlistItemRemove = "wishlist_item_removed"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

type Category string

// CategoryAll is the wildcard that removes the category predicate.
const CategoryAll Category = "all"

const (
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategorySports      Category = "sports"
	CategoryVehicles    Category = "vehicles"
	CategoryProperty    Category = "property"
	CategoryServices    Category = "services"
	CategoryOther       Category = "other"
)

var categories = []Category{
	CategoryElectronics,
	CategoryFashion,
	CategoryHome,
	CategoryBeauty,
	CategorySports,
	CategoryVehicles,
	CategoryProperty,
	CategoryServices,
	CategoryOther,
}

// Categories returns the closed category set, without the wildcard.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func ParseCategory(raw string) (Category, error) {
	if raw == "" || Category(raw) == CategoryAll {
		return CategoryAll, nil
	}
	for _, c := range categories {
		if Category(raw) == c {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

type Product struct {
	ID          string          `json:"id" example:"5b0c7e9e-7d4c-4c3e-9a43-0f3b7d1f2a11"`
	SellerID    string          `json:"seller_id" example:"0d9a3a51-3c8e-4a7f-8a52-0b2e8a6f9c21"`
	Title       string          `json:"title" example:"Samsung Galaxy A15"`
	Description string          `json:"description" example:"Barely used, with charger"`
	Price       decimal.Decimal `json:"price" swaggertype:"string" example:"185000"`
	Category    Category        `json:"category" example:"electronics"`
	Status      Status          `json:"status" example:"published"`
	CreatedAt   time.Time       `json:"created_at" example:"2026-02-24T12:00:00Z"`
}

// Session is the signed-in viewer as resolved by the auth collaborator.
type Session struct {
	Token     string
	UserID    string
	CountryID string
	ExpiresAt time.Time
}

type WishlistRef struct {
	ID      string
	OwnerID string
}

type SessionEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type WishlistEvent struct {
	EventType  string    `json:"event_type"`
	UserID     string    `json:"user_id"`
	WishlistID string    `json:"wishlist_id,omitempty"`
	ProductID  string    `json:"product_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
