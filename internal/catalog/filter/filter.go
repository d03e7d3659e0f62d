// Package filter turns raw viewer filter input into a feed descriptor.
//
// A Descriptor has two halves. Key is the cache identity: two descriptors
// with equal keys share a feed. Shape only affects how requests are sized
// and is deliberately excluded from the key, so a signed-in viewer and a
// signed-out viewer with the same filters have the same Key but different
// page sizes.
package filter

import (
	"strings"

	"marketplace-catalog/internal/catalog"
)

// SignedInPageSize gives signed-in viewers a denser feed.
const SignedInPageSize = 10

type Key struct {
	Search   string
	Category catalog.Category
}

type Shape struct {
	PageSize int
	SignedIn bool
}

type Descriptor struct {
	Key   Key
	Shape Shape
}

// Query is what the backend needs to filter rows.
type Query struct {
	// Search is matched as a case-insensitive substring of the title.
	Search string
	// Category is empty when no category predicate applies.
	Category catalog.Category
}

func (d Descriptor) Query() Query {
	q := Query{Search: d.Key.Search}
	if d.Key.Category != catalog.CategoryAll {
		q.Category = d.Key.Category
	}
	return q
}

type Composer struct {
	publicPageSize int
}

func NewComposer(publicPageSize int) *Composer {
	if publicPageSize < 1 {
		publicPageSize = SignedInPageSize
	}
	return &Composer{publicPageSize: publicPageSize}
}

func (c *Composer) Compose(search, category string, hasSession bool) (Descriptor, error) {
	cat, err := catalog.ParseCategory(strings.TrimSpace(category))
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		Key: Key{
			Search:   strings.TrimSpace(search),
			Category: cat,
		},
		Shape: Shape{
			PageSize: c.publicPageSize,
			SignedIn: hasSession,
		},
	}
	if hasSession {
		d.Shape.PageSize = SignedInPageSize
	}
	return d, nil
}
