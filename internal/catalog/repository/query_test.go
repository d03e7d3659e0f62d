package repository

import (
	"reflect"
	"strings"
	"testing"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/feed"
	"marketplace-catalog/internal/catalog/filter"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        filter.Query
		rng          feed.Range
		wantArgs     []any
		wantContains []string
		wantMissing  []string
	}{
		{
			name:         "no filters",
			rng:          feed.Range{From: 0, To: 11},
			wantArgs:     []any{"published", 12, 0},
			wantContains: []string{"status = $1", "ORDER BY created_at DESC, id DESC", "LIMIT $2 OFFSET $3"},
			wantMissing:  []string{"ILIKE", "category ="},
		},
		{
			name:         "search and category",
			query:        filter.Query{Search: "phone", Category: catalog.CategoryElectronics},
			rng:          feed.Range{From: 12, To: 23},
			wantArgs:     []any{"published", "phone", "electronics", 12, 12},
			wantContains: []string{"title ILIKE '%' || $2 || '%'", "category = $3", "LIMIT $4 OFFSET $5"},
		},
		{
			name:         "wildcards in search are escaped",
			query:        filter.Query{Search: `50%_off\`},
			rng:          feed.Range{From: 0, To: 9},
			wantArgs:     []any{"published", `50\%\_off\\`, 10, 0},
			wantContains: []string{"ILIKE", `ESCAPE '\'`},
		},
		{
			name:        "search text is never inlined",
			query:       filter.Query{Search: "'; DROP TABLE products; --"},
			rng:         feed.Range{From: 0, To: 9},
			wantArgs:    []any{"published", "'; DROP TABLE products; --", 10, 0},
			wantMissing: []string{"DROP TABLE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListQuery(tt.query, tt.rng)

			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Fatalf("want args %#v, got %#v", tt.wantArgs, args)
			}
			for _, s := range tt.wantContains {
				if !strings.Contains(query, s) {
					t.Fatalf("query missing %q:\n%s", s, query)
				}
			}
			for _, s := range tt.wantMissing {
				if strings.Contains(query, s) {
					t.Fatalf("query should not contain %q:\n%s", s, query)
				}
			}
		})
	}
}
