// Package listing filters, sorts and pages in-memory record collections for
// table views.
package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Column describes one sortable field of T. Searchable columns take part in
// free-text search; their value is rendered with Text.
type Column[T any] struct {
	Value      func(T) any
	Searchable bool
}

type Table[T any] map[string]Column[T]

type Query struct {
	Search string
	SortBy string
	Order  Order
	Offset int
	Limit  int // 0 returns everything after Offset
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Apply returns the page of items matching q. Total counts the matches
// before pagination. The input slice is not modified.
func Apply[T any](items []T, table Table[T], q Query) Page[T] {
	out := Filter(items, table, q.Search)
	Sort(out, table, q.SortBy, q.Order)

	total := len(out)
	return Page[T]{Items: Paginate(out, q.Offset, q.Limit), Total: total}
}

// Filter keeps the items where any searchable column contains term,
// ignoring case. An empty term keeps everything.
func Filter[T any](items []T, table Table[T], term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if term == "" || matches(item, table, term) {
			out = append(out, item)
		}
	}
	return out
}

func matches[T any](item T, table Table[T], term string) bool {
	for _, col := range table {
		if !col.Searchable {
			continue
		}
		if strings.Contains(strings.ToLower(Text(col.Value(item))), term) {
			return true
		}
	}
	return false
}

// Sort orders items in place by the named column. Unknown columns leave the
// order untouched; equal keys keep their relative order.
func Sort[T any](items []T, table Table[T], sortBy string, order Order) {
	col, ok := table[sortBy]
	if !ok {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		c := compare(col.Value(a), col.Value(b))
		if order == Desc {
			return -c
		}
		return c
	})
}

func Paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

// Text renders a column value for searching.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case interface{ String() string }:
		return val.String()
	default:
		return ""
	}
}

// compare orders nil before any value, then compares like types.
// Mismatched types compare equal.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return 0
}

// ParseOrder accepts "asc" and "desc" in any case; anything else is Asc.
func ParseOrder(s string) Order {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}
