// Package listing implements the list pages of the dashboard: a mirror of one or more
// backend collections narrowed by search text and status, sorted, paginated and
// patched in place after mutations.
package listing

import (
	"cmp"
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
)

// AllStatuses is the status filter option that disables status filtering.
const AllStatuses = "Tất cả trạng thái"

var (
	ErrClosed      = errors.New("listing closed")
	ErrStale       = errors.New("listing superseded by a newer load")
	ErrUnknownSort = errors.New("unknown sort key")
)

// Record is a backend record the list can mirror.
type Record[T any] interface {
	Key() core.ID
	StatusLabel() string
	// WithStatus returns a copy of the record with its status label replaced.
	WithStatus(status string) T
	// SearchText returns the free-text fields matched by the search box.
	SearchText() []string
}

// Fetcher fetches one backend collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Comparator orders two records: negative when a sorts before b.
type Comparator[T any] func(a, b T) int

// PageInfo describes the current page of the filtered records.
type PageInfo struct {
	Number     int    `json:"number"`
	Size       int    `json:"size"`
	TotalItems int    `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	Search     string `json:"search,omitempty"`
	Status     string `json:"status,omitempty"`
	Sort       string `json:"sort,omitempty"`
}

// Matches reports whether rec passes the search text and status filters.
func Matches[T Record[T]](rec T, search, status string) bool {
	if status != "" && status != AllStatuses && rec.StatusLabel() != status {
		return false
	}
	if search == "" {
		return true
	}
	for _, txt := range rec.SearchText() {
		if core.ContainsFold(txt, search) {
			return true
		}
	}
	return false
}

// Filter returns the records matching search (case-insensitive substring of any searchable
// field) and status (exact equality, "" or AllStatuses meaning any), in their original order.
func Filter[T Record[T]](records []T, search, status string) []T {
	filtered := make([]T, 0, len(records))
	for _, rec := range records {
		if Matches(rec, search, status) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// ParseOrdering splits an ordering such as "-created_at" into its key and direction.
func ParseOrdering(ordering string) (key string, desc bool) {
	ordering = core.CleanString(ordering)
	if len(ordering) > 0 && (ordering[0] == '-' || ordering[0] == '+') {
		return ordering[1:], ordering[0] == '-'
	}
	return ordering, false
}

// FormatOrdering is the inverse of ParseOrdering.
func FormatOrdering(key string, desc bool) string {
	if key != "" && desc {
		return "-" + key
	}
	return key
}

// ByString orders records by a text field, case-insensitively.
func ByString[T any](field func(T) string) Comparator[T] {
	return func(a, b T) int {
		return strings.Compare(strings.ToLower(field(a)), strings.ToLower(field(b)))
	}
}

func ByInt[T any](field func(T) int) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(field(a), field(b))
	}
}

// ByTime orders records by a timestamp, zero times first.
func ByTime[T any](field func(T) time.Time) Comparator[T] {
	return func(a, b T) int {
		return field(a).Compare(field(b))
	}
}
