package listing

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/schoolhealth/core"
)

// Controller holds the state of one list page. It is safe for concurrent use.
//
// Loads are request-then-commit: the fetched arrays replace the mirror only if the load
// is still the latest one, its context is alive and the controller is not closed.
type Controller[T Record[T]] struct {
	mu          sync.RWMutex
	pageSize    int
	fetchers    []Fetcher[T]
	comparators map[string]Comparator[T]

	records  []T
	filtered []T
	search   string
	status   string
	page     int
	sortKey  string
	sortDesc bool
	expanded map[core.ID]struct{}
	selected map[core.ID]struct{}
	err      string
	loading  bool

	gen    uint64
	closed bool
}

// NewController returns an empty Controller. A pageSize <= 0 disables pagination.
func NewController[T Record[T]](pageSize int) *Controller[T] {
	return &Controller[T]{
		pageSize:    pageSize,
		comparators: make(map[string]Comparator[T]),
		page:        1,
		expanded:    make(map[core.ID]struct{}),
		selected:    make(map[core.ID]struct{}),
	}
}

// RegisterSort makes key usable with SortBy.
func (c *Controller[T]) RegisterSort(key string, cmp Comparator[T]) *Controller[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comparators[key] = cmp
	return c
}

// Load fetches all collections concurrently and replaces the mirror with their
// concatenation, in fetcher order. Without fetchers, the ones of the previous Load are used.
// On failure the page-level error is set to the error message and the mirror is kept.
func (c *Controller[T]) Load(ctx context.Context, fetchers ...Fetcher[T]) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if len(fetchers) > 0 {
		c.fetchers = fetchers
	} else {
		fetchers = c.fetchers
	}
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	results := make([][]T, len(fetchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, fetch := range fetchers {
		i, fetch := i, fetch
		g.Go(func() error {
			recs, err := fetch(gctx)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case gen != c.gen:
		return ErrStale
	case ctx.Err() != nil:
		c.loading = false
		return ctx.Err()
	}
	c.loading = false
	if err != nil {
		c.err = core.MessageOf(err)
		return err
	}

	var size int
	for _, recs := range results {
		size += len(recs)
	}
	records := make([]T, 0, size)
	for _, recs := range results {
		records = append(records, recs...)
	}
	c.records = records
	c.err = ""
	c.prune()
	c.refilter()
	return nil
}

// Reload clears all local state (filters, page, sort, expanded rows, selection, error)
// and fetches every collection again.
func (c *Controller[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.records, c.filtered = nil, nil
	c.search, c.status, c.page = "", "", 1
	c.sortKey, c.sortDesc = "", false
	c.expanded = make(map[core.ID]struct{})
	c.selected = make(map[core.ID]struct{})
	c.err = ""
	c.mu.Unlock()
	return c.Load(ctx)
}

// Close discards any in-flight load. The controller cannot be loaded afterwards.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
}

func (c *Controller[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the page-level error, empty when the last load succeeded.
func (c *Controller[T]) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Controller[T]) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = msg
}

// SetSearch updates the search text and goes back to the first page.
func (c *Controller[T]) SetSearch(search string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = search
	c.page = 1
	c.refilter()
}

// SetStatus updates the status filter and goes back to the first page.
func (c *Controller[T]) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.page = 1
	c.refilter()
}

func (c *Controller[T]) Search() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.search
}

func (c *Controller[T]) Status() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SortBy sorts the filtered records by key, ascending. Sorting again by the same key
// toggles the direction.
func (c *Controller[T]) SortBy(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.comparators[key]; !ok {
		return ErrUnknownSort
	}
	if c.sortKey == key {
		c.sortDesc = !c.sortDesc
	} else {
		c.sortKey, c.sortDesc = key, false
	}
	c.sort()
	return nil
}

// SetOrdering sets the sort from an ordering such as "-created_at". An empty ordering
// restores the fetched order.
func (c *Controller[T]) SetOrdering(ordering string) error {
	key, desc := ParseOrdering(ordering)
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		c.sortKey, c.sortDesc = "", false
		c.refilter()
		return nil
	}
	if _, ok := c.comparators[key]; !ok {
		return ErrUnknownSort
	}
	c.sortKey, c.sortDesc = key, desc
	c.sort()
	return nil
}

func (c *Controller[T]) Ordering() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FormatOrdering(c.sortKey, c.sortDesc)
}

// SetPage moves to page n, clamped to the available pages.
func (c *Controller[T]) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = c.clamp(n)
}

// Page returns the records of the current page and its description.
func (c *Controller[T]) Page() ([]T, PageInfo) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := PageInfo{
		Number:     c.page,
		Size:       c.pageSize,
		TotalItems: len(c.filtered),
		TotalPages: c.totalPages(),
		Search:     c.search,
		Status:     c.status,
		Sort:       FormatOrdering(c.sortKey, c.sortDesc),
	}
	if c.pageSize <= 0 {
		return slices.Clone(c.filtered), info
	}
	start := (c.page - 1) * c.pageSize
	if start >= len(c.filtered) {
		return []T{}, info
	}
	end := min(start+c.pageSize, len(c.filtered))
	return slices.Clone(c.filtered[start:end]), info
}

// Records returns a copy of the full mirror.
func (c *Controller[T]) Records() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

// Filtered returns a copy of the filtered, sorted records (all pages).
func (c *Controller[T]) Filtered() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.filtered)
}

func (c *Controller[T]) Find(id core.ID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.records {
		if rec.Key() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// StatusOf returns the status label of the record with id.
func (c *Controller[T]) StatusOf(id core.ID) (string, bool) {
	rec, ok := c.Find(id)
	if !ok {
		return "", false
	}
	return rec.StatusLabel(), true
}

// PatchStatus rewrites the status of the record with id in both the full and the
// filtered records, in place. It reports whether the record was found.
func (c *Controller[T]) PatchStatus(id core.ID, status string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := patch(c.records, id, status)
	patch(c.filtered, id, status)
	return found
}

func patch[T Record[T]](records []T, id core.ID, status string) bool {
	var found bool
	for i, rec := range records {
		if rec.Key() == id {
			records[i] = rec.WithStatus(status)
			found = true
		}
	}
	return found
}

// Remove drops the records with the given ids, eg. after a bulk delete.
func (c *Controller[T]) Remove(ids ...core.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	drop := make(map[core.ID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	keep := func(rec T) bool {
		_, ok := drop[rec.Key()]
		return ok
	}
	c.records = slices.DeleteFunc(c.records, keep)
	c.filtered = slices.DeleteFunc(c.filtered, keep)
	c.prune()
	c.page = c.clamp(c.page)
}

// ToggleExpanded flips the detail row of id and reports whether it is now expanded.
func (c *Controller[T]) ToggleExpanded(id core.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return toggle(c.expanded, id)
}

func (c *Controller[T]) IsExpanded(id core.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.expanded[id]
	return ok
}

// ToggleSelected flips the checkbox of id and reports whether it is now selected.
func (c *Controller[T]) ToggleSelected(id core.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return toggle(c.selected, id)
}

func (c *Controller[T]) IsSelected(id core.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.selected[id]
	return ok
}

// SelectAll selects every filtered record (all pages).
func (c *Controller[T]) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.filtered {
		c.selected[rec.Key()] = struct{}{}
	}
}

func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[core.ID]struct{})
}

// Selected returns the selected ids in mirror order.
func (c *Controller[T]) Selected() []core.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]core.ID, 0, len(c.selected))
	for _, rec := range c.records {
		if _, ok := c.selected[rec.Key()]; ok {
			ids = append(ids, rec.Key())
		}
	}
	return ids
}

// SelectedRecords returns the selected records in mirror order.
func (c *Controller[T]) SelectedRecords() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recs := make([]T, 0, len(c.selected))
	for _, rec := range c.records {
		if _, ok := c.selected[rec.Key()]; ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

func toggle(set map[core.ID]struct{}, id core.ID) bool {
	if _, ok := set[id]; ok {
		delete(set, id)
		return false
	}
	set[id] = struct{}{}
	return true
}

// refilter recomputes the filtered records. Callers hold the write lock.
func (c *Controller[T]) refilter() {
	c.filtered = Filter(c.records, c.search, c.status)
	c.sort()
	c.page = c.clamp(c.page)
}

func (c *Controller[T]) sort() {
	cmp, ok := c.comparators[c.sortKey]
	if !ok {
		return
	}
	if c.sortDesc {
		slices.SortStableFunc(c.filtered, func(a, b T) int { return cmp(b, a) })
	} else {
		slices.SortStableFunc(c.filtered, cmp)
	}
}

// prune forgets expanded and selected ids that are no longer in the mirror.
func (c *Controller[T]) prune() {
	present := make(map[core.ID]struct{}, len(c.records))
	for _, rec := range c.records {
		present[rec.Key()] = struct{}{}
	}
	for _, set := range []map[core.ID]struct{}{c.expanded, c.selected} {
		for id := range set {
			if _, ok := present[id]; !ok {
				delete(set, id)
			}
		}
	}
}

func (c *Controller[T]) totalPages() int {
	if c.pageSize <= 0 {
		return 1
	}
	pages := (len(c.filtered) + c.pageSize - 1) / c.pageSize
	return max(pages, 1)
}

func (c *Controller[T]) clamp(n int) int {
	return min(max(n, 1), c.totalPages())
}
