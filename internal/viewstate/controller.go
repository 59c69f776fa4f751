package viewstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/terra-clan/library-dashboard/internal/models"
)

const (
	DefaultPageSize      = 12
	DefaultDebounce      = 300 * time.Millisecond
	DefaultSearchTimeout = 10 * time.Second
)

// Source provides the full document set
type Source interface {
	FetchAllDocuments(ctx context.Context) ([]models.Document, error)
}

// Searcher runs a remote search for the given text
type Searcher interface {
	SearchByTag(ctx context.Context, text string) ([]models.Document, error)
}

// Options configures a Controller
type Options struct {
	PageSize      int
	Debounce      time.Duration
	SearchTimeout time.Duration
	Searcher      Searcher
	Renderer      Renderer
	Logger        *slog.Logger
}

// Controller owns the document list view state: the full document set, the
// active criteria and the current page. Every mutation recomputes the
// filtered list from the full set and notifies the renderer.
type Controller struct {
	mu       sync.Mutex
	all      []models.Document
	filtered []models.Document
	criteria models.Criteria
	page     int
	pageSize int
	collator *collate.Collator
	renderer Renderer
	version  uint64

	searcher      Searcher
	debounce      time.Duration
	searchTimeout time.Duration
	timer         *time.Timer
	generation    uint64
	remote        *remoteHits
	closed        bool

	renderMu sync.Mutex
	rendered uint64

	logger *slog.Logger
}

// NewController creates a controller with an empty document set
func NewController(opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Controller{
		page:          1,
		pageSize:      opts.PageSize,
		collator:      collate.New(language.English, collate.IgnoreCase),
		renderer:      opts.Renderer,
		searcher:      opts.Searcher,
		debounce:      opts.Debounce,
		searchTimeout: opts.SearchTimeout,
		logger:        opts.Logger.With("component", "viewstate"),
	}
}

// SetRenderer replaces the render sink and renders the current state to it
func (c *Controller) SetRenderer(r Renderer) {
	c.mu.Lock()
	c.renderer = r
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// Load fetches all documents from source and installs them. A failed fetch
// installs the empty set; the error is logged and returned for reporting.
func (c *Controller) Load(ctx context.Context, source Source) error {
	docs, err := source.FetchAllDocuments(ctx)
	if err != nil {
		c.logger.Error("failed to load documents", "error", err)
		docs = nil
	}
	c.SetDocuments(docs)
	return err
}

// SetDocuments replaces the full document set and resets to the first page
func (c *Controller) SetDocuments(docs []models.Document) {
	c.mu.Lock()
	c.all = append([]models.Document(nil), docs...)
	c.remote = nil
	if c.criteria.SearchText != "" {
		c.scheduleSearchLocked(c.criteria.SearchText)
	}
	c.page = 1
	c.recomputeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("documents replaced", "count", len(docs))
	c.emit(snap)
}

// SetSearchText sets the search criterion and resets to the first page. The
// local predicate applies immediately; a debounced remote search may later
// replace the search results if the text is still current.
func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	if text != c.criteria.SearchText {
		c.criteria.SearchText = text
		c.remote = nil
		c.scheduleSearchLocked(text)
	}
	c.page = 1
	c.recomputeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// SetCategory sets the category filter; "" clears it. Resets to the first page.
func (c *Controller) SetCategory(category string) {
	c.mu.Lock()
	c.criteria.Category = category
	c.page = 1
	c.recomputeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// SetSort sets the sort key. Unknown keys mean no sort. The current page is
// kept (clamped to the new page count).
func (c *Controller) SetSort(key models.SortKey) {
	c.mu.Lock()
	c.criteria.SortKey = models.ParseSortKey(string(key))
	c.recomputeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// NextPage advances one page; no-op on the last page
func (c *Controller) NextPage() {
	c.movePage(1)
}

// PrevPage goes back one page; no-op on the first page
func (c *Controller) PrevPage() {
	c.movePage(-1)
}

func (c *Controller) movePage(delta int) {
	c.mu.Lock()
	target := clampPage(c.page+delta, c.totalPagesLocked())
	if target == c.page {
		c.mu.Unlock()
		return
	}
	c.page = target
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// PageSlice returns a copy of the documents on the current page
func (c *Controller) PageSlice() []models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSliceLocked()
}

// PaginationInfo returns the current pagination metadata
func (c *Controller) PaginationInfo() models.PaginationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paginationLocked()
}

// Criteria returns the active criteria
func (c *Controller) Criteria() models.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

// Filtered returns a copy of the full filtered list
func (c *Controller) Filtered() []models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Document(nil), c.filtered...)
}

// All returns a copy of the full document set
func (c *Controller) All() []models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Document(nil), c.all...)
}

// View returns the current page, pagination and criteria in one snapshot
func (c *Controller) View() models.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.View{
		Documents:  c.pageSliceLocked(),
		Pagination: c.paginationLocked(),
		Criteria:   c.criteria,
	}
}

// Close stops any pending search. Results of in-flight searches are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// recomputeLocked rebuilds filtered from all under the current criteria:
// search stage, then category predicate, then sort.
func (c *Controller) recomputeLocked() {
	base := c.searchStageLocked()

	result := make([]models.Document, 0, len(base))
	for _, d := range base {
		if matchesCategory(d, c.criteria.Category) {
			result = append(result, d)
		}
	}
	sortDocuments(result, c.criteria.SortKey, c.collator)

	c.filtered = result
	c.page = clampPage(c.page, c.totalPagesLocked())
	c.version++
}

func (c *Controller) searchStageLocked() []models.Document {
	text := c.criteria.SearchText
	if text == "" {
		return c.all
	}
	if c.remote != nil && c.remote.text == text {
		return c.remote.docs
	}
	return filterLocal(c.all, text)
}

func (c *Controller) totalPagesLocked() int {
	return totalPages(len(c.filtered), c.pageSize)
}

func (c *Controller) paginationLocked() models.PaginationInfo {
	return models.PaginationInfo{
		CurrentPage: c.page,
		TotalPages:  c.totalPagesLocked(),
		TotalItems:  len(c.filtered),
		PageSize:    c.pageSize,
	}
}

func (c *Controller) pageSliceLocked() []models.Document {
	start, end := pageBounds(c.page, c.pageSize, len(c.filtered))
	return append([]models.Document(nil), c.filtered[start:end]...)
}

// totalPages is max(1, ceil(n / size))
func totalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

func clampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// pageBounds returns the [start, end) range of page within n items
func pageBounds(page, size, n int) (int, int) {
	start := (page - 1) * size
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := start + size
	if end > n {
		end = n
	}
	return start, end
}
