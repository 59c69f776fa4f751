package viewstate

import (
	"context"
	"strings"
	"time"

	"github.com/terra-clan/library-dashboard/internal/models"
)

// remoteHits holds a successful remote search result and the text it was
// issued for
type remoteHits struct {
	text string
	docs []models.Document
}

// scheduleSearchLocked supersedes any pending or in-flight search and, for a
// non-empty text, arms the debounce timer for a new one.
func (c *Controller) scheduleSearchLocked(text string) {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if text == "" || c.searcher == nil || c.closed {
		return
	}

	gen := c.generation
	c.timer = time.AfterFunc(c.debounce, func() {
		c.runSearch(gen, text)
	})
}

// runSearch issues the remote search for generation gen. The result is
// applied only if no newer search was scheduled and the text is unchanged.
func (c *Controller) runSearch(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.searchTimeout)
	docs, err := c.searcher.SearchByTag(ctx, strings.ToLower(text))
	cancel()

	c.mu.Lock()
	if gen != c.generation || c.criteria.SearchText != text {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search result", "text", text, "generation", gen)
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("remote search failed, using local results", "text", text, "error", err)
		return
	}

	c.remote = &remoteHits{text: text, docs: append([]models.Document(nil), docs...)}
	c.recomputeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("remote search applied", "text", text, "results", len(docs))
	c.emit(snap)
}
