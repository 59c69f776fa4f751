package viewstate

import "github.com/terra-clan/library-dashboard/internal/models"

// Renderer paints a page of documents. Implementations must tolerate being
// called repeatedly with identical arguments and must not call back into the
// controller's mutating methods from Render.
type Renderer interface {
	Render(page []models.Document, info models.PaginationInfo)
}

// RenderFunc adapts a function to Renderer
type RenderFunc func(page []models.Document, info models.PaginationInfo)

// Render calls f
func (f RenderFunc) Render(page []models.Document, info models.PaginationInfo) {
	f(page, info)
}

type snapshot struct {
	version  uint64
	renderer Renderer
	page     []models.Document
	info     models.PaginationInfo
}

func (c *Controller) snapshotLocked() snapshot {
	return snapshot{
		version:  c.version,
		renderer: c.renderer,
		page:     c.pageSliceLocked(),
		info:     c.paginationLocked(),
	}
}

// emit delivers snap to the renderer outside the state lock. Snapshots older
// than the last delivered one are dropped so a slow caller never paints over
// a newer state.
func (c *Controller) emit(snap snapshot) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if snap.version <= c.rendered {
		return
	}
	c.rendered = snap.version

	if snap.renderer != nil {
		snap.renderer.Render(snap.page, snap.info)
	}
}
