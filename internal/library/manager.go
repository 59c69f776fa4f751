package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/terra-clan/library-dashboard/internal/analytics"
	"github.com/terra-clan/library-dashboard/internal/downloads"
	"github.com/terra-clan/library-dashboard/internal/models"
	"github.com/terra-clan/library-dashboard/internal/viewstate"
	"github.com/terra-clan/library-dashboard/pkg/client"
)

// Common errors
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoFileURL        = errors.New("document has no file URL")
	ErrEmptyFile        = errors.New("file is empty")
	ErrValidation       = errors.New("validation failed")
	ErrReadOnly         = errors.New("document source is read-only")
)

// AnonymousUser is the comment author used when none is given
const AnonymousUser = "Anonymous Visitor"

var timeNow = time.Now

// Backend is the read side of a document source
type Backend interface {
	FetchAllDocuments(ctx context.Context) ([]models.Document, error)
	SearchByTag(ctx context.Context, text string) ([]models.Document, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	HealthCheck(ctx context.Context) error
}

// Remote is the write side, only available with the REST backend
type Remote interface {
	GetDocument(ctx context.Context, id string) (*client.Document, error)
	ResolveFileURL(fileURL string) string
	DownloadFile(ctx context.Context, fileURL string) ([]byte, error)
	DeleteDocument(ctx context.Context, id string) error
	UploadDocument(ctx context.Context, req client.UploadRequest) (*client.Document, error)
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
	ListComments(ctx context.Context, documentID string) ([]models.Comment, error)
	AddComment(ctx context.Context, documentID string, comment models.Comment) (*models.Comment, error)
}

// File is a downloaded document file. Count is today's download count
// including this download.
type File struct {
	Name    string
	Content []byte
	Count   int
}

// DocumentView is a single document opened for viewing. Views counts the
// documents viewed since the last stats reset.
type DocumentView struct {
	Document models.Document `json:"document"`
	Views    int64           `json:"views"`
}

// Manager ties the document source, the view-state controller, the
// download counter and the statistics together
type Manager struct {
	backend    Backend
	remote     Remote
	store      downloads.Store
	controller *viewstate.Controller
	analytics  *analytics.Service
	views      atomic.Int64
}

// NewManager creates a Manager. remote may be nil for read-only sources.
func NewManager(backend Backend, remote Remote, store downloads.Store, controller *viewstate.Controller) *Manager {
	return &Manager{
		backend:    backend,
		remote:     remote,
		store:      store,
		controller: controller,
		analytics:  analytics.NewService(backend, store),
	}
}

// Controller returns the view-state controller
func (m *Manager) Controller() *viewstate.Controller {
	return m.controller
}

// Reload replaces the document set from the backend. On failure the view
// shows the empty set and the error is returned.
func (m *Manager) Reload(ctx context.Context) error {
	return m.controller.Load(ctx, m.backend)
}

// Refresh replaces the document set only if the fetch succeeds, keeping the
// last known good set otherwise
func (m *Manager) Refresh(ctx context.Context) error {
	docs, err := m.backend.FetchAllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch documents: %w", err)
	}
	m.controller.SetDocuments(docs)
	return nil
}

// Ping checks the backend and the counter store
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.backend.HealthCheck(ctx); err != nil {
		return fmt.Errorf("backend ping failed: %w", err)
	}
	if err := m.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("counter store ping failed: %w", err)
	}
	return nil
}

// Download fetches a document's file and counts the download. A counter
// failure is logged and does not fail the download.
func (m *Manager) Download(ctx context.Context, id string) (*File, error) {
	if m.remote == nil {
		return nil, ErrReadOnly
	}

	doc, err := m.remote.GetDocument(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if doc.FileURL == "" {
		return nil, ErrNoFileURL
	}

	content, err := m.remote.DownloadFile(ctx, doc.FileURL)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, fmt.Errorf("file not found: %w", ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}

	count, err := m.store.IncrementToday(ctx)
	if err != nil {
		slog.Error("failed to track download", "error", err, "document_id", id)
	} else {
		slog.Info("download tracked", "document_id", id, "today", count)
	}

	return &File{
		Name:    fileName(doc, id),
		Content: content,
		Count:   count,
	}, nil
}

// Document returns a document with its file URL resolved against the
// backend and counts the view
func (m *Manager) Document(ctx context.Context, id string) (*DocumentView, error) {
	var doc models.Document
	if m.remote == nil {
		found := false
		for _, d := range m.controller.All() {
			if d.ID == id {
				doc, found = d, true
				break
			}
		}
		if !found {
			return nil, ErrDocumentNotFound
		}
	} else {
		remote, err := m.remote.GetDocument(ctx, id)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, ErrDocumentNotFound
			}
			return nil, fmt.Errorf("failed to get document: %w", err)
		}
		doc = remote.ToModel(timeNow())
		if doc.FileURL != "" {
			doc.FileURL = m.remote.ResolveFileURL(doc.FileURL)
		}
	}

	if doc.FileURL == "" {
		return nil, ErrNoFileURL
	}

	views := m.views.Add(1)
	slog.Debug("document viewed", "document_id", id, "views", views)
	return &DocumentView{Document: doc, Views: views}, nil
}

// DeleteDocument deletes a document and reloads the view. A failed reload is
// logged and the view keeps the last good set.
func (m *Manager) DeleteDocument(ctx context.Context, id string) error {
	if m.remote == nil {
		return ErrReadOnly
	}

	if err := m.remote.DeleteDocument(ctx, id); err != nil {
		if client.IsNotFound(err) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	slog.Info("document deleted", "id", id)
	if err := m.Refresh(ctx); err != nil {
		slog.Warn("reload after delete failed", "error", err)
	}
	return nil
}

// Upload uploads a document and reloads the view
func (m *Manager) Upload(ctx context.Context, req client.UploadRequest) (*models.Document, error) {
	if m.remote == nil {
		return nil, ErrReadOnly
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.File == nil || req.FileName == "" {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}

	created, err := m.remote.UploadDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	if err := m.Refresh(ctx); err != nil {
		slog.Warn("reload after upload failed", "error", err)
	}

	doc := created.ToModel(timeNow())
	return &doc, nil
}

// Tags lists all tags
func (m *Manager) Tags(ctx context.Context) ([]models.Tag, error) {
	return m.backend.ListTags(ctx)
}

// CreateCategory creates a tag used as a category
func (m *Manager) CreateCategory(ctx context.Context, name string) (*models.Tag, error) {
	if m.remote == nil {
		return nil, ErrReadOnly
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	tag, err := m.remote.CreateTag(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return tag, nil
}

// Comments lists the comments of a document
func (m *Manager) Comments(ctx context.Context, documentID string) ([]models.Comment, error) {
	if m.remote == nil {
		return []models.Comment{}, nil
	}

	comments, err := m.remote.ListComments(ctx, documentID)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// AddComment attaches a comment to a document
func (m *Manager) AddComment(ctx context.Context, documentID, content, user string) (*models.Comment, error) {
	if m.remote == nil {
		return nil, ErrReadOnly
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrValidation)
	}
	if strings.TrimSpace(user) == "" {
		user = AnonymousUser
	}

	now := timeNow()
	comment, err := m.remote.AddComment(ctx, documentID, models.Comment{
		Content:   content,
		User:      user,
		CreatedAt: &now,
	})
	if err != nil {
		if client.IsNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, nil
}

// Stats returns the dashboard counters
func (m *Manager) Stats(ctx context.Context) models.DashboardStats {
	return m.analytics.Stats(ctx)
}

// Analytics returns chart data
func (m *Manager) Analytics(ctx context.Context) models.Analytics {
	return m.analytics.Analytics(ctx)
}

// DownloadSeries returns the trailing downloads series and the total
func (m *Manager) DownloadSeries(ctx context.Context) ([]models.DailyDownloads, int, error) {
	return m.analytics.DownloadSeries(ctx)
}

// ResetStats clears the download counter and the view count
func (m *Manager) ResetStats(ctx context.Context) error {
	if err := m.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset download stats: %w", err)
	}
	m.views.Store(0)
	slog.Info("download stats reset")
	return nil
}

// Views returns the number of documents viewed since the last reset
func (m *Manager) Views() int64 {
	return m.views.Load()
}

// Close releases the controller and the counter store
func (m *Manager) Close() error {
	m.controller.Close()
	return m.store.Close()
}

func fileName(doc *client.Document, id string) string {
	switch {
	case doc.FileName != "":
		return doc.FileName
	case doc.Title != "":
		return doc.Title
	default:
		return "document_" + id
	}
}
