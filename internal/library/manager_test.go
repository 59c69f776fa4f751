package library

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/library-dashboard/internal/downloads"
	"github.com/terra-clan/library-dashboard/internal/models"
	"github.com/terra-clan/library-dashboard/internal/viewstate"
	"github.com/terra-clan/library-dashboard/pkg/client"
)

type fakeBackend struct {
	docs    []models.Document
	tags    []models.Tag
	err     error
	pingErr error
}

func (b *fakeBackend) FetchAllDocuments(ctx context.Context) ([]models.Document, error) {
	return b.docs, b.err
}

func (b *fakeBackend) SearchByTag(ctx context.Context, text string) ([]models.Document, error) {
	return nil, b.err
}

func (b *fakeBackend) ListTags(ctx context.Context) ([]models.Tag, error) {
	return b.tags, b.err
}

func (b *fakeBackend) ListUsers(ctx context.Context) ([]models.User, error) {
	return nil, b.err
}

func (b *fakeBackend) HealthCheck(ctx context.Context) error {
	return b.pingErr
}

type fakeRemote struct {
	backend  *fakeBackend
	docs     map[string]*client.Document
	files    map[string][]byte
	deleted  []string
	uploaded []client.UploadRequest
	comments []models.Comment
	failWith error
}

func notFound() error {
	return &client.APIError{StatusCode: http.StatusNotFound, Body: "not found"}
}

func (r *fakeRemote) GetDocument(ctx context.Context, id string) (*client.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, notFound()
	}
	return doc, nil
}

func (r *fakeRemote) ResolveFileURL(fileURL string) string {
	return "http://backend.test" + fileURL
}

func (r *fakeRemote) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	content, ok := r.files[fileURL]
	if !ok {
		return nil, notFound()
	}
	return content, nil
}

func (r *fakeRemote) DeleteDocument(ctx context.Context, id string) error {
	if _, ok := r.docs[id]; !ok {
		return notFound()
	}
	r.deleted = append(r.deleted, id)

	kept := r.backend.docs[:0]
	for _, d := range r.backend.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	r.backend.docs = kept
	return nil
}

func (r *fakeRemote) UploadDocument(ctx context.Context, req client.UploadRequest) (*client.Document, error) {
	r.uploaded = append(r.uploaded, req)
	doc := &client.Document{ID: "10", Title: req.Title, Description: req.Description, FileName: req.FileName}
	for _, t := range req.Tags {
		doc.Tags = append(doc.Tags, models.Tag{Name: t})
	}
	r.backend.docs = append(r.backend.docs, doc.ToModel(time.Now()))
	return doc, nil
}

func (r *fakeRemote) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	return &models.Tag{ID: 5, Name: name}, nil
}

func (r *fakeRemote) ListComments(ctx context.Context, documentID string) ([]models.Comment, error) {
	if _, ok := r.docs[documentID]; !ok {
		return nil, notFound()
	}
	return r.comments, nil
}

func (r *fakeRemote) AddComment(ctx context.Context, documentID string, comment models.Comment) (*models.Comment, error) {
	if _, ok := r.docs[documentID]; !ok {
		return nil, notFound()
	}
	comment.ID = int64(len(r.comments) + 1)
	r.comments = append(r.comments, comment)
	return &comment, nil
}

type brokenStore struct {
	downloads.MemoryStore
}

func (s *brokenStore) IncrementToday(ctx context.Context) (int, error) {
	return 0, errors.New("read-only file system")
}

func (s *brokenStore) HealthCheck(ctx context.Context) error {
	return errors.New("read-only file system")
}

func newTestManager(t *testing.T) (*Manager, *fakeBackend, *fakeRemote, downloads.Store) {
	t.Helper()

	backend := &fakeBackend{
		docs: []models.Document{
			{ID: "1", Title: "Linear Algebra", Category: "math", Tags: []string{"math"}},
			{ID: "2", Title: "Leaves of Grass", Category: "poetry", Tags: []string{"poetry"}},
		},
		tags: []models.Tag{{ID: 1, Name: "math"}, {ID: 2, Name: "poetry"}},
	}
	remote := &fakeRemote{
		backend: backend,
		docs: map[string]*client.Document{
			"1": {ID: "1", Title: "Linear Algebra", FileURL: "/uploads/la.pdf", FileName: "la.pdf"},
			"2": {ID: "2", Title: "Leaves of Grass", FileURL: "/uploads/empty.txt"},
			"3": {ID: "3", Title: "No file"},
		},
		files: map[string][]byte{
			"/uploads/la.pdf":    []byte("%PDF-1.7"),
			"/uploads/empty.txt": {},
		},
	}
	store := downloads.NewMemoryStore()
	controller := viewstate.NewController(viewstate.Options{})
	t.Cleanup(controller.Close)

	m := NewManager(backend, remote, store, controller)
	require.NoError(t, m.Reload(context.Background()))
	return m, backend, remote, store
}

func TestReloadAndRefresh(t *testing.T) {
	m, backend, _, _ := newTestManager(t)
	ctx := context.Background()
	assert.Len(t, m.Controller().All(), 2)

	backend.err = errors.New("connection refused")
	assert.Error(t, m.Refresh(ctx))
	assert.Len(t, m.Controller().All(), 2, "refresh keeps the last good set")

	assert.Error(t, m.Reload(ctx))
	assert.Empty(t, m.Controller().All(), "reload shows the empty set")
}

func TestDownload(t *testing.T) {
	m, _, _, store := newTestManager(t)
	ctx := context.Background()

	file, err := m.Download(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "la.pdf", file.Name)
	assert.Equal(t, []byte("%PDF-1.7"), file.Content)
	assert.Equal(t, 1, file.Count)

	file, err = m.Download(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, file.Count)

	stats, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, downloads.Total(stats))
}

func TestDownloadFailuresAreNotCounted(t *testing.T) {
	m, _, remote, store := newTestManager(t)
	ctx := context.Background()

	_, err := m.Download(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = m.Download(ctx, "3")
	assert.ErrorIs(t, err, ErrNoFileURL)

	_, err = m.Download(ctx, "2")
	assert.ErrorIs(t, err, ErrEmptyFile)

	remote.failWith = &client.APIError{StatusCode: http.StatusInternalServerError, Body: "boom"}
	_, err = m.Download(ctx, "1")
	var apiErr *client.APIError
	assert.ErrorAs(t, err, &apiErr)

	stats, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, downloads.Total(stats))
}

func TestDownloadSurvivesCounterFailure(t *testing.T) {
	backend := &fakeBackend{}
	remote := &fakeRemote{
		backend: backend,
		docs:    map[string]*client.Document{"1": {ID: "1", Title: "Doc", FileURL: "/uploads/a.txt"}},
		files:   map[string][]byte{"/uploads/a.txt": []byte("hello")},
	}
	controller := viewstate.NewController(viewstate.Options{})
	defer controller.Close()
	m := NewManager(backend, remote, &brokenStore{}, controller)

	file, err := m.Download(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(file.Content))
	assert.Equal(t, "Doc", file.Name)
	assert.Zero(t, file.Count)
}

func TestDeleteDocumentRefreshes(t *testing.T) {
	m, _, remote, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.DeleteDocument(ctx, "2"))
	assert.Equal(t, []string{"2"}, remote.deleted)
	require.Len(t, m.Controller().All(), 1)
	assert.Equal(t, "1", m.Controller().All()[0].ID)

	assert.ErrorIs(t, m.DeleteDocument(ctx, "404"), ErrDocumentNotFound)
}

func TestDeleteDocumentSurvivesFailedReload(t *testing.T) {
	m, backend, remote, _ := newTestManager(t)
	ctx := context.Background()

	backend.err = errors.New("connection reset")
	require.NoError(t, m.DeleteDocument(ctx, "2"))
	assert.Equal(t, []string{"2"}, remote.deleted)
	assert.Len(t, m.Controller().All(), 2, "view keeps the last good set")
}

func TestDocument(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	view, err := m.Document(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", view.Document.Title)
	assert.Equal(t, "http://backend.test/uploads/la.pdf", view.Document.FileURL)
	assert.Equal(t, int64(1), view.Views)

	_, err = m.Document(ctx, "3")
	assert.ErrorIs(t, err, ErrNoFileURL)
	_, err = m.Document(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	view, err = m.Document(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Views, "only successful views are counted")
	assert.Equal(t, int64(2), m.Views())
}

func TestResetStats(t *testing.T) {
	m, _, _, store := newTestManager(t)
	ctx := context.Background()

	_, err := m.Download(ctx, "1")
	require.NoError(t, err)
	_, err = m.Document(ctx, "1")
	require.NoError(t, err)

	require.NoError(t, m.ResetStats(ctx))
	stats, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, downloads.Total(stats))
	assert.Zero(t, m.Views())

	_, total, err := m.DownloadSeries(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpload(t *testing.T) {
	m, _, remote, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Upload(ctx, client.UploadRequest{FileName: "a.txt", File: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.Upload(ctx, client.UploadRequest{Title: "Notes"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, remote.uploaded)

	doc, err := m.Upload(ctx, client.UploadRequest{
		FileName: "notes.txt",
		File:     strings.NewReader("lecture"),
		Title:    "Notes",
		Tags:     []string{"math"},
	})
	require.NoError(t, err)
	assert.Equal(t, "10", doc.ID)
	assert.Equal(t, "math", doc.Category)
	assert.Equal(t, "No description available", doc.Description)
	assert.Len(t, m.Controller().All(), 3)
	require.Len(t, remote.uploaded, 1)
	assert.Equal(t, "notes.txt", remote.uploaded[0].FileName)
}

func TestCategories(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	tags, err := m.Tags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	_, err = m.CreateCategory(ctx, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	tag, err := m.CreateCategory(ctx, "  physics ")
	require.NoError(t, err)
	assert.Equal(t, "physics", tag.Name)
}

func TestComments(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	fixed := time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	_, err := m.AddComment(ctx, "1", "  ", "")
	assert.ErrorIs(t, err, ErrValidation)

	c, err := m.AddComment(ctx, "1", " Great read ", "")
	require.NoError(t, err)
	assert.Equal(t, "Great read", c.Content)
	assert.Equal(t, AnonymousUser, c.User)
	require.NotNil(t, c.CreatedAt)
	assert.Equal(t, fixed, *c.CreatedAt)

	_, err = m.AddComment(ctx, "1", "Agreed", "Ann")
	require.NoError(t, err)

	comments, err := m.Comments(ctx, "1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Ann", comments[1].User)

	_, err = m.Comments(ctx, "404")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = m.AddComment(ctx, "404", "hi", "")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestReadOnlySource(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{
		{ID: "1", Title: "Doc"},
		{ID: "2", Title: "Scan", FileURL: "/uploads/scan.pdf"},
	}}
	controller := viewstate.NewController(viewstate.Options{})
	defer controller.Close()
	m := NewManager(backend, nil, downloads.NewMemoryStore(), controller)
	ctx := context.Background()
	require.NoError(t, m.Reload(ctx))

	_, err := m.Download(ctx, "1")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, m.DeleteDocument(ctx, "1"), ErrReadOnly)
	_, err = m.Upload(ctx, client.UploadRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = m.CreateCategory(ctx, "x")
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = m.AddComment(ctx, "1", "x", "")
	assert.ErrorIs(t, err, ErrReadOnly)

	comments, err := m.Comments(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, comments)

	view, err := m.Document(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/scan.pdf", view.Document.FileURL)
	_, err = m.Document(ctx, "1")
	assert.ErrorIs(t, err, ErrNoFileURL)
	_, err = m.Document(ctx, "9")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestPing(t *testing.T) {
	m, backend, _, _ := newTestManager(t)
	ctx := context.Background()
	assert.NoError(t, m.Ping(ctx))

	backend.pingErr = errors.New("down")
	assert.Error(t, m.Ping(ctx))

	backend.pingErr = nil
	controller := viewstate.NewController(viewstate.Options{})
	defer controller.Close()
	broken := NewManager(backend, nil, &brokenStore{}, controller)
	assert.Error(t, broken.Ping(ctx))
}

func TestStatsAndSeries(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Download(ctx, "1")
	require.NoError(t, err)

	stats := m.Stats(ctx)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalDownloads)
	assert.Equal(t, 0, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalTags)

	a := m.Analytics(ctx)
	assert.Len(t, a.Categories, 2)

	series, total, err := m.DownloadSeries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, series[len(series)-1].Count)
}
