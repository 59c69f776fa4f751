package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/library-dashboard/internal/models"
)

// FilePattern matches catalog files below the catalog directory
const FilePattern = "**/*.{yaml,yml}"

// Loader manages loading and caching of an offline document catalog. It
// serves the same read operations as the remote backend.
type Loader struct {
	mu    sync.RWMutex
	docs  []models.Document
	byID  map[string]int
	tags  []models.Tag
	users []models.User
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{
		byID: make(map[string]int),
	}
}

// LoadFromDir loads every catalog file below dir and replaces the current
// contents. Files are read in lexical path order; a document whose ID was
// already seen is skipped.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	files, err := doublestar.Glob(os.DirFS(dir), FilePattern)
	if err != nil {
		return fmt.Errorf("failed to glob catalog files: %w", err)
	}
	sort.Strings(files)

	b := newBuilder()
	loaded := 0
	for _, file := range files {
		if err := b.addFile(filepath.Join(dir, filepath.FromSlash(file))); err != nil {
			slog.Warn("failed to load catalog file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	l.mu.Lock()
	l.docs, l.byID, l.tags, l.users = b.docs, b.byID, b.tagList(), b.userList()
	l.mu.Unlock()

	slog.Info("catalog loaded", "files", loaded, "total_files", len(files), "documents", len(b.docs))
	return nil
}

// LoadFromFile loads a single catalog file, replacing the current contents
func (l *Loader) LoadFromFile(path string) error {
	b := newBuilder()
	if err := b.addFile(path); err != nil {
		return err
	}

	l.mu.Lock()
	l.docs, l.byID, l.tags, l.users = b.docs, b.byID, b.tagList(), b.userList()
	l.mu.Unlock()
	return nil
}

// Get retrieves a document by ID
func (l *Loader) Get(id string) (models.Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.byID[id]
	if !ok {
		return models.Document{}, false
	}
	return l.docs[i], true
}

// List returns all loaded documents in catalog order
func (l *Loader) List() []models.Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Document(nil), l.docs...)
}

// FetchAllDocuments returns all documents
func (l *Loader) FetchAllDocuments(ctx context.Context) ([]models.Document, error) {
	return l.List(), nil
}

// SearchByTag returns documents with a tag containing text, ignoring case
func (l *Loader) SearchByTag(ctx context.Context, text string) ([]models.Document, error) {
	query := strings.ToLower(text)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []models.Document
	for _, d := range l.docs {
		for _, tag := range d.Tags {
			if strings.Contains(strings.ToLower(tag), query) {
				result = append(result, d)
				break
			}
		}
	}
	return result, nil
}

// ListTags returns the declared tags followed by any tag used by a document
func (l *Loader) ListTags(ctx context.Context) ([]models.Tag, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Tag(nil), l.tags...), nil
}

// ListUsers returns the declared users followed by every document author
func (l *Loader) ListUsers(ctx context.Context) ([]models.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.User(nil), l.users...), nil
}

// HealthCheck always succeeds; the catalog lives in memory
func (l *Loader) HealthCheck(ctx context.Context) error {
	return nil
}

// builder accumulates catalog files into one document set
type builder struct {
	docs     []models.Document
	byID     map[string]int
	tagNames []string
	tagSeen  map[string]bool
	users    []string
	userSeen map[string]bool
}

func newBuilder() *builder {
	return &builder{
		byID:     make(map[string]int),
		tagSeen:  make(map[string]bool),
		userSeen: make(map[string]bool),
	}
}

func (b *builder) addFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, name := range cf.Tags {
		b.addTag(name)
	}
	for _, name := range cf.Users {
		b.addUser(name)
	}

	for i, df := range cf.Documents {
		doc, err := df.toModel()
		if err != nil {
			slog.Warn("skipping catalog document", "file", path, "index", i, "error", err)
			continue
		}
		if _, dup := b.byID[doc.ID]; dup {
			slog.Warn("duplicate catalog document id", "file", path, "id", doc.ID)
			continue
		}

		b.byID[doc.ID] = len(b.docs)
		b.docs = append(b.docs, doc)
		for _, t := range doc.Tags {
			b.addTag(t)
		}
		b.addUser(doc.Author)
	}

	return nil
}

func (b *builder) addTag(name string) {
	if name == "" || b.tagSeen[name] {
		return
	}
	b.tagSeen[name] = true
	b.tagNames = append(b.tagNames, name)
}

func (b *builder) addUser(name string) {
	if name == "" || b.userSeen[name] {
		return
	}
	b.userSeen[name] = true
	b.users = append(b.users, name)
}

func (b *builder) tagList() []models.Tag {
	tags := make([]models.Tag, 0, len(b.tagNames))
	for i, name := range b.tagNames {
		tags = append(tags, models.Tag{ID: int64(i + 1), Name: name})
	}
	return tags
}

func (b *builder) userList() []models.User {
	users := make([]models.User, 0, len(b.users))
	for i, name := range b.users {
		users = append(users, models.User{ID: int64(i + 1), Name: name})
	}
	return users
}

// --- YAML file structs ---

// catalogFile represents the YAML structure of a catalog file
type catalogFile struct {
	Documents []documentFile `yaml:"documents"`
	Tags      []string       `yaml:"tags"`
	Users     []string       `yaml:"users"`
}

// documentFile represents one document entry in a catalog file
type documentFile struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Author      string   `yaml:"author"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	UploadDate  string   `yaml:"upload_date"`
	Downloads   int      `yaml:"downloads"`
	FileURL     string   `yaml:"file_url"`
}

func (df documentFile) toModel() (models.Document, error) {
	if df.ID == "" {
		return models.Document{}, fmt.Errorf("document id is required")
	}
	if df.Title == "" {
		return models.Document{}, fmt.Errorf("document title is required")
	}

	author := df.Author
	if author == "" {
		author = "Unknown"
	}
	description := df.Description
	if description == "" {
		description = "No description available"
	}
	if df.Downloads < 0 {
		df.Downloads = 0
	}

	return models.Document{
		ID:          df.ID,
		Title:       df.Title,
		Author:      author,
		Description: description,
		Category:    models.CategoryFromTags(df.Tags),
		Tags:        append([]string{}, df.Tags...),
		UploadDate:  df.UploadDate,
		Downloads:   df.Downloads,
		FileURL:     df.FileURL,
	}, nil
}
