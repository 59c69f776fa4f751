package client

import (
	"encoding/json"
	"time"

	"github.com/terra-clan/library-dashboard/internal/models"
)

const (
	unknownAuthor      = "Unknown"
	defaultDescription = "No description available"
)

// Document is a document as returned by the backend
type Document struct {
	ID          json.Number  `json:"id"`
	Title       string       `json:"title"`
	FileURL     string       `json:"fileUrl"`
	FileName    string       `json:"fileName,omitempty"`
	Description string       `json:"description"`
	UploadedAt  string       `json:"uploadedAt,omitempty"`
	UploadedBy  *models.User `json:"uploadedBy,omitempty"`
	Tags        []models.Tag `json:"tags"`
}

// TagNames returns the names of the document's tags in order
func (d *Document) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		names = append(names, t.Name)
	}
	return names
}

// ToModel projects a backend document into the dashboard shape.
// now supplies the upload day for documents without an upload timestamp.
func (d *Document) ToModel(now time.Time) models.Document {
	author := unknownAuthor
	if d.UploadedBy != nil && d.UploadedBy.Name != "" {
		author = d.UploadedBy.Name
	}

	description := d.Description
	if description == "" {
		description = defaultDescription
	}

	tags := d.TagNames()

	return models.Document{
		ID:          d.ID.String(),
		Title:       d.Title,
		Author:      author,
		Description: description,
		Category:    models.CategoryFromTags(tags),
		Tags:        tags,
		UploadDate:  uploadDay(d.UploadedAt, now),
		Downloads:   0,
		FileURL:     d.FileURL,
	}
}

// ToModels projects a slice of backend documents, skipping nil entries
func ToModels(docs []*Document, now time.Time) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		out = append(out, d.ToModel(now))
	}
	return out
}

// uploadDay extracts the calendar day from a backend timestamp. The backend
// serializes LocalDateTime without a zone, so RFC3339 is tried first and the
// leading date is used otherwise.
func uploadDay(raw string, now time.Time) string {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.UTC().Format(models.DayLayout)
		}
		if len(raw) >= len(models.DayLayout) {
			if t, err := time.Parse(models.DayLayout, raw[:len(models.DayLayout)]); err == nil {
				return t.Format(models.DayLayout)
			}
		}
	}
	return now.UTC().Format(models.DayLayout)
}
