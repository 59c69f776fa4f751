package models

import "time"

// Uncategorized is the category of a document that carries no tags
const Uncategorized = "uncategorized"

// DayLayout is the ISO calendar day format used for upload dates and download stats
const DayLayout = "2006-01-02"

// Document is the read-only projection of a library document used by the dashboard
type Document struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Author      string   `json:"author" yaml:"author"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Tags        []string `json:"tags" yaml:"tags"`
	UploadDate  string   `json:"uploadDate" yaml:"upload_date"`
	Downloads   int      `json:"downloads" yaml:"downloads"`
	FileURL     string   `json:"fileUrl,omitempty" yaml:"file_url"`
}

// UploadTime parses UploadDate. The zero time is returned for unparsable dates.
func (d *Document) UploadTime() time.Time {
	t, err := time.Parse(DayLayout, d.UploadDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CategoryFromTags returns the first tag, or Uncategorized for an empty tag list
func CategoryFromTags(tags []string) string {
	if len(tags) == 0 || tags[0] == "" {
		return Uncategorized
	}
	return tags[0]
}

// Tag represents a backend tag (rendered as a category in the dashboard)
type Tag struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// User represents a backend user
type User struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Comment represents a comment attached to a document
type Comment struct {
	ID        int64      `json:"id,omitempty"`
	Content   string     `json:"content"`
	User      string     `json:"user"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}
