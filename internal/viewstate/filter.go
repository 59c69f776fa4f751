package viewstate

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"

	"github.com/terra-clan/library-dashboard/internal/models"
)

// MatchesSearch reports whether any of title, description, author or a tag
// contains text, ignoring case. Empty text matches everything.
func MatchesSearch(d models.Document, text string) bool {
	if text == "" {
		return true
	}
	return matchesLower(d, strings.ToLower(text))
}

func matchesLower(d models.Document, query string) bool {
	if strings.Contains(strings.ToLower(d.Title), query) ||
		strings.Contains(strings.ToLower(d.Description), query) ||
		strings.Contains(strings.ToLower(d.Author), query) {
		return true
	}
	for _, tag := range d.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func filterLocal(docs []models.Document, text string) []models.Document {
	query := strings.ToLower(text)
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if matchesLower(d, query) {
			out = append(out, d)
		}
	}
	return out
}

func matchesCategory(d models.Document, category string) bool {
	return category == "" || d.Category == category
}

// sortDocuments orders docs in place. Ties keep their relative order.
func sortDocuments(docs []models.Document, key models.SortKey, col *collate.Collator) {
	var less func(a, b *models.Document) bool

	switch key {
	case models.SortTitle:
		less = func(a, b *models.Document) bool {
			return col.CompareString(a.Title, b.Title) < 0
		}
	case models.SortAuthor:
		less = func(a, b *models.Document) bool {
			return col.CompareString(a.Author, b.Author) < 0
		}
	case models.SortDate:
		// most recent first; unparsable dates sort last
		less = func(a, b *models.Document) bool {
			return a.UploadTime().After(b.UploadTime())
		}
	case models.SortDownloads:
		less = func(a, b *models.Document) bool {
			return a.Downloads > b.Downloads
		}
	default:
		return
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return less(&docs[i], &docs[j])
	})
}
