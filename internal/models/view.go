package models

// SortKey selects the ordering of the filtered document list
type SortKey string

const (
	SortNone      SortKey = ""
	SortTitle     SortKey = "title"
	SortAuthor    SortKey = "author"
	SortDate      SortKey = "date"
	SortDownloads SortKey = "downloads"
)

// ParseSortKey normalizes a raw sort value. Unknown values map to SortNone.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortTitle, SortAuthor, SortDate, SortDownloads:
		return k
	default:
		return SortNone
	}
}

// Criteria is the active search text, category filter and sort key
type Criteria struct {
	SearchText string  `json:"searchText"`
	Category   string  `json:"category"`
	SortKey    SortKey `json:"sortKey"`
}

// PaginationInfo describes the current page of the filtered list
type PaginationInfo struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	PageSize    int `json:"pageSize"`
}

// HasPrev reports whether PrevPage would move
func (p PaginationInfo) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext reports whether NextPage would move
func (p PaginationInfo) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// View is a full snapshot of what should be rendered
type View struct {
	Documents  []Document     `json:"documents"`
	Pagination PaginationInfo `json:"pagination"`
	Criteria   Criteria       `json:"criteria"`
}
