package models

// DashboardStats holds the headline counters shown on the dashboard
type DashboardStats struct {
	TotalDocuments int `json:"totalDocuments"`
	TotalDownloads int `json:"totalDownloads"`
	TotalUsers     int `json:"totalUsers"`
	TotalTags      int `json:"totalTags"`
}

// DailyDownloads is one point of the trailing downloads series
type DailyDownloads struct {
	Day   string `json:"day"`  // "Mon"
	Date  string `json:"date"` // "2024-03-18"
	Count int    `json:"count"`
}

// CategoryCount is the number of documents carrying a tag
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Analytics holds chart data for the analytics section
type Analytics struct {
	Downloads       []DailyDownloads `json:"downloads"`
	Categories      []CategoryCount  `json:"categories"`
	TotalDocuments  int              `json:"totalDocuments"`
	TotalCategories int              `json:"totalCategories"`
}
