package analytics

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/library-dashboard/internal/downloads"
	"github.com/terra-clan/library-dashboard/internal/models"
)

// SeriesDays is the length of the trailing downloads series
const SeriesDays = 7

// Backend is the subset of the library backend used for statistics
type Backend interface {
	FetchAllDocuments(ctx context.Context) ([]models.Document, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Service computes dashboard statistics and chart data. Every backend or
// store failure degrades the affected figure to zero instead of failing.
type Service struct {
	backend Backend
	store   downloads.Store
	now     func() time.Time
}

// NewService creates an analytics service
func NewService(backend Backend, store downloads.Store) *Service {
	return &Service{
		backend: backend,
		store:   store,
		now:     time.Now,
	}
}

// Stats returns the dashboard headline counters
func (s *Service) Stats(ctx context.Context) models.DashboardStats {
	var (
		docs     []models.Document
		tags     []models.Tag
		users    []models.User
		stats    map[string]int
		usersErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if docs, err = s.backend.FetchAllDocuments(gctx); err != nil {
			slog.Warn("stats: failed to fetch documents", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if tags, err = s.backend.ListTags(gctx); err != nil {
			slog.Warn("stats: failed to fetch tags", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		users, usersErr = s.backend.ListUsers(gctx)
		if usersErr != nil {
			slog.Debug("stats: users unavailable, assuming single visitor", "error", usersErr)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stats, err = s.store.ReadAll(gctx); err != nil {
			slog.Warn("stats: failed to read download counters", "error", err)
		}
		return nil
	})
	_ = g.Wait()

	totalUsers := 1
	if usersErr == nil {
		totalUsers = len(users)
	}

	return models.DashboardStats{
		TotalDocuments: len(docs),
		TotalDownloads: downloads.Total(stats),
		TotalUsers:     totalUsers,
		TotalTags:      len(tags),
	}
}

// Analytics returns chart data: the trailing downloads series and the
// number of documents per tag
func (s *Service) Analytics(ctx context.Context) models.Analytics {
	var (
		docs  []models.Document
		tags  []models.Tag
		stats map[string]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if docs, err = s.backend.FetchAllDocuments(gctx); err != nil {
			slog.Warn("analytics: failed to fetch documents", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if tags, err = s.backend.ListTags(gctx); err != nil {
			slog.Warn("analytics: failed to fetch tags", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stats, err = s.store.ReadAll(gctx); err != nil {
			slog.Warn("analytics: failed to read download counters", "error", err)
		}
		return nil
	})
	_ = g.Wait()

	return models.Analytics{
		Downloads:       downloads.Series(stats, s.now(), SeriesDays),
		Categories:      CategoryCounts(docs, tags),
		TotalDocuments:  len(docs),
		TotalCategories: len(tags),
	}
}

// DownloadSeries returns the trailing series and the cumulative total
func (s *Service) DownloadSeries(ctx context.Context) ([]models.DailyDownloads, int, error) {
	stats, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	return downloads.Series(stats, s.now(), SeriesDays), downloads.Total(stats), nil
}

// CategoryCounts counts, per tag, the documents carrying it. Tags without
// documents are omitted; tag order is preserved.
func CategoryCounts(docs []models.Document, tags []models.Tag) []models.CategoryCount {
	perTag := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool, len(d.Tags))
		for _, t := range d.Tags {
			if !seen[t] {
				seen[t] = true
				perTag[t]++
			}
		}
	}

	counts := make([]models.CategoryCount, 0, len(tags))
	for _, t := range tags {
		if n := perTag[t.Name]; n > 0 {
			counts = append(counts, models.CategoryCount{Name: t.Name, Count: n})
		}
	}
	return counts
}
