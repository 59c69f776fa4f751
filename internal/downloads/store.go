package downloads

import (
	"context"
	"sort"
	"time"

	"github.com/terra-clan/library-dashboard/internal/models"
)

// StatsKey is the storage key of the per-day download counters
const StatsKey = "downloadStats"

// Store persists a per-day download counter
type Store interface {
	// IncrementToday adds one download to today's counter and returns the new count
	IncrementToday(ctx context.Context) (int, error)

	// ReadAll returns every recorded day and its count
	ReadAll(ctx context.Context) (map[string]int, error)

	// Reset removes every recorded day
	Reset(ctx context.Context) error

	// HealthCheck checks if the store is reachable
	HealthCheck(ctx context.Context) error

	Close() error
}

// Clock returns the current time
type Clock func() time.Time

// Option configures a store
type Option func(*base)

// WithClock overrides the clock used to determine "today"
func WithClock(clock Clock) Option {
	return func(b *base) {
		b.now = clock
	}
}

type base struct {
	now Clock
}

func newBase(opts []Option) base {
	b := base{now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) today() string {
	return DayKey(b.now())
}

// DayKey formats t as the UTC calendar day used for counter keys
func DayKey(t time.Time) string {
	return t.UTC().Format(models.DayLayout)
}

// Total sums all counters
func Total(stats map[string]int) int {
	total := 0
	for _, n := range stats {
		total += n
	}
	return total
}

// Series returns the trailing window of days ending at today, oldest first.
// Days without downloads have a zero count.
func Series(stats map[string]int, today time.Time, days int) []models.DailyDownloads {
	if days <= 0 {
		return []models.DailyDownloads{}
	}

	series := make([]models.DailyDownloads, 0, days)
	end := today.UTC()
	for i := days - 1; i >= 0; i-- {
		d := end.AddDate(0, 0, -i)
		key := DayKey(d)
		series = append(series, models.DailyDownloads{
			Day:   d.Format("Mon"),
			Date:  key,
			Count: stats[key],
		})
	}
	return series
}

// Days returns the recorded days in ascending order
func Days(stats map[string]int) []string {
	days := make([]string, 0, len(stats))
	for day := range stats {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}
