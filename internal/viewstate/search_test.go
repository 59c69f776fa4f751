package viewstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/library-dashboard/internal/models"
)

const testDebounce = 10 * time.Millisecond

// gatedSearcher reports every call on calls and answers each text with
// whatever is sent on its release channel
type gatedSearcher struct {
	calls   chan string
	release map[string]chan []models.Document
}

func newGatedSearcher(texts ...string) *gatedSearcher {
	s := &gatedSearcher{
		calls:   make(chan string, 16),
		release: make(map[string]chan []models.Document),
	}
	for _, text := range texts {
		s.release[text] = make(chan []models.Document)
	}
	return s
}

func (s *gatedSearcher) SearchByTag(ctx context.Context, text string) ([]models.Document, error) {
	s.calls <- text
	select {
	case docs := <-s.release[text]:
		return docs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type failingSearcher struct {
	calls chan string
}

func (s *failingSearcher) SearchByTag(ctx context.Context, text string) ([]models.Document, error) {
	s.calls <- text
	return nil, errors.New("503 service unavailable")
}

func waitCall(t *testing.T, calls <-chan string) string {
	t.Helper()
	select {
	case text := <-calls:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("search was not issued")
		return ""
	}
}

func hasIDs(c *Controller, want ...string) func() bool {
	return func() bool {
		got := ids(c.Filtered())
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}
}

var searchDocs = []models.Document{
	{ID: "local-ab", Title: "ab", Category: "misc"},
	{ID: "local-abc", Title: "abc", Category: "misc"},
	{ID: "other", Title: "xyz", Category: "misc"},
}

func TestRemoteSearchReplacesLocalResults(t *testing.T) {
	s := newGatedSearcher("golang")
	c := NewController(Options{Debounce: testDebounce, Searcher: s})
	defer c.Close()
	c.SetDocuments(searchDocs)

	c.SetSearchText("GoLang")
	assert.Empty(t, c.Filtered())

	assert.Equal(t, "golang", waitCall(t, s.calls))
	s.release["golang"] <- []models.Document{{ID: "remote-1", Category: "misc"}}

	assert.Eventually(t, hasIDs(c, "remote-1"), time.Second, 5*time.Millisecond)
}

func TestStaleRemoteResultDiscarded(t *testing.T) {
	s := newGatedSearcher("ab", "abc")
	c := NewController(Options{Debounce: testDebounce, Searcher: s})
	defer c.Close()
	c.SetDocuments(searchDocs)

	c.SetSearchText("ab")
	require.Equal(t, "ab", waitCall(t, s.calls))

	c.SetSearchText("abc")
	require.Equal(t, "abc", waitCall(t, s.calls))
	assert.Equal(t, []string{"local-abc"}, ids(c.Filtered()))

	s.release["abc"] <- []models.Document{{ID: "remote-abc"}}
	require.Eventually(t, hasIDs(c, "remote-abc"), time.Second, 5*time.Millisecond)

	// the older search answers last and must not win
	s.release["ab"] <- []models.Document{{ID: "remote-ab"}}
	assert.Never(t, hasIDs(c, "remote-ab"), 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"remote-abc"}, ids(c.Filtered()))
}

func TestDebounceCoalescesKeystrokes(t *testing.T) {
	s := newGatedSearcher("abc")
	c := NewController(Options{Debounce: 50 * time.Millisecond, Searcher: s})
	defer c.Close()
	c.SetDocuments(searchDocs)

	c.SetSearchText("a")
	c.SetSearchText("ab")
	c.SetSearchText("abc")

	assert.Equal(t, "abc", waitCall(t, s.calls))
	s.release["abc"] <- nil

	select {
	case extra := <-s.calls:
		t.Fatalf("unexpected search for %q", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRemoteFailureKeepsLocalResults(t *testing.T) {
	s := &failingSearcher{calls: make(chan string, 4)}
	r := &recordRenderer{}
	c := NewController(Options{Debounce: testDebounce, Searcher: s, Renderer: r})
	defer c.Close()
	c.SetDocuments(searchDocs)

	c.SetSearchText("ab")
	waitCall(t, s.calls)

	assert.Never(t, func() bool {
		return !hasIDs(c, "local-ab", "local-abc")()
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 2, r.count())
}

func TestRemoteHitsFilteredByCategoryAndSorted(t *testing.T) {
	s := newGatedSearcher("book")
	c := NewController(Options{Debounce: testDebounce, Searcher: s})
	defer c.Close()
	c.SetDocuments(searchDocs)
	c.SetCategory("math")
	c.SetSort(models.SortTitle)

	c.SetSearchText("book")
	waitCall(t, s.calls)
	s.release["book"] <- []models.Document{
		{ID: "r1", Title: "Zeta", Category: "math"},
		{ID: "r2", Title: "Alpha", Category: "art"},
		{ID: "r3", Title: "beta", Category: "math"},
	}

	assert.Eventually(t, hasIDs(c, "r3", "r1"), time.Second, 5*time.Millisecond)
}

func TestClearingSearchDropsRemoteResults(t *testing.T) {
	s := newGatedSearcher("ab")
	c := NewController(Options{Debounce: testDebounce, Searcher: s})
	defer c.Close()
	c.SetDocuments(searchDocs)

	c.SetSearchText("ab")
	waitCall(t, s.calls)
	s.release["ab"] <- []models.Document{{ID: "remote"}}
	require.Eventually(t, hasIDs(c, "remote"), time.Second, 5*time.Millisecond)

	c.SetSearchText("")
	assert.Equal(t, []string{"local-ab", "local-abc", "other"}, ids(c.Filtered()))
}

func TestCloseCancelsPendingSearch(t *testing.T) {
	s := newGatedSearcher("ab")
	c := NewController(Options{Debounce: 30 * time.Millisecond, Searcher: s})
	c.SetDocuments(searchDocs)

	c.SetSearchText("ab")
	c.Close()

	select {
	case text := <-s.calls:
		t.Fatalf("search for %q issued after Close", text)
	case <-time.After(100 * time.Millisecond):
	}
}
