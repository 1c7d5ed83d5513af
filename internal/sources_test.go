package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	candidates []Candidate
	err        error
}

func (s *fakeSearcher) Search(context.Context, string, string, DateFilter) ([]Candidate, error) {
	return s.candidates, s.err
}

// mapResolver resolves keys from a map; missing keys fail
type mapResolver struct {
	texts map[string]string
	calls []string
}

func (r *mapResolver) Resolve(_ context.Context, key string) (string, error) {
	r.calls = append(r.calls, key)
	if text, ok := r.texts[key]; ok {
		return text, nil
	}
	return "", errors.New("not found")
}

func newTestLedger(t *testing.T) Ledger {
	dir := t.TempDir()
	l := NewFileLedger(filepath.Join(dir, "processed_ids.txt"), filepath.Join(dir, "failed_ids.txt"))
	require.NoError(t, l.Load(context.Background()))
	return l
}

func collect(seq func(func(Item) bool)) []Item {
	var items []Item
	for item := range seq {
		items = append(items, item)
	}
	return items
}

func june(day int) time.Time {
	return time.Date(2025, 6, day, 12, 0, 0, 0, time.UTC)
}

func TestYouTubeCheckerWalk(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	require.NoError(t, ledger.MarkProcessed(ctx, "done"))

	searcher := &fakeSearcher{candidates: []Candidate{
		{ID: "done", Title: "Old", Published: june(1)},
		{ID: "fresh", Title: "Fresh", URL: VideoURL("fresh"), Published: june(2)},
		{ID: "broken", Title: "Broken", Published: june(3)},
	}}
	resolver := &mapResolver{texts: map[string]string{"fresh": "transcript"}}
	checker := NewYouTubeChecker(searcher, resolver, ledger, NoopPacer{}, false, testLogger())

	src := Source{Name: "chan", Type: SourceYouTube, ChannelID: "UC1"}
	items := collect(checker.Check(ctx, src, DateFilter{}))

	require.Len(t, items, 1)
	assert.Equal(t, Item{ID: "fresh", Title: "Fresh", URL: VideoURL("fresh"), Content: "transcript", Source: "chan", Kind: SourceYouTube}, items[0])
	assert.Equal(t, []string{"fresh", "broken"}, resolver.calls)
	assert.True(t, ledger.IsFailed("broken"))
	assert.False(t, ledger.IsProcessed("fresh"))

	assert.Equal(t, CheckStats{Discovered: 3, Skipped: 1, Failed: 1, Yielded: 1}, checker.Stats())
}

func TestYouTubeCheckerRequiresChannel(t *testing.T) {
	checker := NewYouTubeChecker(&fakeSearcher{}, &mapResolver{}, newTestLedger(t), NoopPacer{}, false, testLogger())
	_, err := checker.Discover(context.Background(), Source{Name: "x"}, DateFilter{})
	assert.Error(t, err)
}

func TestCheckerDateWindow(t *testing.T) {
	ctx := context.Background()
	for _, prune := range []bool{false, true} {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.MarkFailed(ctx, "may"))

		searcher := &fakeSearcher{candidates: []Candidate{
			{ID: "may", Published: time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC)},
			{ID: "undated"},
			{ID: "june", Published: june(1)},
		}}
		resolver := &mapResolver{texts: map[string]string{"june": "text"}}
		checker := NewYouTubeChecker(searcher, resolver, ledger, NoopPacer{}, prune, testLogger())

		items := collect(checker.Check(ctx, Source{Name: "c", Type: SourceYouTube, ChannelID: "UC1"}, DateFilter{Year: 2025, Month: 6}))
		require.Len(t, items, 1)
		assert.Equal(t, "june", items[0].ID)
		assert.Equal(t, []string{"june"}, resolver.calls)
		assert.Equal(t, 2, checker.Stats().OutOfWindow)

		// pruning only drops the failure, it never marks the id processed
		assert.Equal(t, !prune, ledger.IsFailed("may"))
		assert.False(t, ledger.IsProcessed("may"))
	}
}

func TestCheckerStopsWhenConsumerStops(t *testing.T) {
	searcher := &fakeSearcher{candidates: []Candidate{{ID: "a"}, {ID: "b"}}}
	resolver := &mapResolver{texts: map[string]string{"a": "1", "b": "2"}}
	checker := NewYouTubeChecker(searcher, resolver, newTestLedger(t), NoopPacer{}, false, testLogger())

	for range checker.Check(context.Background(), Source{Name: "c", ChannelID: "UC1"}, DateFilter{}) {
		break
	}
	assert.Equal(t, []string{"a"}, resolver.calls)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Blog</title>
  <item><title>Seen</title><link>https://blog.example.com/seen</link><guid>guid-seen</guid><pubDate>Mon, 02 Jun 2025 08:00:00 GMT</pubDate></item>
  <item><title>New Post</title><link>https://blog.example.com/new</link><pubDate>Tue, 03 Jun 2025 08:00:00 GMT</pubDate></item>
  <item><title>No Link</title><guid>guid-nolink</guid></item>
</channel></rss>`

func TestRSSChecker(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer server.Close()

	ledger := newTestLedger(t)
	require.NoError(t, ledger.MarkProcessed(ctx, "guid-seen"))
	resolver := &mapResolver{texts: map[string]string{"https://blog.example.com/new": "article body"}}
	checker := NewRSSChecker(server.Client(), resolver, ledger, NoopPacer{}, false, testLogger())

	src := Source{Name: "blog", Type: SourceRSS, URL: server.URL}
	items := collect(checker.Check(ctx, src, DateFilter{}))

	// the processed entry is skipped before any article fetch
	assert.Equal(t, []string{"https://blog.example.com/new"}, resolver.calls)
	require.Len(t, items, 1)
	assert.Equal(t, "https://blog.example.com/new", items[0].ID)
	assert.Equal(t, "article body", items[0].Content)
	assert.Equal(t, SourceRSS, items[0].Kind)
	assert.Equal(t, 2, checker.Stats().Discovered)
}

func TestRSSCheckerDiscoveryFailureYieldsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := &mapResolver{}
	checker := NewRSSChecker(server.Client(), resolver, newTestLedger(t), NoopPacer{}, false, testLogger())
	items := collect(checker.Check(context.Background(), Source{Name: "x", Type: SourceRSS, URL: server.URL}, DateFilter{}))
	assert.Empty(t, items)
	assert.Empty(t, resolver.calls)
}
