package internal

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	messages []string
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, message string) {
	b.messages = append(b.messages, message)
}

type fakePersister struct {
	fail  map[string]bool
	saved []string
}

func (p *fakePersister) Persist(title, _, _, _ string) (string, error) {
	if p.fail[title] {
		return "", errors.New("disk full")
	}
	p.saved = append(p.saved, title)
	return filepath.Join("output", title+".md"), nil
}

type echoSummarizer struct{}

func (echoSummarizer) SummarizeTitled(_ context.Context, title, text string) string {
	return "summary of " + title + ": " + text
}

type panicChecker struct{}

func (panicChecker) Check(context.Context, Source, DateFilter) iter.Seq[Item] {
	return func(func(Item) bool) { panic("checker exploded") }
}

// recordingPacer records every window it is asked to wait for
type recordingPacer struct {
	waits []Delay
}

func (p *recordingPacer) Wait(_ context.Context, d Delay) {
	p.waits = append(p.waits, d)
}

func (p *recordingPacer) count(d Delay) int {
	n := 0
	for _, w := range p.waits {
		if w == d {
			n++
		}
	}
	return n
}

type appFixture struct {
	app         *App
	ledger      Ledger
	broadcaster *recordingBroadcaster
	persister   *fakePersister
	searcher    *fakeSearcher
	transcripts *mapResolver
}

func newAppFixture(t *testing.T, sources []Source, options ...AppOption) *appFixture {
	dir := t.TempDir()
	config := &Config{
		Sources:          sources,
		MaxRetries:       1,
		ProcessedIDsFile: filepath.Join(dir, "processed_ids.txt"),
		FailedIDsFile:    filepath.Join(dir, "failed_ids.txt"),
		OutputDir:        filepath.Join(dir, "output"),
		TempDir:          filepath.Join(dir, "tmp"),
		STTBackend:       "none",
	}
	f := &appFixture{
		ledger:      NewFileLedger(config.ProcessedIDsFile, config.FailedIDsFile),
		broadcaster: &recordingBroadcaster{},
		persister:   &fakePersister{fail: map[string]bool{}},
		searcher:    &fakeSearcher{},
		transcripts: &mapResolver{texts: map[string]string{}},
	}
	base := []AppOption{
		WithLogger(testLogger()),
		WithUI(NewSilentUIManager()),
		WithPacer(NoopPacer{}),
		WithLedger(f.ledger),
		WithTranscriptResolver(f.transcripts),
		WithSummarizer(echoSummarizer{}),
		WithBroadcaster(f.broadcaster),
		WithPersister(f.persister),
		WithVideoSearcher(f.searcher),
		WithMetadataFetcher(&fakeMetadata{}),
	}
	f.app = NewApp(config, append(base, options...)...)
	return f
}

type fakeMetadata struct {
	md  *VideoMetadata
	err error
}

func (m *fakeMetadata) Metadata(context.Context, string) (*VideoMetadata, error) {
	if m.md == nil && m.err == nil {
		return nil, errors.New("no metadata")
	}
	return m.md, m.err
}

var channelSource = Source{Name: "channel", Type: SourceYouTube, Enabled: true, ChannelID: "UC1"}

func TestRunProcessesNewItemsOnce(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, []Source{channelSource})
	f.searcher.candidates = []Candidate{
		{ID: "v1", Title: "First", URL: VideoURL("v1")},
		{ID: "v2", Title: "Second", URL: VideoURL("v2")},
	}
	f.transcripts.texts["v1"] = "one"
	f.transcripts.texts["v2"] = "two"

	report, err := f.app.Run(ctx, DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.LedgerProcessed)
	require.Len(t, f.broadcaster.messages, 2)
	assert.Equal(t, FormatBroadcast("First", VideoURL("v1"), "summary of First: one"), f.broadcaster.messages[0])
	assert.Equal(t, []string{"First", "Second"}, f.persister.saved)

	// a second run over the same candidates broadcasts nothing
	report, err = f.app.Run(ctx, DateFilter{})
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 2, report.Checks.Skipped)
	assert.Len(t, f.broadcaster.messages, 2)
}

func TestRunRetriesFailuresOnNextRun(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, []Source{channelSource})
	f.searcher.candidates = []Candidate{{ID: "v1", Title: "Flaky"}}

	report, err := f.app.Run(ctx, DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checks.Failed)
	assert.True(t, f.ledger.IsFailed("v1"))
	assert.Empty(t, f.broadcaster.messages)

	f.transcripts.texts["v1"] = "now available"
	report, err = f.app.Run(ctx, DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.True(t, f.ledger.IsProcessed("v1"))
	assert.False(t, f.ledger.IsFailed("v1"))
}

func TestRunPersistFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, []Source{channelSource})
	f.searcher.candidates = []Candidate{{ID: "v1", Title: "Unsaved"}}
	f.transcripts.texts["v1"] = "text"
	f.persister.fail["Unsaved"] = true

	report, err := f.app.Run(ctx, DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PersistFailed)
	assert.Zero(t, report.Processed)
	assert.True(t, f.ledger.IsFailed("v1"))
	assert.False(t, f.ledger.IsProcessed("v1"))
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	ctx := context.Background()
	broken := Source{Name: "broken", Type: "custom", Enabled: true}
	disabled := Source{Name: "off", Type: SourceYouTube, Enabled: false, ChannelID: "UC2"}
	f := newAppFixture(t, []Source{broken, disabled, channelSource}, WithChecker("custom", panicChecker{}))
	f.searcher.candidates = []Candidate{{ID: "v1", Title: "Survivor"}}
	f.transcripts.texts["v1"] = "text"

	report, err := f.app.Run(ctx, DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sources)
	assert.Equal(t, 1, report.SourceErrors)
	assert.Equal(t, 1, report.Processed)
}

func TestRunSkipsUnknownSourceType(t *testing.T) {
	f := newAppFixture(t, []Source{{Name: "mystery", Type: "podcast", Enabled: true}})
	report, err := f.app.Run(context.Background(), DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sources)
	assert.Zero(t, report.SourceErrors)
}

func TestDiscoverReportsLedgerState(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, []Source{channelSource})
	f.searcher.candidates = []Candidate{
		{ID: "done", Published: june(2)},
		{ID: "failed", Published: june(3)},
		{ID: "may", Published: june(1).AddDate(0, -1, 0)},
	}
	require.NoError(t, f.ledger.Load(ctx))
	require.NoError(t, f.ledger.MarkProcessed(ctx, "done"))
	require.NoError(t, f.ledger.MarkFailed(ctx, "failed"))

	results, err := f.app.Discover(ctx, DateFilter{Year: 2025, Month: 6})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Candidates, 3)

	states := results[0].Candidates
	assert.True(t, states[0].Processed)
	assert.True(t, states[1].Failed)
	assert.False(t, states[2].InWindow)
	assert.Empty(t, f.transcripts.calls)
	assert.Empty(t, f.broadcaster.messages)
}

func TestContentUsesMetadataTitle(t *testing.T) {
	f := newAppFixture(t, nil, WithMetadataFetcher(&fakeMetadata{md: &VideoMetadata{Title: "Real Title"}}))
	f.transcripts.texts["dQw4w9WgXcQ"] = "lyrics"

	title, text, err := f.app.Content(context.Background(), ParseTarget("https://youtu.be/dQw4w9WgXcQ"))
	require.NoError(t, err)
	assert.Equal(t, "Real Title", title)
	assert.Equal(t, "lyrics", text)

	g := newAppFixture(t, nil)
	g.transcripts.texts["dQw4w9WgXcQ"] = "lyrics"
	title, _, err = g.app.Content(context.Background(), ParseTarget("dQw4w9WgXcQ"))
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", title)

	_, _, err = g.app.Content(context.Background(), ParseTarget("not a url"))
	assert.Error(t, err)
}

func TestRunPacesEveryProcessedItem(t *testing.T) {
	pacer := &recordingPacer{}
	f := newAppFixture(t, []Source{channelSource}, WithPacer(pacer))
	f.searcher.candidates = []Candidate{
		{ID: "v1", Title: "Unsaved"},
		{ID: "v2", Title: "Saved"},
	}
	f.transcripts.texts["v1"] = "one"
	f.transcripts.texts["v2"] = "two"
	f.persister.fail["Unsaved"] = true

	report, err := f.app.Run(context.Background(), DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PersistFailed)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, pacer.count(ProcessItemDelay))
}
