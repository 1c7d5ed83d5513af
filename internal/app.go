package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Broadcaster announces a processed item
type Broadcaster interface {
	Broadcast(ctx context.Context, message string)
}

// Persister stores a processed item and returns where it went
type Persister interface {
	Persist(title, url, summary, content string) (string, error)
}

// ItemSummarizer never fails; degraded summaries are fixed strings
type ItemSummarizer interface {
	SummarizeTitled(ctx context.Context, title, text string) string
}

// RunReport summarizes one pipeline run
type RunReport struct {
	Sources         int           `json:"sources"`
	SourceErrors    int           `json:"source_errors"`
	Processed       int           `json:"processed"`
	PersistFailed   int           `json:"persist_failed"`
	Checks          CheckStats    `json:"checks"`
	LedgerProcessed int           `json:"ledger_processed"`
	LedgerFailed    int           `json:"ledger_failed"`
	Elapsed         time.Duration `json:"elapsed"`
}

// App holds the application state and dependencies
type App struct {
	config *Config
	logger *slog.Logger
	ui     UIManager
	pacer  Pacer
	client *http.Client

	ledger      Ledger
	transcripts ContentResolver
	articles    *ArticleResolver
	summarizer  ItemSummarizer
	broadcaster Broadcaster
	persister   Persister
	searcher    VideoSearcher
	metadata    MetadataFetcher
	checkers    map[SourceType]Checker
}

// MetadataFetcher looks up a video's title and details
type MetadataFetcher interface {
	Metadata(ctx context.Context, videoID string) (*VideoMetadata, error)
}

// AppOption customizes App creation
type AppOption func(*App)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) { a.logger = logger }
}

// WithUI sets the terminal UI
func WithUI(ui UIManager) AppOption {
	return func(a *App) { a.ui = ui }
}

// WithPacer sets the pacer used for every randomized wait
func WithPacer(pacer Pacer) AppOption {
	return func(a *App) { a.pacer = pacer }
}

// WithHTTPClient sets the client for feeds, articles and LINE
func WithHTTPClient(client *http.Client) AppOption {
	return func(a *App) { a.client = client }
}

// WithLedger sets a custom ledger
func WithLedger(ledger Ledger) AppOption {
	return func(a *App) { a.ledger = ledger }
}

// WithTranscriptResolver sets a custom video transcript resolver
func WithTranscriptResolver(resolver ContentResolver) AppOption {
	return func(a *App) { a.transcripts = resolver }
}

// WithArticleResolver sets a custom article resolver
func WithArticleResolver(resolver *ArticleResolver) AppOption {
	return func(a *App) { a.articles = resolver }
}

// WithSummarizer sets a custom summarizer
func WithSummarizer(summarizer ItemSummarizer) AppOption {
	return func(a *App) { a.summarizer = summarizer }
}

// WithBroadcaster sets a custom broadcaster
func WithBroadcaster(broadcaster Broadcaster) AppOption {
	return func(a *App) { a.broadcaster = broadcaster }
}

// WithPersister sets a custom persister
func WithPersister(persister Persister) AppOption {
	return func(a *App) { a.persister = persister }
}

// WithVideoSearcher sets a custom YouTube searcher
func WithVideoSearcher(searcher VideoSearcher) AppOption {
	return func(a *App) { a.searcher = searcher }
}

// WithMetadataFetcher sets how one-off commands look up video titles
func WithMetadataFetcher(metadata MetadataFetcher) AppOption {
	return func(a *App) { a.metadata = metadata }
}

// WithChecker registers a checker for a source type
func WithChecker(kind SourceType, checker Checker) AppOption {
	return func(a *App) { a.checkers[kind] = checker }
}

// NewApp initializes the application. Collaborators not supplied through
// options are built from config; none of them touches the network yet.
func NewApp(config *Config, options ...AppOption) *App {
	app := &App{
		config:   config,
		checkers: make(map[SourceType]Checker),
	}

	for _, option := range options {
		option(app)
	}

	if app.logger == nil {
		app.logger = slog.Default()
	}
	if app.ui == nil {
		app.ui = NewUIManager(config.Quiet)
	}
	if app.pacer == nil {
		app.pacer = NewRandomPacer()
	}
	if app.client == nil {
		app.client = &http.Client{Timeout: config.HTTPTimeout}
	}
	if app.ledger == nil {
		app.ledger = NewLedger(config)
	}
	if app.transcripts == nil {
		app.transcripts = NewResolverFromConfig(config, app.pacer, app.logger)
	}
	if app.articles == nil {
		app.articles = NewArticleResolver(app.client, config.MaxRetries, app.pacer, app.logger)
	}
	if app.summarizer == nil {
		app.summarizer = NewSummarizerFromConfig(config, app.logger)
	}
	if app.broadcaster == nil {
		app.broadcaster = NewLineBroadcaster(config.LineToken, app.client, app.logger)
	}
	if app.persister == nil {
		app.persister = NewMarkdownWriter(config.OutputDir)
	}
	if app.searcher == nil {
		app.searcher = NewVideoSearcher(config, app.client, app.logger)
	}
	if app.metadata == nil {
		app.metadata = NewYtDlp(config.TempDir, config.CookiesFile, app.logger)
	}
	if _, ok := app.checkers[SourceYouTube]; !ok {
		app.checkers[SourceYouTube] = NewYouTubeChecker(app.searcher, app.transcripts, app.ledger, app.pacer, config.PruneOutOfWindowFailures, app.logger)
	}
	if _, ok := app.checkers[SourceRSS]; !ok {
		app.checkers[SourceRSS] = NewRSSChecker(app.client, app.articles, app.ledger, app.pacer, config.PruneOutOfWindowFailures, app.logger)
	}

	return app
}

// Config returns the loaded configuration
func (app *App) Config() *Config { return app.config }

// Ledger returns the id ledger
func (app *App) Ledger() Ledger { return app.ledger }

// Close releases the ledger
func (app *App) Close() error { return app.ledger.Close() }

type statsReporter interface {
	Stats() CheckStats
}

func (app *App) checkStats() CheckStats {
	var total CheckStats
	for _, checker := range app.checkers {
		if r, ok := checker.(statsReporter); ok {
			total.Add(r.Stats())
		}
	}
	return total
}

// Run polls every enabled source once. Only a ledger load failure aborts the
// run; source errors and panics are logged and the next source proceeds.
func (app *App) Run(ctx context.Context, filter DateFilter) (RunReport, error) {
	start := time.Now()
	var report RunReport

	if err := app.ledger.Load(ctx); err != nil {
		return report, fmt.Errorf("loading ledger: %w", err)
	}
	processed, failed := app.ledger.Counts()
	app.logger.Info("run started", "window", filter, "processed_ids", processed, "failed_ids", failed)

	before := app.checkStats()
	for _, src := range app.config.EnabledSources() {
		if ctx.Err() != nil {
			break
		}
		report.Sources++
		if err := app.runSource(ctx, src, filter, &report); err != nil {
			report.SourceErrors++
			app.logger.Error("source failed", "source", src.Name, "error", err)
		}
	}

	after := app.checkStats()
	report.Checks = CheckStats{
		Discovered:  after.Discovered - before.Discovered,
		OutOfWindow: after.OutOfWindow - before.OutOfWindow,
		Skipped:     after.Skipped - before.Skipped,
		Failed:      after.Failed - before.Failed,
		Yielded:     after.Yielded - before.Yielded,
	}
	report.LedgerProcessed, report.LedgerFailed = app.ledger.Counts()
	report.Elapsed = time.Since(start)

	app.logger.Info("run finished",
		"sources", report.Sources,
		"source_errors", report.SourceErrors,
		"processed", report.Processed,
		"failed", report.Checks.Failed+report.PersistFailed,
		"skipped", report.Checks.Skipped,
		"out_of_window", report.Checks.OutOfWindow,
		"elapsed", report.Elapsed.Round(time.Second))

	return report, ctx.Err()
}

func (app *App) runSource(ctx context.Context, src Source, filter DateFilter, report *RunReport) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	checker, ok := app.checkers[src.Type]
	if !ok {
		app.logger.Warn("unknown source type, skipping", "source", src.Name, "type", src.Type)
		return nil
	}

	app.logger.Info("checking source", "source", src.Name, "type", src.Type)
	spinner := app.ui.NewSpinner(fmt.Sprintf("Checking %s...", src.Name))
	defer spinner.Finish()

	for item := range checker.Check(ctx, src, filter) {
		spinner.Describe(fmt.Sprintf("Processing %s", item.Title))
		app.processItem(ctx, item, report)
		spinner.Advance()
	}
	return nil
}

// processItem summarizes, broadcasts and persists one item, then records it
func (app *App) processItem(ctx context.Context, item Item, report *RunReport) {
	logger := app.logger.With("source", item.Source, "id", item.ID)
	defer app.pacer.Wait(ctx, ProcessItemDelay)

	summary := app.summarizer.SummarizeTitled(ctx, item.Title, item.Content)
	app.broadcaster.Broadcast(ctx, FormatBroadcast(item.Title, item.URL, summary))

	path, err := app.persister.Persist(item.Title, item.URL, summary, item.Content)
	if err != nil {
		logger.Error("persisting item failed, marking as failed", "error", err)
		report.PersistFailed++
		if markErr := app.ledger.MarkFailed(ctx, item.ID); markErr != nil {
			logger.Error("recording failure", "error", markErr)
		}
		return
	}

	if err := app.ledger.MarkProcessed(ctx, item.ID); err != nil {
		logger.Error("recording success", "error", err)
	}
	report.Processed++
	logger.Info("item processed", "title", item.Title, "file", path)
	app.ui.Printf("✓ %s\n", item.Title)
}

// SourceDiscovery is one source's dry-run result
type SourceDiscovery struct {
	Source     Source           `json:"source"`
	Candidates []CandidateState `json:"candidates"`
	Error      string           `json:"error,omitempty"`
}

// CandidateState is a candidate annotated with its ledger state
type CandidateState struct {
	Candidate
	InWindow  bool `json:"in_window"`
	Processed bool `json:"processed"`
	Failed    bool `json:"failed"`
}

// Discover lists every enabled source's candidates without resolving,
// summarizing or recording anything
func (app *App) Discover(ctx context.Context, filter DateFilter) ([]SourceDiscovery, error) {
	if err := app.ledger.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	var out []SourceDiscovery
	for _, src := range app.config.EnabledSources() {
		result := SourceDiscovery{Source: src, Candidates: []CandidateState{}}
		discoverer, ok := app.checkers[src.Type].(Discoverer)
		if !ok {
			result.Error = fmt.Sprintf("unsupported source type %q", src.Type)
			out = append(out, result)
			continue
		}

		candidates, err := discoverer.Discover(ctx, src, filter)
		if err != nil {
			result.Error = err.Error()
		}
		for _, c := range candidates {
			result.Candidates = append(result.Candidates, CandidateState{
				Candidate: c,
				InWindow:  !filter.Active() || (!c.Published.IsZero() && filter.Contains(c.Published)),
				Processed: app.ledger.IsProcessed(c.ID),
				Failed:    app.ledger.IsFailed(c.ID),
			})
		}
		out = append(out, result)
	}
	return out, nil
}

// Transcript resolves one video's transcript
func (app *App) Transcript(ctx context.Context, videoID string) (string, error) {
	spinner := app.ui.NewSpinner("Resolving transcript...")
	defer spinner.Finish()
	return app.transcripts.Resolve(ctx, videoID)
}

// Article fetches and extracts one article
func (app *App) Article(ctx context.Context, url string) (*Article, error) {
	spinner := app.ui.NewSpinner("Fetching article...")
	defer spinner.Finish()
	return app.articles.Fetch(ctx, url)
}

// Content resolves a parsed target into a title and text
func (app *App) Content(ctx context.Context, target ParsedArg) (title, text string, err error) {
	switch target.Type {
	case ContentTypeVideo:
		title = target.ID
		if md, err := app.metadata.Metadata(ctx, target.ID); err == nil && md.Title != "" {
			title = md.Title
		} else if err != nil {
			app.logger.Debug("video metadata unavailable", "video_id", target.ID, "error", err)
		}
		text, err = app.Transcript(ctx, target.ID)
		return title, text, err
	case ContentTypeArticle:
		article, err := app.Article(ctx, target.URL)
		if err != nil {
			return "", "", err
		}
		return article.Title, article.Text, nil
	default:
		return "", "", errors.New("not a YouTube video or article URL: " + target.Raw)
	}
}

// Summarize summarizes text directly
func (app *App) Summarize(ctx context.Context, title, text string) string {
	spinner := app.ui.NewSpinner("Generating summary...")
	defer spinner.Finish()
	return app.summarizer.SummarizeTitled(ctx, title, text)
}
