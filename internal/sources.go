package internal

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"
)

// Item is a resolved piece of content ready to summarize
type Item struct {
	ID      string
	Title   string
	URL     string
	Content string
	Source  string
	Kind    SourceType
}

// Checker discovers a source's candidates and lazily yields the ones that
// are new and resolvable. Resolution failures are recorded in the ledger.
type Checker interface {
	Check(ctx context.Context, src Source, filter DateFilter) iter.Seq[Item]
}

// ContentResolver turns a candidate key (video id or article url) into text
type ContentResolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// CheckStats counts what the checkers did with their candidates
type CheckStats struct {
	Discovered  int `json:"discovered"`
	OutOfWindow int `json:"out_of_window"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Yielded     int `json:"yielded"`
}

// Add accumulates other into s
func (s *CheckStats) Add(other CheckStats) {
	s.Discovered += other.Discovered
	s.OutOfWindow += other.OutOfWindow
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Yielded += other.Yielded
}

// Discoverer lists a source's candidates without resolving them
type Discoverer interface {
	Discover(ctx context.Context, src Source, filter DateFilter) ([]Candidate, error)
}

// walker runs the shared per-candidate state machine:
// filter, skip processed, resolve, then yield or mark failed
type walker struct {
	ledger Ledger
	pacer  Pacer
	delay  Delay
	prune  bool
	logger *slog.Logger
}

func (w *walker) walk(ctx context.Context, src Source, filter DateFilter, candidates []Candidate, key func(Candidate) string, resolver ContentResolver, stats *CheckStats, yield func(Item) bool) {
	stats.Discovered += len(candidates)
	for _, c := range candidates {
		if ctx.Err() != nil {
			return
		}

		if filter.Active() && (c.Published.IsZero() || !filter.Contains(c.Published)) {
			w.logger.Debug("outside date window", "id", c.ID, "published", c.Published)
			stats.OutOfWindow++
			if w.prune && w.ledger.IsFailed(c.ID) {
				if err := w.ledger.ForgetFailure(ctx, c.ID); err != nil {
					w.logger.Error("pruning failed id", "id", c.ID, "error", err)
				}
			}
			continue
		}

		if w.ledger.IsProcessed(c.ID) {
			stats.Skipped++
			continue
		}

		if w.ledger.IsFailed(c.ID) {
			w.logger.Info("retrying previously failed item", "id", c.ID, "title", c.Title)
		} else {
			w.logger.Info("new item found", "id", c.ID, "title", c.Title)
		}

		content, err := resolver.Resolve(ctx, key(c))
		w.pacer.Wait(ctx, w.delay)
		if err != nil {
			w.logger.Warn("resolution failed, marking as failed", "id", c.ID, "error", err)
			stats.Failed++
			if markErr := w.ledger.MarkFailed(ctx, c.ID); markErr != nil {
				w.logger.Error("recording failure", "id", c.ID, "error", markErr)
			}
			continue
		}

		stats.Yielded++
		if !yield(Item{
			ID:      c.ID,
			Title:   c.Title,
			URL:     c.URL,
			Content: content,
			Source:  src.Name,
			Kind:    src.Type,
		}) {
			return
		}
	}
}

// YouTubeChecker discovers channel videos and resolves their transcripts
type YouTubeChecker struct {
	searcher VideoSearcher
	resolver ContentResolver
	walker   walker
	stats    CheckStats
}

func NewYouTubeChecker(searcher VideoSearcher, resolver ContentResolver, ledger Ledger, pacer Pacer, prune bool, logger *slog.Logger) *YouTubeChecker {
	return &YouTubeChecker{
		searcher: searcher,
		resolver: resolver,
		walker: walker{
			ledger: ledger,
			pacer:  pacer,
			delay:  VideoItemDelay,
			prune:  prune,
			logger: logger.With("component", "youtube_checker"),
		},
	}
}

// Discover lists candidates without resolving anything
func (c *YouTubeChecker) Discover(ctx context.Context, src Source, filter DateFilter) ([]Candidate, error) {
	if src.ChannelID == "" {
		return nil, fmt.Errorf("source %q has no channel_id", src.Name)
	}
	return c.searcher.Search(ctx, src.ChannelID, src.Keyword, filter)
}

// Stats returns the counts accumulated over every Check so far
func (c *YouTubeChecker) Stats() CheckStats { return c.stats }

func (c *YouTubeChecker) Check(ctx context.Context, src Source, filter DateFilter) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		logger := c.walker.logger.With("source", src.Name)
		candidates, err := c.Discover(ctx, src, filter)
		if err != nil {
			logger.Error("discovery failed", "error", err)
			return
		}
		logger.Info("videos discovered", "count", len(candidates), "window", filter)
		w := c.walker
		w.logger = logger
		w.walk(ctx, src, filter, candidates, func(cand Candidate) string { return cand.ID }, c.resolver, &c.stats, yield)
	}
}

// RSSChecker discovers feed entries and resolves their article text
type RSSChecker struct {
	parser   *gofeed.Parser
	resolver ContentResolver
	walker   walker
	stats    CheckStats
}

func NewRSSChecker(client *http.Client, resolver ContentResolver, ledger Ledger, pacer Pacer, prune bool, logger *slog.Logger) *RSSChecker {
	parser := gofeed.NewParser()
	parser.Client = client
	return &RSSChecker{
		parser:   parser,
		resolver: resolver,
		walker: walker{
			ledger: ledger,
			pacer:  pacer,
			delay:  FeedItemDelay,
			prune:  prune,
			logger: logger.With("component", "rss_checker"),
		},
	}
}

// Discover parses the feed. Entry id is the GUID, else the link.
func (c *RSSChecker) Discover(ctx context.Context, src Source, _ DateFilter) ([]Candidate, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("source %q has no url", src.Name)
	}
	feed, err := c.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", src.URL, err)
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, entry := range feed.Items {
		id := entry.GUID
		if id == "" {
			id = entry.Link
		}
		if id == "" || entry.Link == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:        id,
			Title:     entry.Title,
			URL:       entry.Link,
			Published: entryTime(entry),
		})
	}
	return candidates, nil
}

// Stats returns the counts accumulated over every Check so far
func (c *RSSChecker) Stats() CheckStats { return c.stats }

func (c *RSSChecker) Check(ctx context.Context, src Source, filter DateFilter) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		logger := c.walker.logger.With("source", src.Name)
		candidates, err := c.Discover(ctx, src, filter)
		if err != nil {
			logger.Error("discovery failed", "error", err)
			return
		}
		logger.Info("feed entries discovered", "count", len(candidates), "window", filter)
		w := c.walker
		w.logger = logger
		w.walk(ctx, src, filter, candidates, func(cand Candidate) string { return cand.URL }, c.resolver, &c.stats, yield)
	}
}
