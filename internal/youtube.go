package internal

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	ytoption "google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Candidate is a discovered item before any resolution
type Candidate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Published time.Time `json:"published,omitzero"`
}

// VideoSearcher lists a channel's recent videos, newest first
type VideoSearcher interface {
	Search(ctx context.Context, channelID, keyword string, filter DateFilter) ([]Candidate, error)
}

// VideoURL is the watch page of a video id
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

const searchMaxResults = 50

// DataAPISearcher searches through the YouTube Data API v3
type DataAPISearcher struct {
	apiKey   string
	endpoint string
	logger   *slog.Logger

	once    sync.Once
	service *youtube.Service
	initErr error
}

func NewDataAPISearcher(apiKey string, logger *slog.Logger) *DataAPISearcher {
	return &DataAPISearcher{apiKey: apiKey, logger: logger.With("component", "youtube_api")}
}

// WithEndpoint overrides the API base URL
func (s *DataAPISearcher) WithEndpoint(endpoint string) *DataAPISearcher {
	s.endpoint = endpoint
	return s
}

func (s *DataAPISearcher) ensureService(ctx context.Context) error {
	s.once.Do(func() {
		opts := []ytoption.ClientOption{ytoption.WithAPIKey(s.apiKey)}
		if s.endpoint != "" {
			opts = append(opts, ytoption.WithEndpoint(s.endpoint))
		}
		s.service, s.initErr = youtube.NewService(ctx, opts...)
	})
	return s.initErr
}

// Search runs search.list ordered by date. An active filter becomes the
// publishedAfter/publishedBefore window.
func (s *DataAPISearcher) Search(ctx context.Context, channelID, keyword string, filter DateFilter) ([]Candidate, error) {
	if err := s.ensureService(ctx); err != nil {
		return nil, fmt.Errorf("creating YouTube service: %w", err)
	}

	call := s.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		MaxResults(searchMaxResults)
	if keyword != "" {
		call = call.Q(keyword)
	}
	if start, end, ok := filter.Window(); ok {
		call = call.PublishedAfter(start.Format(time.RFC3339)).PublishedBefore(end.Format(time.RFC3339))
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("searching channel %s: %w", channelID, err)
	}

	candidates := make([]Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		published, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		candidates = append(candidates, Candidate{
			ID:        item.Id.VideoId,
			Title:     html.UnescapeString(item.Snippet.Title),
			URL:       VideoURL(item.Id.VideoId),
			Published: published,
		})
	}
	s.logger.Debug("channel searched", "channel_id", channelID, "results", len(candidates))
	return candidates, nil
}

// ChannelFeedBase is the public per-channel Atom feed
const ChannelFeedBase = "https://www.youtube.com/feeds/videos.xml"

// ChannelFeedSearcher reads the public channel feed; it needs no API key
// but only carries the latest videos and filters keywords locally
type ChannelFeedSearcher struct {
	base   string
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewChannelFeedSearcher(client *http.Client, logger *slog.Logger) *ChannelFeedSearcher {
	parser := gofeed.NewParser()
	parser.Client = client
	return &ChannelFeedSearcher{
		base:   ChannelFeedBase,
		parser: parser,
		logger: logger.With("component", "youtube_feed"),
	}
}

// WithBase overrides the feed URL base
func (s *ChannelFeedSearcher) WithBase(base string) *ChannelFeedSearcher {
	s.base = base
	return s
}

func (s *ChannelFeedSearcher) Search(ctx context.Context, channelID, keyword string, _ DateFilter) ([]Candidate, error) {
	feedURL := s.base + "?channel_id=" + url.QueryEscape(channelID)
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("reading channel feed %s: %w", channelID, err)
	}

	needle := strings.ToLower(keyword)
	candidates := make([]Candidate, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if needle != "" && !strings.Contains(strings.ToLower(entry.Title), needle) {
			continue
		}
		videoID := feedVideoID(entry)
		if videoID == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:        videoID,
			Title:     entry.Title,
			URL:       VideoURL(videoID),
			Published: entryTime(entry),
		})
		if len(candidates) == searchMaxResults {
			break
		}
	}
	s.logger.Debug("channel feed read", "channel_id", channelID, "results", len(candidates))
	return candidates, nil
}

// feedVideoID reads yt:videoId, falling back to the entry link
func feedVideoID(entry *gofeed.Item) string {
	if ext, ok := entry.Extensions["yt"]["videoId"]; ok && len(ext) > 0 && ext[0].Value != "" {
		return ext[0].Value
	}
	if id, err := getVideoID(entry.Link); err == nil {
		return id
	}
	return ""
}

// entryTime is the published time, else the updated time, else zero
func entryTime(entry *gofeed.Item) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		return *entry.UpdatedParsed
	default:
		return time.Time{}
	}
}

// NewVideoSearcher uses the Data API when a key is configured and the public
// channel feed otherwise
func NewVideoSearcher(config *Config, client *http.Client, logger *slog.Logger) VideoSearcher {
	if IsPlaceholder(config.YouTubeAPIKey) {
		logger.Info("YOUTUBE_API_KEY not configured, using public channel feeds")
		return NewChannelFeedSearcher(client, logger)
	}
	return NewDataAPISearcher(config.YouTubeAPIKey, logger)
}
