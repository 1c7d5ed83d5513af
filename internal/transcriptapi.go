package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript"
	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript_formatters"
)

// transcriptFetcher is the subset of the transcript API client we call
type transcriptFetcher interface {
	GetFormattedTranscripts(videoID string, languages []string, preserveFormatting bool) (string, error)
}

// TranscriptAPI fetches captions straight from YouTube's timedtext endpoint.
// It can only fetch by language preference; it cannot list or translate.
type TranscriptAPI struct {
	client transcriptFetcher
	logger *slog.Logger
}

var _ DirectFetcher = (*TranscriptAPI)(nil)

func NewTranscriptAPI(logger *slog.Logger) *TranscriptAPI {
	formatter := yt_transcript_formatters.NewTextFormatter(
		yt_transcript_formatters.WithTimestamps(false),
		yt_transcript_formatters.WithLanguageCode(false),
	)
	return &TranscriptAPI{
		client: yt_transcript.NewClient(yt_transcript.WithFormatter(formatter)),
		logger: logger.With("component", "transcriptapi"),
	}
}

func (t *TranscriptAPI) Name() string { return "transcriptapi" }

// FetchTranscript returns the first available language's captions, one
// segment per line of formatted output
func (t *TranscriptAPI) FetchTranscript(ctx context.Context, videoID string, languages []string) ([]Segment, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := t.client.GetFormattedTranscripts(videoID, languages, false)
		done <- result{text, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("fetching transcript for %s: %w", videoID, res.err)
	}

	var segments []Segment
	for line := range strings.Lines(res.text) {
		if line = strings.TrimSpace(line); line != "" {
			segments = append(segments, Segment{Text: line})
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty transcript for %s: %w", videoID, ErrNoTranscript)
	}
	t.logger.Debug("transcript fetched", "video_id", videoID, "segments", len(segments))
	return segments, nil
}
