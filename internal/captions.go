package internal

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Segment is one timed caption line
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// CaptionTrack is a language-tagged caption stream attached to a video
type CaptionTrack struct {
	VideoID      string
	Language     string
	Name         string
	Generated    bool
	Translations []string // target languages the platform can translate into
}

// Translatable reports whether the track can be translated into lang
func (t CaptionTrack) Translatable(lang string) bool {
	return slices.ContainsFunc(t.Translations, func(tl string) bool {
		return strings.EqualFold(tl, lang)
	})
}

// TrackList is every caption track available for one video
type TrackList struct {
	VideoID string
	Tracks  []CaptionTrack
}

// FindTranscript returns the first track matching languages in order,
// preferring a manually created track over a generated one per language.
func (l TrackList) FindTranscript(languages []string) (CaptionTrack, error) {
	for _, lang := range languages {
		if t, ok := l.find(lang, false); ok {
			return t, nil
		}
		if t, ok := l.find(lang, true); ok {
			return t, nil
		}
	}
	return CaptionTrack{}, l.notFound(languages)
}

// FindManuallyCreated returns the first manual track matching languages
func (l TrackList) FindManuallyCreated(languages []string) (CaptionTrack, error) {
	for _, lang := range languages {
		if t, ok := l.find(lang, false); ok {
			return t, nil
		}
	}
	return CaptionTrack{}, l.notFound(languages)
}

// FindGenerated returns the first generated track matching languages
func (l TrackList) FindGenerated(languages []string) (CaptionTrack, error) {
	for _, lang := range languages {
		if t, ok := l.find(lang, true); ok {
			return t, nil
		}
	}
	return CaptionTrack{}, l.notFound(languages)
}

// FindTranslatable returns a track that can be translated into lang,
// manual tracks first
func (l TrackList) FindTranslatable(lang string) (CaptionTrack, bool) {
	for _, generated := range []bool{false, true} {
		for _, t := range l.Tracks {
			if t.Generated == generated && t.Translatable(lang) {
				return t, true
			}
		}
	}
	return CaptionTrack{}, false
}

// FindTranslation picks the most preferred language some track can be
// translated into, along with that track
func (l TrackList) FindTranslation(langs []string) (CaptionTrack, string, bool) {
	for _, lang := range langs {
		if t, ok := l.FindTranslatable(lang); ok {
			return t, lang, true
		}
	}
	return CaptionTrack{}, "", false
}

func (l TrackList) find(lang string, generated bool) (CaptionTrack, bool) {
	for _, t := range l.Tracks {
		if t.Generated == generated && strings.EqualFold(t.Language, lang) {
			return t, true
		}
	}
	return CaptionTrack{}, false
}

func (l TrackList) notFound(languages []string) error {
	available := make([]string, 0, len(l.Tracks))
	for _, t := range l.Tracks {
		available = append(available, t.Language)
	}
	return fmt.Errorf("no transcript for %s in %v (available: %v): %w", l.VideoID, languages, available, ErrNoTranscript)
}

// CaptionBackend is a caption client. Its capabilities are discovered by
// asserting the optional interfaces below once, when the resolver is built.
type CaptionBackend interface {
	Name() string
}

// DirectFetcher fetches a transcript for the first matching language
type DirectFetcher interface {
	FetchTranscript(ctx context.Context, videoID string, languages []string) ([]Segment, error)
}

// TrackLister enumerates caption tracks and fetches a chosen one
type TrackLister interface {
	ListTracks(ctx context.Context, videoID string) (TrackList, error)
	FetchTrack(ctx context.Context, track CaptionTrack) ([]Segment, error)
}

// BatchFetcher fetches transcripts for several videos in one call
type BatchFetcher interface {
	FetchTranscripts(ctx context.Context, videoIDs []string, languages []string) (map[string][]Segment, error)
}

// Translator fetches a track machine-translated into another language
type Translator interface {
	TranslateTrack(ctx context.Context, track CaptionTrack, language string) ([]Segment, error)
}

// JoinSegments concatenates segment texts in order with single spaces
func JoinSegments(segments []Segment) string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}
