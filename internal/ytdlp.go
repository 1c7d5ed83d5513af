package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// VideoMetadata contains YouTube video information
type VideoMetadata struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Channel     string  `json:"channel"`
	Duration    float64 `json:"duration"`
	HasCaptions bool    `json:"has_captions"`
}

type ytSubFormat struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type ytInfo struct {
	VideoMetadata
	Subtitles         map[string][]ytSubFormat `json:"subtitles"`
	AutomaticCaptions map[string][]ytSubFormat `json:"automatic_captions"`
}

// YtDlp is the yt-dlp caption backend and audio downloader. It lists caption
// tracks, fetches single tracks or batches, and translates auto captions.
type YtDlp struct {
	workDir     string
	cookiesFile string
	logger      *slog.Logger

	installOnce sync.Once
	installErr  error
}

var (
	_ TrackLister     = (*YtDlp)(nil)
	_ BatchFetcher    = (*YtDlp)(nil)
	_ Translator      = (*YtDlp)(nil)
	_ AudioDownloader = (*YtDlp)(nil)
)

// NewYtDlp creates a yt-dlp backend working under workDir
func NewYtDlp(workDir, cookiesFile string, logger *slog.Logger) *YtDlp {
	return &YtDlp{
		workDir:     workDir,
		cookiesFile: cookiesFile,
		logger:      logger.With("component", "ytdlp"),
	}
}

func (yt *YtDlp) Name() string { return "ytdlp" }

// ensureInstalled resolves or downloads the yt-dlp binary once
func (yt *YtDlp) ensureInstalled(ctx context.Context) error {
	yt.installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			yt.installErr = fmt.Errorf("installing yt-dlp: %w", err)
		}
	})
	return yt.installErr
}

func (yt *YtDlp) command() *ytdlp.Command {
	dl := ytdlp.New().NoPlaylist()
	if yt.cookiesFile != "" && FileExists(yt.cookiesFile) {
		dl = dl.Cookies(yt.cookiesFile)
	}
	return dl
}

func (yt *YtDlp) run(ctx context.Context, dl *ytdlp.Command, urls ...string) (*ytdlp.Result, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, err
	}
	result, err := dl.Run(ctx, urls...)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = strings.TrimSpace(result.Stderr)
		}
		yt.logger.Debug("yt-dlp failed", "error", err, "stderr", stderr)
		if stderr != "" {
			return result, fmt.Errorf("yt-dlp failed: %w: %s", err, stderr)
		}
		return result, fmt.Errorf("yt-dlp failed: %w", err)
	}
	return result, nil
}

func (yt *YtDlp) probe(ctx context.Context, videoID string) (*ytInfo, error) {
	dl := yt.command().
		DumpSingleJSON().
		SkipDownload()

	result, err := yt.run(ctx, dl, VideoURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("extracting video metadata: %w", err)
	}

	var info ytInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}
	info.HasCaptions = len(info.Subtitles) > 0 || len(info.AutomaticCaptions) > 0
	return &info, nil
}

// Metadata fetches video details using go-ytdlp
func (yt *YtDlp) Metadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	info, err := yt.probe(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return &info.VideoMetadata, nil
}

// ListTracks enumerates manual and generated caption tracks
func (yt *YtDlp) ListTracks(ctx context.Context, videoID string) (TrackList, error) {
	info, err := yt.probe(ctx, videoID)
	if err != nil {
		return TrackList{}, err
	}
	list := tracksFromInfo(videoID, info)
	if len(list.Tracks) == 0 {
		return list, fmt.Errorf("transcripts are disabled for %s: %w", videoID, ErrNoTranscript)
	}
	return list, nil
}

// FetchTrack downloads one caption track
func (yt *YtDlp) FetchTrack(ctx context.Context, track CaptionTrack) ([]Segment, error) {
	subs, err := yt.downloadSubtitles(ctx, []string{track.VideoID}, []string{track.Language}, !track.Generated, track.Generated)
	if err != nil {
		return nil, err
	}
	segments, ok := subs[track.VideoID][track.Language]
	if !ok || len(segments) == 0 {
		return nil, fmt.Errorf("caption track %s not found for %s: %w", track.Language, track.VideoID, ErrNoTranscript)
	}
	return segments, nil
}

// FetchTranscripts downloads captions for several videos in one yt-dlp run
// and keeps the most preferred language per video
func (yt *YtDlp) FetchTranscripts(ctx context.Context, videoIDs []string, languages []string) (map[string][]Segment, error) {
	subs, err := yt.downloadSubtitles(ctx, videoIDs, languages, true, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Segment, len(videoIDs))
	for _, id := range videoIDs {
		for _, lang := range languages {
			if segments := subs[id][lang]; len(segments) > 0 {
				out[id] = segments
				break
			}
		}
	}
	return out, nil
}

// TranslateTrack requests the platform's machine translation of the track
func (yt *YtDlp) TranslateTrack(ctx context.Context, track CaptionTrack, language string) ([]Segment, error) {
	if !track.Translatable(language) {
		return nil, fmt.Errorf("track %s of %s cannot be translated to %s: %w", track.Language, track.VideoID, language, ErrNoTranscript)
	}
	subs, err := yt.downloadSubtitles(ctx, []string{track.VideoID}, []string{language}, false, true)
	if err != nil {
		return nil, err
	}
	segments := subs[track.VideoID][language]
	if len(segments) == 0 {
		return nil, fmt.Errorf("translated captions not found for %s: %w", track.VideoID, ErrNoTranscript)
	}
	return segments, nil
}

// downloadSubtitles writes SRT files into a private directory and parses
// them into id -> language -> segments
func (yt *YtDlp) downloadSubtitles(ctx context.Context, videoIDs, languages []string, manual, auto bool) (map[string]map[string][]Segment, error) {
	if err := EnsureDirs(yt.workDir); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	dir, err := os.MkdirTemp(yt.workDir, "subs-")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle directory: %w", err)
	}
	defer os.RemoveAll(dir)

	dl := yt.command().
		SubLangs(strings.Join(languages, ",")).
		ConvertSubs("srt").
		SkipDownload().
		Output(filepath.Join(dir, "%(id)s"))
	if manual {
		dl = dl.WriteSubs()
	}
	if auto {
		dl = dl.WriteAutoSubs()
	}

	urls := make([]string, len(videoIDs))
	for i, id := range videoIDs {
		urls[i] = VideoURL(id)
	}
	if _, err := yt.run(ctx, dl, urls...); err != nil {
		return nil, fmt.Errorf("downloading subtitles: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.srt"))
	if err != nil {
		return nil, fmt.Errorf("listing subtitle files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no subtitle files found after download: %w", ErrNoTranscript)
	}

	out := make(map[string]map[string][]Segment)
	for _, file := range files {
		id, lang, ok := splitSubtitleName(filepath.Base(file))
		if !ok {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading SRT file: %w", err)
		}
		segments := parseSRT(string(content))
		if auto && !manual {
			segments = removeDuplicates(segments)
		}
		if out[id] == nil {
			out[id] = make(map[string][]Segment)
		}
		out[id][lang] = segments
	}

	yt.logger.Debug("subtitles downloaded", "videos", len(videoIDs), "files", len(files))
	return out, nil
}

// DownloadAudio gets mp3 audio for a video into dir and returns its path
func (yt *YtDlp) DownloadAudio(ctx context.Context, videoID, dir string) (string, error) {
	dl := yt.command().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("10").
		Output(filepath.Join(dir, "%(id)s.%(ext)s"))

	if _, err := yt.run(ctx, dl, VideoURL(videoID)); err != nil {
		return "", fmt.Errorf("downloading audio: %w", err)
	}

	expected := filepath.Join(dir, videoID+".mp3")
	if FileExists(expected) {
		return expected, nil
	}
	matches, _ := filepath.Glob(filepath.Join(dir, videoID+".*"))
	if len(matches) == 0 {
		return "", fmt.Errorf("yt-dlp finished but no audio file for %s", videoID)
	}
	return matches[0], nil
}

// tracksFromInfo turns yt-dlp caption maps into tracks. Automatic caption
// entries whose URL carries a tlang parameter are translation targets, not
// tracks of their own.
func tracksFromInfo(videoID string, info *ytInfo) TrackList {
	list := TrackList{VideoID: videoID}

	var translations []string
	for lang, formats := range info.AutomaticCaptions {
		if isTranslationTarget(formats) {
			translations = append(translations, lang)
		}
	}
	slices.Sort(translations)

	for lang, formats := range info.Subtitles {
		if lang == "live_chat" {
			continue
		}
		list.Tracks = append(list.Tracks, CaptionTrack{
			VideoID:      videoID,
			Language:     lang,
			Name:         formatName(formats),
			Translations: translations,
		})
	}
	for lang, formats := range info.AutomaticCaptions {
		if isTranslationTarget(formats) {
			continue
		}
		list.Tracks = append(list.Tracks, CaptionTrack{
			VideoID:      videoID,
			Language:     lang,
			Name:         formatName(formats),
			Generated:    true,
			Translations: translations,
		})
	}

	slices.SortFunc(list.Tracks, func(a, b CaptionTrack) int {
		if a.Generated != b.Generated {
			if a.Generated {
				return 1
			}
			return -1
		}
		return strings.Compare(a.Language, b.Language)
	})
	return list
}

func isTranslationTarget(formats []ytSubFormat) bool {
	for _, f := range formats {
		if strings.Contains(f.URL, "tlang=") {
			return true
		}
	}
	return false
}

func formatName(formats []ytSubFormat) string {
	if len(formats) == 0 {
		return ""
	}
	return formats[0].Name
}

// splitSubtitleName splits "<id>.<lang>.srt"
func splitSubtitleName(name string) (id, lang string, ok bool) {
	base := strings.TrimSuffix(name, ".srt")
	id, lang, ok = strings.Cut(base, ".")
	if !ok || id == "" || lang == "" {
		return "", "", false
	}
	return id, lang, true
}

// parseSRT extracts timed text blocks from SRT content
func parseSRT(content string) []Segment {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var segments []Segment

	for block := range strings.SplitSeq(strings.TrimSpace(content), "\n\n") {
		blockLines := strings.Split(strings.TrimSpace(block), "\n")
		if len(blockLines) < 3 {
			continue
		}
		start, end := parseSRTTiming(blockLines[1])

		// Skip sequence number and timestamp, get text lines
		var texts []string
		for _, line := range blockLines[2:] {
			if line = strings.TrimSpace(line); line != "" {
				texts = append(texts, line)
			}
		}
		if len(texts) == 0 {
			continue
		}
		segments = append(segments, Segment{
			Text:     strings.Join(texts, " "),
			Start:    start,
			Duration: end - start,
		})
	}

	return segments
}

func parseSRTTiming(line string) (float64, float64) {
	from, to, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0
	}
	return parseSRTTimestamp(from), parseSRTTimestamp(to)
}

// parseSRTTimestamp parses "HH:MM:SS,mmm" into seconds
func parseSRTTimestamp(ts string) float64 {
	ts = strings.ReplaceAll(strings.TrimSpace(ts), ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}
	h, _ := strconv.ParseFloat(parts[0], 64)
	m, _ := strconv.ParseFloat(parts[1], 64)
	s, _ := strconv.ParseFloat(parts[2], 64)
	return h*3600 + m*60 + s
}

// removeDuplicates drops rolling auto-caption lines that repeat the previous one
func removeDuplicates(segments []Segment) []Segment {
	result := make([]Segment, 0, len(segments))
	prev := ""

	for _, seg := range segments {
		isDuplicate := prev != "" && (strings.Contains(seg.Text, prev) || strings.Contains(prev, seg.Text))
		if !isDuplicate {
			result = append(result, seg)
		}
		prev = seg.Text
	}

	return result
}
