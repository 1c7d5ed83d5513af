package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// StrategyKind tags one stage of the transcript fallback plan
type StrategyKind int

const (
	DirectFetch StrategyKind = iota
	ListAndMatch
	BatchFetch
	Translate
	AudioSTT
)

func (k StrategyKind) String() string {
	switch k {
	case DirectFetch:
		return "direct_fetch"
	case ListAndMatch:
		return "list_and_match"
	case BatchFetch:
		return "batch_fetch"
	case Translate:
		return "translate"
	case AudioSTT:
		return "audio_stt"
	default:
		return fmt.Sprintf("strategy(%d)", int(k))
	}
}

type strategy struct {
	kind  StrategyKind
	retry bool
	run   func(ctx context.Context, videoID string) (string, error)
}

// ResolverOptions wires the transcript resolver's collaborators
type ResolverOptions struct {
	Captions   CaptionBackend
	Audio      AudioDownloader
	STT        *STTHandle
	Languages  []string
	MaxRetries int
	Translate  bool
	TempDir    string
	Pacer      Pacer
	Logger     *slog.Logger
}

// TranscriptResolver turns a video id into transcript text by walking an
// ordered plan of strategies until one yields text
type TranscriptResolver struct {
	opts   ResolverOptions
	plan   []strategy
	logger *slog.Logger
}

// NewTranscriptResolver checks the caption backend's capabilities once and
// fixes the plan. The caption stage is the first of direct fetch, list and
// match, or batch fetch that the backend supports.
func NewTranscriptResolver(opts ResolverOptions) *TranscriptResolver {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultLanguages
	}
	if opts.Pacer == nil {
		opts.Pacer = NewRandomPacer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	r := &TranscriptResolver{
		opts:   opts,
		logger: opts.Logger.With("component", "transcript"),
	}

	lister, canList := opts.Captions.(TrackLister)
	switch backend := opts.Captions.(type) {
	case DirectFetcher:
		r.plan = append(r.plan, strategy{kind: DirectFetch, retry: true, run: func(ctx context.Context, id string) (string, error) {
			segments, err := backend.FetchTranscript(ctx, id, r.opts.Languages)
			return JoinSegments(segments), err
		}})
	case TrackLister:
		r.plan = append(r.plan, strategy{kind: ListAndMatch, retry: true, run: func(ctx context.Context, id string) (string, error) {
			return r.listAndMatch(ctx, backend, id)
		}})
	case BatchFetcher:
		r.plan = append(r.plan, strategy{kind: BatchFetch, retry: true, run: func(ctx context.Context, id string) (string, error) {
			return r.batchFetch(ctx, backend, id)
		}})
	}

	if translator, ok := opts.Captions.(Translator); ok && opts.Translate && canList {
		r.plan = append(r.plan, strategy{kind: Translate, run: func(ctx context.Context, id string) (string, error) {
			return r.translate(ctx, lister, translator, id)
		}})
	}

	if opts.Audio != nil && opts.STT != nil {
		r.plan = append(r.plan, strategy{kind: AudioSTT, run: r.audioSTT})
	}

	return r
}

// Plan lists the strategies Resolve will try, in order
func (r *TranscriptResolver) Plan() []StrategyKind {
	kinds := make([]StrategyKind, len(r.plan))
	for i, s := range r.plan {
		kinds[i] = s.kind
	}
	return kinds
}

// Resolve returns the transcript of videoID or an error wrapping
// ErrNoTranscript once every strategy has failed
func (r *TranscriptResolver) Resolve(ctx context.Context, videoID string) (transcript string, resolveErr error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("transcript resolution panicked", "video_id", videoID, "panic", p)
			transcript, resolveErr = "", fmt.Errorf("resolving %s: panic: %v: %w", videoID, p, ErrNoTranscript)
		}
	}()

	for _, s := range r.plan {
		text, err := r.attempt(ctx, s, videoID)
		if err == nil {
			r.logger.Info("transcript resolved", "video_id", videoID, "strategy", s.kind, "chars", len(text))
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.logger.Warn("strategy failed", "video_id", videoID, "strategy", s.kind, "permanent", IsPermanent(err), "error", err)
	}

	return "", fmt.Errorf("resolving %s: %w", videoID, ErrNoTranscript)
}

// attempt runs one strategy, retrying transient failures when the strategy
// allows it
func (r *TranscriptResolver) attempt(ctx context.Context, s strategy, videoID string) (string, error) {
	tries := 1
	if s.retry {
		tries = r.opts.MaxRetries
	}

	var err error
	for attempt := 1; attempt <= tries; attempt++ {
		var text string
		text, err = s.run(ctx, videoID)
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("empty transcript from %s: %w", s.kind, ErrNoTranscript)
		}
		if err == nil {
			return text, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
		if attempt < tries {
			r.logger.Debug("retrying", "video_id", videoID, "strategy", s.kind, "attempt", attempt, "error", err)
			r.opts.Pacer.Wait(ctx, RetryBackoff.Widen(attempt))
		}
	}
	return "", err
}

func (r *TranscriptResolver) listAndMatch(ctx context.Context, lister TrackLister, videoID string) (string, error) {
	list, err := lister.ListTracks(ctx, videoID)
	if err != nil {
		return "", err
	}

	track, err := list.FindTranscript(r.opts.Languages)
	if err != nil {
		if track, err = list.FindManuallyCreated(r.opts.Languages); err != nil {
			if track, err = list.FindGenerated(r.opts.Languages); err != nil {
				return "", err
			}
		}
	}

	r.logger.Debug("caption track matched", "video_id", videoID, "language", track.Language, "generated", track.Generated)
	segments, err := lister.FetchTrack(ctx, track)
	if err != nil {
		return "", err
	}
	return JoinSegments(segments), nil
}

func (r *TranscriptResolver) batchFetch(ctx context.Context, batch BatchFetcher, videoID string) (string, error) {
	results, err := batch.FetchTranscripts(ctx, []string{videoID}, r.opts.Languages)
	if err != nil {
		return "", err
	}
	segments, ok := results[videoID]
	if !ok {
		return "", fmt.Errorf("batch result missing %s: %w", videoID, ErrNoTranscript)
	}
	return JoinSegments(segments), nil
}

func (r *TranscriptResolver) translate(ctx context.Context, lister TrackLister, translator Translator, videoID string) (string, error) {
	list, err := lister.ListTracks(ctx, videoID)
	if err != nil {
		return "", err
	}
	track, target, ok := list.FindTranslation(r.opts.Languages)
	if !ok {
		return "", fmt.Errorf("no track translatable to %v: %w", r.opts.Languages, ErrNoTranscript)
	}
	r.logger.Debug("translating captions", "video_id", videoID, "from", track.Language, "to", target)
	segments, err := translator.TranslateTrack(ctx, track, target)
	if err != nil {
		return "", err
	}
	return JoinSegments(segments), nil
}

// audioSTT downloads audio into a private directory that is removed on
// every exit path, then runs speech-to-text on it
func (r *TranscriptResolver) audioSTT(ctx context.Context, videoID string) (string, error) {
	engine, err := r.opts.STT.Get()
	if err != nil {
		return "", err
	}

	if err := EnsureDirs(r.opts.TempDir); err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	dir, err := os.MkdirTemp(r.opts.TempDir, "audio-")
	if err != nil {
		return "", fmt.Errorf("creating audio directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("failed to remove audio directory", "dir", dir, "error", err)
		}
	}()

	var audioFile string
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		audioFile, err = r.opts.Audio.DownloadAudio(ctx, videoID, dir)
		if err == nil {
			break
		}
		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
		if attempt < r.opts.MaxRetries {
			r.logger.Debug("retrying audio download", "video_id", videoID, "attempt", attempt, "error", err)
			r.opts.Pacer.Wait(ctx, AudioRetryBackoff.Widen(attempt))
		}
	}
	if err != nil {
		return "", fmt.Errorf("downloading audio: %w", err)
	}

	text, err := engine.Transcribe(ctx, audioFile)
	if err != nil {
		return "", fmt.Errorf("speech-to-text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// NewCaptionBackend builds the backend named by config.CaptionBackend. The
// yt-dlp instance doubles as the audio downloader.
func NewCaptionBackend(config *Config, ytdlp *YtDlp, logger *slog.Logger) CaptionBackend {
	if config.CaptionBackend == "transcriptapi" {
		return NewTranscriptAPI(logger)
	}
	return ytdlp
}

// NewResolverFromConfig assembles the transcript resolver used by the
// pipeline and the one-off commands
func NewResolverFromConfig(config *Config, pacer Pacer, logger *slog.Logger) *TranscriptResolver {
	runner := &DefaultCommandRunner{}
	ytdlp := NewYtDlp(config.TempDir, config.CookiesFile, logger)

	opts := ResolverOptions{
		Captions:   NewCaptionBackend(config, ytdlp, logger),
		Languages:  config.PreferredLanguages,
		MaxRetries: config.MaxRetries,
		Translate:  config.TranslateCaptions,
		TempDir:    config.TempDir,
		Pacer:      pacer,
		Logger:     logger,
	}
	if factory := NewSTTFactory(config, runner, logger); factory != nil {
		opts.Audio = ytdlp
		opts.STT = NewSTTHandle(factory)
	}
	return NewTranscriptResolver(opts)
}
