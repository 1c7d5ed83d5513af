package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AudioDownloader fetches a video's audio into dir and returns the file path
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, videoID, dir string) (string, error)
}

// SpeechToText converts an audio file into plain text
type SpeechToText interface {
	Transcribe(ctx context.Context, audioFile string) (string, error)
}

// STTFactory builds a speech-to-text engine on first use
type STTFactory func() (SpeechToText, error)

// STTHandle initializes its engine at most once. An initialization failure is
// remembered and returned on every later call.
type STTHandle struct {
	factory STTFactory

	once   sync.Once
	engine SpeechToText
	err    error
}

func NewSTTHandle(factory STTFactory) *STTHandle {
	return &STTHandle{factory: factory}
}

// Get returns the engine, building it on the first call
func (h *STTHandle) Get() (SpeechToText, error) {
	h.once.Do(func() {
		if h.factory == nil {
			h.err = ErrSTTUnavailable
			return
		}
		engine, err := h.factory()
		if err != nil {
			h.err = fmt.Errorf("%w: %w", ErrSTTUnavailable, err)
			return
		}
		h.engine = engine
	})
	return h.engine, h.err
}

// LocalWhisper runs the openai-whisper command line tool
type LocalWhisper struct {
	runner  CommandRunner
	binary  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewLocalWhisper checks that the whisper binary is on PATH
func NewLocalWhisper(runner CommandRunner, binary, model string, timeout time.Duration, logger *slog.Logger) (*LocalWhisper, error) {
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", binary, err)
	}
	return &LocalWhisper{
		runner:  runner,
		binary:  binary,
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "whisper", "model", model),
	}, nil
}

// Transcribe writes <name>.txt next to the audio file and returns its text
func (w *LocalWhisper) Transcribe(ctx context.Context, audioFile string) (string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	outDir := filepath.Dir(audioFile)
	start := time.Now()
	output, err := w.runner.Run(ctx, w.binary, audioFile,
		"--model", w.model,
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False")
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("whisper timed out after %s: %w", w.timeout, err)
		}
		return "", fmt.Errorf("whisper failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}

	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	text, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("reading whisper output: %w", err)
	}
	w.logger.Debug("audio transcribed", "file", audioFile, "elapsed", time.Since(start).Round(time.Second))
	return strings.TrimSpace(string(text)), nil
}

// NewSTTFactory picks the engine named by config.STTBackend
func NewSTTFactory(config *Config, runner CommandRunner, logger *slog.Logger) STTFactory {
	switch config.STTBackend {
	case "whisper":
		return func() (SpeechToText, error) {
			return NewLocalWhisper(runner, config.WhisperBinary, config.WhisperModel, config.WhisperTimeout, logger)
		}
	case "openai":
		return func() (SpeechToText, error) {
			if IsPlaceholder(config.LLMAPIKey) {
				return nil, errors.New("openai speech-to-text needs an API key")
			}
			return NewAIWithKey(config.LLMAPIKey, NewAudio(runner, logger), config.LLMModel, WhisperLimit, config.WhisperTimeout, logger), nil
		}
	default:
		return nil
	}
}
