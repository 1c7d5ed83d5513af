package internal

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewLogger returns a text logger, at debug level when verbose
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// VideoIDExtractor extracts video IDs from YouTube URLs
type VideoIDExtractor func(string) (string, error)

// Default implementation of video ID extraction
var getVideoID VideoIDExtractor = func(youtubeURL string) (string, error) {
	youtubeURL = strings.TrimSpace(youtubeURL)
	u, err := url.Parse(youtubeURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	if !isYouTubeHost(u.Host) {
		return "", fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}

	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}

	if strings.Contains(u.Path, "/playlist") || strings.Contains(u.Path, "/channel") || strings.HasPrefix(u.Path, "/@") {
		return "", fmt.Errorf("not a video URL: %s", youtubeURL)
	}

	parts := strings.Split(u.Path, "/")
	if last := parts[len(parts)-1]; IsValidYouTubeID(last) {
		return last, nil
	}

	return "", fmt.Errorf("could not extract video ID from URL: %s", youtubeURL)
}

func isYouTubeHost(host string) bool {
	switch strings.ToLower(host) {
	case "www.youtube.com", "youtube.com", "m.youtube.com", "youtu.be":
		return true
	}
	return false
}

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return youtubeIDPattern.MatchString(id)
}

// CleanupTempDir removes leftover audio directories from interrupted runs
func CleanupTempDir(tempDir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(tempDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading temp directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(tempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove temporary file", "path", path, "error", err)
		}
	}

	if err := os.Remove(tempDir); err != nil {
		logger.Debug("could not remove temp directory", "dir", tempDir, "error", err)
	}

	return nil
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour
func RenderMarkdown(content string) (string, error) {
	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || FileExists(dir) {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// cleanupFiles removes temporary files
func cleanupFiles(logger *slog.Logger, files ...string) {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove file", "path", file, "error", err)
		}
	}
}
