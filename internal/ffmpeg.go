package internal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Audio splits downloaded audio with ffprobe and ffmpeg so every piece stays
// under an upload size limit
type Audio struct {
	cmdRunner CommandRunner
	logger    *slog.Logger
}

func NewAudio(cmdRunner CommandRunner, logger *slog.Logger) *Audio {
	return &Audio{
		cmdRunner: cmdRunner,
		logger:    logger.With("component", "ffmpeg"),
	}
}

// Duration returns the audio length in seconds
func (a *Audio) Duration(ctx context.Context, audioFile string) (float64, error) {
	output, err := a.cmdRunner.Run(ctx, "ffprobe",
		"-i", audioFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}

// ChunkCount is how many equal pieces keep size under limit
func ChunkCount(size, limit int64) int {
	if limit <= 0 || size <= limit {
		return 1
	}
	return int(math.Ceil(float64(size) / float64(limit)))
}

// Split cuts audioFile into equal-length segments with ffmpeg's segment
// muxer, written next to the input, and returns them in playback order.
// A file already under limit is returned as is.
func (a *Audio) Split(ctx context.Context, audioFile string, limit int64) ([]string, error) {
	info, err := os.Stat(audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio file info: %w", err)
	}
	pieces := ChunkCount(info.Size(), limit)
	if pieces == 1 {
		return []string{audioFile}, nil
	}

	duration, err := a.Duration(ctx, audioFile)
	if err != nil {
		return nil, err
	}
	segmentSeconds := int(math.Ceil(duration / float64(pieces)))

	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	pattern := filepath.Join(filepath.Dir(audioFile), base+"_part%03d.mp3")
	a.logger.Debug("splitting audio", "file", audioFile, "pieces", pieces, "segment_seconds", segmentSeconds)

	output, err := a.cmdRunner.Run(ctx, "ffmpeg",
		"-v", "quiet",
		"-i", audioFile,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-c:a", "copy",
		"-y", pattern)

	parts, globErr := filepath.Glob(filepath.Join(filepath.Dir(audioFile), base+"_part*.mp3"))
	if err != nil {
		cleanupFiles(a.logger, parts...)
		return nil, fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}
	if globErr != nil || len(parts) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no segments for %s", audioFile)
	}
	slices.Sort(parts)
	return parts, nil
}
