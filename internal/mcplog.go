package internal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// MCPLogPath is where the MCP server writes its log
func MCPLogPath(config *Config) string {
	return filepath.Join(config.CacheDir, "mcp.log")
}

// NewMCPLogger returns a logger writing to the MCP log file. stdout carries
// the stdio protocol, so nothing may be logged there; when the log is
// disabled or cannot be opened, logs are discarded.
func NewMCPLogger(config *Config) (*slog.Logger, io.Closer) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	if !config.MCPLogEnabled {
		return discard, io.NopCloser(nil)
	}

	if err := EnsureDirs(config.CacheDir); err != nil {
		return discard, io.NopCloser(nil)
	}

	logFile, err := os.OpenFile(MCPLogPath(config), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return discard, io.NopCloser(nil)
	}

	level := slog.LevelInfo
	if config.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}))
	return logger.With("mode", "mcp"), logFile
}
