package internal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// SourceType names the kind of upstream a Source points at
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceRSS     SourceType = "rss"
)

// Source is one configured upstream to poll
type Source struct {
	Name      string     `mapstructure:"name" json:"name"`
	Type      SourceType `mapstructure:"type" json:"type"`
	Enabled   bool       `mapstructure:"enabled" json:"enabled"`
	ChannelID string     `mapstructure:"channel_id" json:"channel_id,omitempty"`
	URL       string     `mapstructure:"url" json:"url,omitempty"`
	Keyword   string     `mapstructure:"keyword" json:"keyword,omitempty"`
}

// Config holds application settings
type Config struct {
	Sources       []Source
	YouTubeAPIKey string
	LLMAPIKey     string
	LineToken     string
	CookiesFile   string

	OutputDir        string
	LedgerBackend    string
	ProcessedIDsFile string
	FailedIDsFile    string
	LedgerDB         string

	PreferredLanguages []string
	MaxRetries         int
	CaptionBackend     string
	TranslateCaptions  bool
	STTBackend         string
	WhisperBinary      string
	WhisperModel       string

	LLMProvider    string
	LLMModel       string
	Prompt         string
	SummaryTimeout time.Duration
	WhisperTimeout time.Duration
	HTTPTimeout    time.Duration

	PruneOutOfWindowFailures bool
	Verbose                  bool
	Quiet                    bool
	MCPLogEnabled            bool

	// Resolved at load time
	ConfigFile string
	ConfigDir  string
	CacheDir   string
	TempDir    string
}

// ErrConfigNotFound is returned when no config.json could be located
var ErrConfigNotFound = errors.New("config file not found")

// Placeholder marks values copied verbatim from the sample config
const Placeholder = "請在這裡"

// IsPlaceholder reports whether a secret is unset or still the sample value
func IsPlaceholder(value string) bool {
	return strings.TrimSpace(value) == "" || strings.Contains(value, Placeholder)
}

//go:embed config.json prompt.txt
var defaultFS embed.FS

// WhisperLimit is the maximum file size accepted by OpenAI's Whisper API (25 MiB)
const WhisperLimit int64 = 25 << 20

// DefaultLanguages is the caption preference order, most preferred first
var DefaultLanguages = []string{"zh-TW", "zh-Hant", "zh-CN", "zh", "en"}

// AppConfigDir is the XDG config directory for digestbot
func AppConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "digestbot")
}

// AppCacheDir is the XDG cache directory for digestbot
func AppCacheDir() string {
	return filepath.Join(xdg.CacheHome, "digestbot")
}

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(dir, embedFilename, description string) (string, error) {
	filePath := filepath.Join(dir, embedFilename)

	if FileExists(filePath) {
		return filePath, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return "", fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return "", fmt.Errorf("writing default %s: %w", description, err)
	}

	return filePath, nil
}

// EnsureDefaultConfig writes the sample config.json into dir unless one exists
func EnsureDefaultConfig(dir string) (string, error) {
	return ensureDefaultFile(dir, "config.json", "configuration")
}

// EnsureDefaultPrompt writes the default prompt.txt into dir unless one exists
func EnsureDefaultPrompt(dir string) (string, error) {
	return ensureDefaultFile(dir, "prompt.txt", "prompt template")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "output")
	v.SetDefault("ledger_backend", "file")
	v.SetDefault("processed_ids_file", "processed_ids.txt")
	v.SetDefault("failed_ids_file", "failed_ids.txt")
	v.SetDefault("ledger_db", "ledger.db")
	v.SetDefault("preferred_languages", DefaultLanguages)
	v.SetDefault("max_retries", 3)
	v.SetDefault("caption_backend", "ytdlp")
	v.SetDefault("translate_captions", true)
	v.SetDefault("stt_backend", "whisper")
	v.SetDefault("whisper_binary", "whisper")
	v.SetDefault("whisper_model", "base")
	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_model", "")
	v.SetDefault("prompt", "")
	v.SetDefault("summary_timeout", 2*time.Minute)
	v.SetDefault("whisper_timeout", 20*time.Minute)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("prune_out_of_window_failures", false)
	v.SetDefault("verbose", false)
	v.SetDefault("mcp_log", true)
}

// LoadConfig reads config.json. An explicit path wins; otherwise the working
// directory and then the XDG config directory are searched.
func LoadConfig(configFile string) (*Config, error) {
	configDir := AppConfigDir()
	cacheDir := AppCacheDir()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir)
	}
	v.SetConfigType("json")

	v.AutomaticEnv()
	_ = v.BindEnv("llm_api_key", "LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("verbose", "DIGESTBOT_VERBOSE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
		}
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	var sources []Source
	if err := v.UnmarshalKey("sources", &sources); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}

	languages := v.GetStringSlice("preferred_languages")
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	config := &Config{
		Sources:       sources,
		YouTubeAPIKey: v.GetString("youtube_api_key"),
		LLMAPIKey:     v.GetString("llm_api_key"),
		LineToken:     v.GetString("line_channel_access_token"),
		CookiesFile:   v.GetString("cookies_file"),

		OutputDir:        v.GetString("output_dir"),
		LedgerBackend:    v.GetString("ledger_backend"),
		ProcessedIDsFile: v.GetString("processed_ids_file"),
		FailedIDsFile:    v.GetString("failed_ids_file"),
		LedgerDB:         v.GetString("ledger_db"),

		PreferredLanguages: languages,
		MaxRetries:         v.GetInt("max_retries"),
		CaptionBackend:     v.GetString("caption_backend"),
		TranslateCaptions:  v.GetBool("translate_captions"),
		STTBackend:         v.GetString("stt_backend"),
		WhisperBinary:      v.GetString("whisper_binary"),
		WhisperModel:       v.GetString("whisper_model"),

		LLMProvider:    v.GetString("llm_provider"),
		LLMModel:       v.GetString("llm_model"),
		Prompt:         v.GetString("prompt"),
		SummaryTimeout: v.GetDuration("summary_timeout"),
		WhisperTimeout: v.GetDuration("whisper_timeout"),
		HTTPTimeout:    v.GetDuration("http_timeout"),

		PruneOutOfWindowFailures: v.GetBool("prune_out_of_window_failures"),
		Verbose:                  v.GetBool("verbose"),
		MCPLogEnabled:            v.GetBool("mcp_log"),

		ConfigFile: v.ConfigFileUsed(),
		ConfigDir:  configDir,
		CacheDir:   cacheDir,
		TempDir:    filepath.Join(cacheDir, "temp_audio"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	switch c.LedgerBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unsupported ledger_backend: %q (supported: file, sqlite)", c.LedgerBackend)
	}
	switch c.CaptionBackend {
	case "ytdlp", "transcriptapi":
	default:
		return fmt.Errorf("unsupported caption_backend: %q (supported: ytdlp, transcriptapi)", c.CaptionBackend)
	}
	switch c.STTBackend {
	case "whisper", "openai", "none":
	default:
		return fmt.Errorf("unsupported stt_backend: %q (supported: whisper, openai, none)", c.STTBackend)
	}
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported llm_provider: %q (supported: openai, gemini)", c.LLMProvider)
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
	}
	return nil
}

// EnabledSources returns the enabled sources in configured order
func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, src := range c.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}
