package internal

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// SummaryNotConfigured is returned without any network call when no
	// usable API key is configured
	SummaryNotConfigured = "摘要功能未設定：請在 config.json 中提供有效的 LLM_API_KEY。"
	// SummaryEmpty is returned when the model answered with no text
	SummaryEmpty = "無法從 LLM 獲取摘要，可能因為內容安全設定或 API 問題。"
	// SummaryFailedPrefix prefixes transport and API errors
	SummaryFailedPrefix = "呼叫 LLM API 失敗: "
)

// Completion is a model answer plus the metadata needed to explain an empty one
type Completion struct {
	Text         string
	FinishReason string
	Refusal      string
}

// LLM completes a single prompt
type LLM interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// Summarizer turns content into a bullet summary. It always returns a
// string; failures become fixed user-visible messages.
type Summarizer struct {
	apiKey  string
	llm     LLM
	prompts *PromptManager
	logger  *slog.Logger
}

func NewSummarizer(apiKey string, llm LLM, prompts *PromptManager, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		apiKey:  apiKey,
		llm:     llm,
		prompts: prompts,
		logger:  logger.With("component", "summarizer"),
	}
}

// NewSummarizerFromConfig picks the provider named by llm_provider
func NewSummarizerFromConfig(config *Config, logger *slog.Logger) *Summarizer {
	var llm LLM
	switch config.LLMProvider {
	case "gemini":
		llm = NewGemini(config.LLMAPIKey, config.LLMModel, config.SummaryTimeout, logger)
	default:
		llm = NewAIWithKey(config.LLMAPIKey, nil, config.LLMModel, WhisperLimit, config.SummaryTimeout, logger)
	}
	return NewSummarizer(config.LLMAPIKey, llm, NewPromptManager(config.ConfigDir, config.Prompt), logger)
}

// Configured reports whether a real API key is present
func (s *Summarizer) Configured() bool {
	return !IsPlaceholder(s.apiKey)
}

// Summarize summarizes text with no title context
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	return s.SummarizeTitled(ctx, "", text)
}

// SummarizeTitled summarizes text, naming the source title in the prompt
func (s *Summarizer) SummarizeTitled(ctx context.Context, title, text string) string {
	if !s.Configured() {
		s.logger.Warn("LLM API key not configured, skipping summary")
		return SummaryNotConfigured
	}

	prompt, err := s.prompts.CreatePrompt(PromptData{Title: title, Content: text})
	if err != nil {
		s.logger.Error("building prompt failed", "error", err)
		return SummaryFailedPrefix + err.Error()
	}

	completion, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("LLM call failed", "error", err)
		return SummaryFailedPrefix + err.Error()
	}

	if strings.TrimSpace(completion.Text) == "" {
		s.logger.Warn("LLM returned empty summary",
			"finish_reason", completion.FinishReason,
			"refusal", completion.Refusal)
		return SummaryEmpty
	}

	return strings.TrimSpace(completion.Text)
}
