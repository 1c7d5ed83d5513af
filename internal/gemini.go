package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// DefaultGeminiModel is used when llm_model is empty
const DefaultGeminiModel = "googleai/gemini-2.5-flash"

// Gemini generates completions through genkit's Google AI plugin
type Gemini struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  *slog.Logger

	initOnce sync.Once
	g        *genkit.Genkit
}

var _ LLM = (*Gemini)(nil)

func NewGemini(apiKey, model string, timeout time.Duration, logger *slog.Logger) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if !strings.Contains(model, "/") {
		model = "googleai/" + model
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "gemini", "model", model),
	}
}

func (m *Gemini) Complete(ctx context.Context, prompt string) (Completion, error) {
	if IsPlaceholder(m.apiKey) {
		return Completion{}, errors.New("Gemini API key is required")
	}
	m.initOnce.Do(func() {
		m.g = genkit.Init(context.Background(), genkit.WithPlugins(&googlegenai.GoogleAI{
			APIKey: m.apiKey,
		}))
	})

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	resp, err := genkit.Generate(ctx, m.g,
		ai.WithPrompt(prompt),
		ai.WithModelName(m.model),
	)
	if err != nil {
		return Completion{}, fmt.Errorf("generating with %s: %w", m.model, err)
	}

	m.logger.Debug("generation finished", "finish_reason", resp.FinishReason)
	return Completion{
		Text:         resp.Text(),
		FinishReason: string(resp.FinishReason),
		Refusal:      resp.FinishMessage,
	}, nil
}
