package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultOpenAIModel is used when llm_model is empty
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClientInterface defines the interface for OpenAI client operations
type OpenAIClientInterface interface {
	CreateTranscription(ctx context.Context, file *os.File) (string, error)
	CreateChatCompletion(ctx context.Context, model, prompt string) (Completion, error)
}

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClient{client: &client}
}

// CreateTranscription implements the transcription method
func (c *OpenAIClient) CreateTranscription(ctx context.Context, file *os.File) (string, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CreateChatCompletion sends a single user message and reports how the
// model finished
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, model, prompt string) (Completion, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, nil
	}
	choice := resp.Choices[0]
	return Completion{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Refusal:      choice.Message.Refusal,
	}, nil
}

// AI handles OpenAI API interactions for transcription and summarization
type AI struct {
	client       OpenAIClientInterface
	audio        *Audio
	model        string
	whisperLimit int64
	timeout      time.Duration
	logger       *slog.Logger
	apiKey       string
	clientOnce   sync.Once
}

var (
	_ LLM          = (*AI)(nil)
	_ SpeechToText = (*AI)(nil)
)

// NewAI creates a new AI processor
func NewAI(client OpenAIClientInterface, audio *Audio, model string, whisperLimit int64, timeout time.Duration, logger *slog.Logger) *AI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &AI{
		client:       client,
		audio:        audio,
		model:        model,
		whisperLimit: whisperLimit,
		timeout:      timeout,
		logger:       logger.With("component", "openai"),
	}
}

// NewAIWithKey creates a new AI processor with lazy client initialization
func NewAIWithKey(apiKey string, audio *Audio, model string, whisperLimit int64, timeout time.Duration, logger *slog.Logger) *AI {
	ai := NewAI(nil, audio, model, whisperLimit, timeout, logger)
	ai.apiKey = apiKey
	return ai
}

// ensureClient initializes the OpenAI client if needed
func (ai *AI) ensureClient() error {
	if ai.client != nil {
		return nil
	}

	if IsPlaceholder(ai.apiKey) {
		return errors.New("OpenAI API key is required: set llm_api_key in config.json or OPENAI_API_KEY")
	}

	ai.clientOnce.Do(func() {
		ai.client = NewOpenAIClient(ai.apiKey)
	})

	return nil
}

// Transcribe transcribes audio using OpenAI's Whisper API, splitting files
// above the upload limit
func (ai *AI) Transcribe(ctx context.Context, audioFile string) (string, error) {
	if err := ai.ensureClient(); err != nil {
		return "", err
	}

	ai.logger.Debug("transcribing audio file", "file", audioFile)

	chunks := []string{audioFile}
	if ai.audio != nil {
		var err error
		chunks, err = ai.audio.Split(ctx, audioFile, ai.whisperLimit)
		if err != nil {
			return "", fmt.Errorf("splitting audio: %w", err)
		}
		if len(chunks) > 1 {
			defer cleanupFiles(ai.logger, chunks...)
		}
	} else if info, err := os.Stat(audioFile); err != nil {
		return "", fmt.Errorf("getting audio file info: %w", err)
	} else if ChunkCount(info.Size(), ai.whisperLimit) > 1 {
		return "", fmt.Errorf("audio file %s exceeds the %d byte upload limit", audioFile, ai.whisperLimit)
	}

	transcript, err := ai.processAudioChunks(ctx, chunks)
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}
	return transcript, nil
}

// processAudioChunks transcribes audio chunks sequentially
// NOTE: concurrent uploads occasionally returned a broken chunk transcript
func (ai *AI) processAudioChunks(ctx context.Context, chunks []string) (string, error) {
	numChunks := len(chunks)

	var sb strings.Builder
	for i, chunkPath := range chunks {
		file, err := os.Open(chunkPath)
		if err != nil {
			return "", fmt.Errorf("opening chunk %s: %w", chunkPath, err)
		}

		text, err := ai.client.CreateTranscription(ctx, file)
		if closeErr := file.Close(); closeErr != nil {
			ai.logger.Warn("failed to close chunk", "file", chunkPath, "error", closeErr)
		}
		if err != nil {
			return "", fmt.Errorf("transcribing chunk %d: %w", i+1, err)
		}

		sb.WriteString(text)
		if i < numChunks-1 {
			sb.WriteString("\n")
		}

		ai.logger.Debug("transcribed chunk", "chunk", i+1, "of", numChunks)
	}

	return sb.String(), nil
}

// Complete sends the prompt to the chat model
func (ai *AI) Complete(ctx context.Context, prompt string) (Completion, error) {
	if err := ai.ensureClient(); err != nil {
		return Completion{}, err
	}

	if ai.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ai.timeout)
		defer cancel()
	}

	completion, err := ai.client.CreateChatCompletion(ctx, ai.model, prompt)
	if err != nil {
		return Completion{}, fmt.Errorf("creating chat completion: %w", err)
	}

	return completion, nil
}
