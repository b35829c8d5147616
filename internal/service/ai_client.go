package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"vibe-server/internal/config"
)

// ErrAIGenerationFailed - ошибка при обращении к AI API.
var ErrAIGenerationFailed = errors.New("ошибка генерации AI")

// AIClient определяет интерфейс для AI-операций завершения трека:
// генерация названия по промпту и регенерация обложки.
type AIClient interface {
	// GenerateTitle генерирует короткое название трека по исходному промпту.
	GenerateTitle(ctx context.Context, prompt string) (string, error)

	// GenerateImage генерирует новую обложку по текстовому промпту и
	// возвращает URL кандидата.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

const titleSystemPrompt = `You name music tracks. Given a vibe description, reply with a short evocative title, 2-5 words, no quotes, no punctuation at the end.`

type openAIClient struct {
	client      *openai.Client
	titleModel  string
	imageModel  string
	timeout     time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// Compile-time check to ensure openAIClient implements AIClient
var _ AIClient = (*openAIClient)(nil)

// NewAIClient создает AI клиент поверх OpenAI-совместимого API.
func NewAIClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	if cfg.AIAPIKey == "" {
		return nil, errors.New("не указан API ключ для AI")
	}

	clientCfg := openai.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		clientCfg.BaseURL = cfg.AIBaseURL
	}

	maxAttempts := cfg.AIMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		titleModel:  cfg.AITitleModel,
		imageModel:  cfg.AIImageModel,
		timeout:     cfg.AITimeout,
		maxAttempts: maxAttempts,
		logger:      logger.Named("AIClient"),
	}, nil
}

// GenerateTitle генерирует название трека по промпту пользователя.
func (c *openAIClient) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: c.titleModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   32,
			Temperature: 0.9,
		})
		cancel()

		if err == nil && len(resp.Choices) > 0 {
			title := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)
			if title != "" {
				return title, nil
			}
			err = errors.New("empty completion")
		}
		lastErr = err
		c.logger.Warn("Title generation attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))

		// Небольшая пауза перед повтором, если контекст еще жив
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, lastErr)
}

// GenerateImage генерирует обложку по промпту и возвращает URL.
func (c *openAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateImage(reqCtx, openai.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		c.logger.Error("Image generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("%w: пустой ответ image API", ErrAIGenerationFailed)
	}
	return resp.Data[0].URL, nil
}
