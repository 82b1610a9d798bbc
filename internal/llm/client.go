package llm

import (
	"context"
	"fmt"
	"time"

	"browsir/internal/sanitizer"

	"github.com/sashabaranov/go-openai"
)

const ProviderOpenAI = "openai"

var _ PopupOracle = (*Client)(nil)

// ClientConfig задает параметры OpenAI-оракула.
type ClientConfig struct {
	APIKey            string
	Model             string
	MaxTokens         int
	HTMLLimit         int
	Timeout           time.Duration
	RequestsPerMinute int
	TokensPerHour     int
	BaseURL           string // совместимый прокси или тестовый сервер
}

type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	htmlLimit   int
	timeout     time.Duration
	logger      Logger
	sanitizer   *sanitizer.DataSanitizer
	rateLimiter *RateLimiter
}

func NewClient(cfg ClientConfig, logger Logger) *Client {
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.HTMLLimit <= 0 {
		cfg.HTMLLimit = DefaultHTMLLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		client:      openai.NewClientWithConfig(oaiCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		htmlLimit:   cfg.HTMLLimit,
		timeout:     cfg.Timeout,
		logger:      logger,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.TokensPerHour),
	}
}

// DetectPopups отправляет усеченный HTML модели и разбирает ответ.
func (c *Client) DetectPopups(ctx context.Context, html string) (*PopupReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPopupPrompt(TruncateHTML(html, c.htmlLimit))
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: popupSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.createChatCompletionWithRateLimit(ctx, req)
	if err != nil {
		c.logRequest(ctx, prompt, "", 0, time.Since(start), err)
		return nil, fmt.Errorf("failed to detect popups: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no response from LLM")
		c.logRequest(ctx, prompt, "", resp.Usage.TotalTokens, time.Since(start), err)
		return nil, err
	}

	content := resp.Choices[0].Message.Content
	report, err := ParsePopupResponse(content)
	c.logRequest(ctx, prompt, content, resp.Usage.TotalTokens, time.Since(start), err)
	if err != nil {
		return report, fmt.Errorf("failed to parse popup analysis: %w", err)
	}

	return report, nil
}

// Ping проверяет, что ключ рабочий и модель доступна.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.GetModel(ctx, c.model); err != nil {
		return fmt.Errorf("openai model %q is not available: %w", c.model, err)
	}
	return nil
}

// createChatCompletionWithRateLimit выполняет запрос с проверкой rate limit
func (c *Client) createChatCompletionWithRateLimit(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	estimatedTokens := req.MaxTokens
	for _, msg := range req.Messages {
		estimatedTokens += estimateTokens(msg.Content)
	}

	if err := c.rateLimiter.Wait(ctx, estimatedTokens); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, err
	}

	// Корректируем использованные токены (теперь знаем точное значение)
	if resp.Usage.TotalTokens > estimatedTokens {
		c.rateLimiter.ConsumeTokens(resp.Usage.TotalTokens - estimatedTokens)
	}

	return resp, nil
}

func (c *Client) logRequest(ctx context.Context, prompt, response string, tokens int, took time.Duration, reqErr error) {
	if c.logger == nil {
		return
	}

	entry := RequestLog{
		RunID:      RunIDFrom(ctx),
		Provider:   ProviderOpenAI,
		Model:      c.model,
		Prompt:     c.sanitizer.Sanitize(formatPrompt(popupSystemPrompt, prompt)),
		Response:   c.sanitizer.Sanitize(response),
		TokensUsed: tokens,
		Duration:   took,
	}
	if reqErr != nil {
		entry.Error = c.sanitizer.Sanitize(reqErr.Error())
	}

	// контекст запроса может быть уже отменен, запись в журнал от него не зависит
	_ = c.logger.LogLLMRequest(context.WithoutCancel(ctx), entry)
}

func formatPrompt(system, user string) string {
	return "SYSTEM:\n" + system + "\n\nUSER:\n" + user
}
