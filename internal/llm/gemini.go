package llm

import (
	"context"
	"fmt"
	"time"

	"browsir/internal/sanitizer"

	"google.golang.org/genai"
)

const ProviderGemini = "gemini"

var _ PopupOracle = (*GeminiClient)(nil)

type GeminiConfig struct {
	APIKey            string
	Model             string
	MaxTokens         int
	HTMLLimit         int
	Timeout           time.Duration
	RequestsPerMinute int
	TokensPerHour     int
	BaseURL           string // прокси или тестовый сервер
}

// GeminiClient реализует альтернативный оракул на Google Gemini с тем же промптом.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	htmlLimit   int
	timeout     time.Duration
	logger      Logger
	sanitizer   *sanitizer.DataSanitizer
	rateLimiter *RateLimiter
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.HTMLLimit <= 0 {
		cfg.HTMLLimit = DefaultHTMLLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		htmlLimit:   cfg.HTMLLimit,
		timeout:     cfg.Timeout,
		logger:      logger,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.TokensPerHour),
	}, nil
}

func (g *GeminiClient) DetectPopups(ctx context.Context, html string) (*PopupReport, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := BuildPopupPrompt(TruncateHTML(html, g.htmlLimit))
	estimated := estimateTokens(popupSystemPrompt, prompt) + g.maxTokens
	if err := g.rateLimiter.Wait(ctx, estimated); err != nil {
		return nil, fmt.Errorf("failed to detect popups: %w", err)
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		}},
		g.buildConfig(),
	)
	if err != nil {
		g.logRequest(ctx, prompt, "", 0, time.Since(start), err)
		return nil, fmt.Errorf("failed to detect popups: %w", err)
	}
	if result == nil {
		err := fmt.Errorf("gemini returned nil result")
		g.logRequest(ctx, prompt, "", 0, time.Since(start), err)
		return nil, err
	}

	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	if tokens > estimated {
		g.rateLimiter.ConsumeTokens(tokens - estimated)
	}

	content := result.Text()
	report, err := ParsePopupResponse(content)
	g.logRequest(ctx, prompt, content, tokens, time.Since(start), err)
	if err != nil {
		return report, fmt.Errorf("failed to parse popup analysis: %w", err)
	}

	return report, nil
}

func (g *GeminiClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini model %q is not available: %w", g.model, err)
	}
	return nil
}

func (g *GeminiClient) buildConfig() *genai.GenerateContentConfig {
	temp := float32(0.3)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: popupSystemPrompt}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}
	return config
}

func (g *GeminiClient) logRequest(ctx context.Context, prompt, response string, tokens int, took time.Duration, reqErr error) {
	if g.logger == nil {
		return
	}

	entry := RequestLog{
		RunID:      RunIDFrom(ctx),
		Provider:   ProviderGemini,
		Model:      g.model,
		Prompt:     g.sanitizer.Sanitize(formatPrompt(popupSystemPrompt, prompt)),
		Response:   g.sanitizer.Sanitize(response),
		TokensUsed: tokens,
		Duration:   took,
	}
	if reqErr != nil {
		entry.Error = g.sanitizer.Sanitize(reqErr.Error())
	}

	_ = g.logger.LogLLMRequest(context.WithoutCancel(ctx), entry)
}
