package mock

import (
	"context"

	"browsir/internal/llm"
)

var (
	_ llm.PopupOracle = (*Oracle)(nil)
	_ llm.Logger      = (*LLMLogger)(nil)
)

// Oracle is a mock implementation of llm.PopupOracle.
type Oracle struct {
	DetectPopupsFn func(ctx context.Context, html string) (*llm.PopupReport, error)
	PingFn         func(ctx context.Context) error
}

func (o *Oracle) DetectPopups(ctx context.Context, html string) (*llm.PopupReport, error) {
	return o.DetectPopupsFn(ctx, html)
}

func (o *Oracle) Ping(ctx context.Context) error {
	return o.PingFn(ctx)
}

// LLMLogger is a mock implementation of llm.Logger.
type LLMLogger struct {
	LogLLMRequestFn func(ctx context.Context, entry llm.RequestLog) error
}

func (l *LLMLogger) LogLLMRequest(ctx context.Context, entry llm.RequestLog) error {
	return l.LogLLMRequestFn(ctx, entry)
}
