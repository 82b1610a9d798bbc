package mock

import (
	"context"

	"browsir/internal/agent"
	"browsir/internal/browser"
	"browsir/internal/extractor"
)

var (
	_ agent.Recorder         = (*Recorder)(nil)
	_ agent.ContentExtractor = (*ContentExtractor)(nil)
	_ agent.Clicker          = (*Clicker)(nil)
)

// Recorder is a mock implementation of agent.Recorder.
type Recorder struct {
	RecordExtractionFn func(ctx context.Context, rec agent.ExtractionRecord) error
}

func (r *Recorder) RecordExtraction(ctx context.Context, rec agent.ExtractionRecord) error {
	return r.RecordExtractionFn(ctx, rec)
}

// ContentExtractor is a mock implementation of agent.ContentExtractor.
type ContentExtractor struct {
	ExtractFn func(html, pageURL string) extractor.Content
}

func (e *ContentExtractor) Extract(html, pageURL string) extractor.Content {
	return e.ExtractFn(html, pageURL)
}

// Clicker is a mock implementation of agent.Clicker.
type Clicker struct {
	ClickFn func(ctx context.Context, page browser.Page, selector, buttonText string) bool
}

func (c *Clicker) Click(ctx context.Context, page browser.Page, selector, buttonText string) bool {
	return c.ClickFn(ctx, page, selector, buttonText)
}
