package mock

import (
	"context"

	"browsir/internal/agent"
	"browsir/internal/server"
)

var _ server.Extractor = (*ArticleExtractor)(nil)

// ArticleExtractor is a mock implementation of server.Extractor.
type ArticleExtractor struct {
	ExtractFn func(ctx context.Context, url string) (*agent.Article, error)
}

func (e *ArticleExtractor) Extract(ctx context.Context, url string) (*agent.Article, error) {
	return e.ExtractFn(ctx, url)
}
