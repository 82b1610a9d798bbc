package mock

import (
	"context"

	"browsir/internal/cli/commands"
	"browsir/internal/database"
)

var _ commands.HistoryStore = (*HistoryStore)(nil)

// HistoryStore is a mock implementation of commands.HistoryStore.
type HistoryStore struct {
	ListExtractionsFn func(ctx context.Context, limit, offset int) ([]database.Extraction, error)
	ListLLMLogsFn     func(ctx context.Context, runID string) ([]database.LlmLog, error)
}

func (s *HistoryStore) ListExtractions(ctx context.Context, limit, offset int) ([]database.Extraction, error) {
	return s.ListExtractionsFn(ctx, limit, offset)
}

func (s *HistoryStore) ListLLMLogs(ctx context.Context, runID string) ([]database.LlmLog, error) {
	return s.ListLLMLogsFn(ctx, runID)
}
