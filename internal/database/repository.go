package database

import (
	"context"

	"browsir/internal/agent"
	"browsir/internal/llm"
	"browsir/internal/sanitizer"

	"gorm.io/gorm"
)

var (
	_ agent.Recorder = (*Repository)(nil)
	_ llm.Logger     = (*Repository)(nil)
)

// Repository хранит историю извлечений и журнал запросов к модели.
type Repository struct {
	db        *gorm.DB
	sanitizer *sanitizer.DataSanitizer
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, sanitizer: sanitizer.New()}
}

// RecordExtraction сохраняет итог прогона. Токены в query-параметрах URL маскируются.
func (r *Repository) RecordExtraction(ctx context.Context, rec agent.ExtractionRecord) error {
	rec.URL = r.sanitizer.SanitizeURL(rec.URL)
	return r.db.WithContext(ctx).Create(extractionFromRecord(rec)).Error
}

func (r *Repository) LogLLMRequest(ctx context.Context, entry llm.RequestLog) error {
	return r.db.WithContext(ctx).Create(llmLogFromEntry(entry)).Error
}

// ListExtractions возвращает последние извлечения, новые первыми.
func (r *Repository) ListExtractions(ctx context.Context, limit, offset int) ([]Extraction, error) {
	var extractions []Extraction
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset).Find(&extractions).Error; err != nil {
		return nil, err
	}
	return extractions, nil
}

// ListLLMLogs возвращает запросы к модели, сделанные в рамках прогона.
func (r *Repository) ListLLMLogs(ctx context.Context, runID string) ([]LlmLog, error) {
	var logs []LlmLog
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func extractionFromRecord(rec agent.ExtractionRecord) *Extraction {
	return &Extraction{
		RunID:      rec.RunID,
		URL:        rec.URL,
		Status:     rec.Status,
		ErrorKind:  rec.ErrorKind,
		Error:      rec.Error,
		Title:      rec.Title,
		BodyLength: rec.BodyLength,
		ImageCount: rec.ImageCount,
		Attempts:   rec.Attempts,
		Clicks:     rec.Clicks,
		FinalState: rec.FinalState,
		DurationMs: rec.Duration.Milliseconds(),
	}
}

func llmLogFromEntry(entry llm.RequestLog) *LlmLog {
	return &LlmLog{
		RunID:        entry.RunID,
		Provider:     entry.Provider,
		Model:        entry.Model,
		PromptText:   entry.Prompt,
		ResponseText: entry.Response,
		Error:        entry.Error,
		TokensUsed:   entry.TokensUsed,
		DurationMs:   entry.Duration.Milliseconds(),
	}
}
