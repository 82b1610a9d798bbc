// Package commands содержит подкоманды CLI.
package commands

import (
	"context"
	"io"

	"browsir/internal/config"
	"browsir/internal/database"
	"browsir/internal/logger"
	"browsir/internal/server"
)

// HistoryStore читает сохраненную историю извлечений.
type HistoryStore interface {
	ListExtractions(ctx context.Context, limit, offset int) ([]database.Extraction, error)
	ListLLMLogs(ctx context.Context, runID string) ([]database.LlmLog, error)
}

// Dependencies собирается в main и передается в Run команд через kong.Bind.
// Extractor есть только у serve и extract, History только при настроенной БД.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Cfg       *config.Cfg
	Log       *logger.Zap
	Extractor server.Extractor
	History   HistoryStore
}
