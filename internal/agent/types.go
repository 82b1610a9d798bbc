// Package agent реализует конвейер извлечения статьи: загрузка страницы,
// цикл закрытия попапов по подсказкам оракула и финальное извлечение контента.
package agent

import (
	"context"
	"time"

	"browsir/internal/browser"
	"browsir/internal/extractor"
	"browsir/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Clicker нажимает элемент страницы и сообщает об успехе. Ошибок не возвращает.
type Clicker interface {
	Click(ctx context.Context, page browser.Page, selector, buttonText string) bool
}

// ContentExtractor извлекает статью из финального HTML.
type ContentExtractor interface {
	Extract(html, pageURL string) extractor.Content
}

// Recorder сохраняет итог каждого извлечения. Ошибка записи только логируется.
type Recorder interface {
	RecordExtraction(ctx context.Context, rec ExtractionRecord) error
}

// Article представляет результат извлечения, отдаваемый клиенту.
type Article struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Images      []string  `json:"images"`
	URL         string    `json:"url"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// ExtractionRecord описывает строку истории извлечений.
type ExtractionRecord struct {
	RunID      string
	URL        string
	Status     string
	ErrorKind  string
	Error      string
	Title      string
	BodyLength int
	ImageCount int
	Attempts   int
	Clicks     int
	FinalState string
	Duration   time.Duration
}

const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// Run хранит состояние одного прогона извлечения. Живет ровно один запрос
// и передается явно, глобального состояния нет.
type Run struct {
	ID          uuid.UUID
	URL         string
	Page        browser.Page
	Attempt     int
	MaxAttempts int
	Snapshot    browser.PageSnapshot // текущий снимок, единственный источник для оракула и извлечения

	state  State
	clicks int
}

func NewRun(url string, maxAttempts int) *Run {
	return &Run{
		ID:          uuid.New(),
		URL:         url,
		MaxAttempts: maxAttempts,
	}
}

func (r *Run) State() State {
	return r.state
}

func (r *Run) Clicks() int {
	return r.clicks
}

// Agent связывает браузер, цикл закрытия попапов и извлечение контента.
type Agent struct {
	browser   browser.Browser
	dismisser *Dismisser
	extractor ContentExtractor
	recorder  Recorder
	slots     *semaphore.Weighted
	log       *logger.Zap
	cfg       Config
	now       func() time.Time
}

// Config содержит конфигурацию для агента.
type Config struct {
	MaxConcurrent int // Сколько извлечений выполняется одновременно
	MaxAttempts   int // Сколько раз опрашивать оракул за один прогон
}
