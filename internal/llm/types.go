// Package llm предоставляет оракул обнаружения попапов поверх OpenAI и Gemini.
// Включает rate limiting, логирование запросов и защитный разбор ответа модели.
package llm

import (
	"context"
	"strings"
	"time"
)

// PopupOracle определяет контракт оракула: по HTML страницы вернуть
// список кандидатов на нажатие. Ответ модели никогда не считается доверенным.
type PopupOracle interface {
	// DetectPopups анализирует HTML и возвращает найденные попапы.
	// При ошибке вызывающий трактует страницу как чистую.
	DetectPopups(ctx context.Context, html string) (*PopupReport, error)

	// Ping проверяет ключ и модель на старте сервиса.
	Ping(ctx context.Context) error
}

// Logger определяет интерфейс для логирования запросов к модели.
type Logger interface {
	// LogLLMRequest сохраняет информацию о запросе к модели в базу данных.
	LogLLMRequest(ctx context.Context, entry RequestLog) error
}

// RequestLog представляет одну запись журнала запросов к модели.
// Prompt и Response уже прошли через санитайзер.
type RequestLog struct {
	RunID      string
	Provider   string
	Model      string
	Prompt     string
	Response   string
	TokensUsed int
	Duration   time.Duration
	Error      string
}

// PopupCandidate описывает элемент, который модель предлагает нажать.
type PopupCandidate struct {
	Kind       string  `json:"type"`
	Selector   string  `json:"selector"`
	ButtonText string  `json:"button_text,omitempty"`
	Confidence float64 `json:"confidence"` // всегда в [0, 1]
}

// Actionable сообщает, стоит ли нажимать кандидата: уверенность строго выше
// порога и непустой селектор.
func (c PopupCandidate) Actionable(minConfidence float64) bool {
	return c.Confidence > minConfidence && strings.TrimSpace(c.Selector) != ""
}

// PopupReport содержит разобранный ответ оракула. Кандидаты идут в порядке ответа модели.
type PopupReport struct {
	PopupsFound bool             `json:"popups_found"`
	Candidates  []PopupCandidate `json:"elements"`
}

type runIDKey struct{}

// WithRunID кладет идентификатор прогона в контекст, чтобы журнал запросов
// можно было связать с извлечением.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom достает идентификатор прогона из контекста.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
