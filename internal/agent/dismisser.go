package agent

import (
	"context"
	"errors"
	"time"

	"browsir/internal/browser"
	"browsir/internal/llm"
	"browsir/internal/logger"

	"go.uber.org/zap"
)

// State обозначает шаг цикла закрытия попапов. Наружу не отдается, только логируется.
type State int

const (
	StateQuerying State = iota
	StateInteracting
	StateSettling
	StateCleanExit
	StateStalled
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateQuerying:
		return "querying"
	case StateInteracting:
		return "interacting"
	case StateSettling:
		return "settling"
	case StateCleanExit:
		return "clean_exit"
	case StateStalled:
		return "stalled"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// AnyConfidence отключает порог уверенности: годится любой кандидат с уверенностью выше нуля.
// Нулевой MinConfidence означает порог по умолчанию.
const AnyConfidence = -1

// DismisserConfig задает параметры цикла. Нулевые значения заменяются дефолтами.
type DismisserConfig struct {
	MaxAttempts   int
	MinConfidence float64       // строгий порог уверенности, по умолчанию 0.3
	ClickSettle   time.Duration // пауза после успешного клика
	FinalSettle   time.Duration // пауза перед финальным снимком
	Sleep         browser.SleepFunc
}

// Dismisser ведет ограниченный цикл: спросить оракул, нажать первого годного
// кандидата, дать странице успокоиться, обновить снимок.
type Dismisser struct {
	oracle  llm.PopupOracle
	clicker Clicker
	breaker *CircuitBreaker
	cfg     DismisserConfig
	log     *logger.Zap
}

// NewDismisser создает цикл закрытия попапов. Дефолты:
//   - MaxAttempts: 3
//   - MinConfidence: 0.3 (AnyConfidence снимает порог)
//   - ClickSettle: 5s
//   - FinalSettle: 3s
func NewDismisser(oracle llm.PopupOracle, clicker Clicker, breaker *CircuitBreaker, cfg DismisserConfig, log *logger.Zap) *Dismisser {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	switch {
	case cfg.MinConfidence == 0:
		cfg.MinConfidence = 0.3
	case cfg.MinConfidence < 0:
		cfg.MinConfidence = 0
	}
	if cfg.ClickSettle <= 0 {
		cfg.ClickSettle = 5 * time.Second
	}
	if cfg.FinalSettle <= 0 {
		cfg.FinalSettle = 3 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = browser.Sleep
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Dismisser{
		oracle:  oracle,
		clicker: clicker,
		breaker: breaker,
		cfg:     cfg,
		log:     log,
	}
}

// Run никогда не завершается ошибкой: сбои оракула и кликов поглощаются,
// а возвращается последний снимок страницы после финальной паузы.
func (d *Dismisser) Run(ctx context.Context, run *Run) browser.PageSnapshot {
	if run.MaxAttempts <= 0 {
		run.MaxAttempts = d.cfg.MaxAttempts
	}

	log := &logger.Zap{Logger: d.log.With(zap.String("run_id", run.ID.String()), zap.String("url", run.URL))}
	run.state = StateExhausted

loop:
	for attempt := 1; attempt <= run.MaxAttempts; attempt++ {
		run.Attempt = attempt
		log.Info("Поиск попапов", zap.Int("attempt", attempt), zap.Int("max_attempts", run.MaxAttempts))

		run.state = StateQuerying
		report, err := d.query(ctx, run)
		if err != nil {
			log.Warn("Оракул недоступен, считаем страницу чистой",
				zap.Int("attempt", attempt),
				zap.Error(newError(KindOracle, run.URL, err)))
			run.state = StateCleanExit
			break loop
		}
		if report == nil || !report.PopupsFound {
			log.Info("Попапы не найдены", zap.Int("attempt", attempt))
			run.state = StateCleanExit
			break loop
		}

		run.state = StateInteracting
		if !d.dismissOne(ctx, run, report.Candidates, log) {
			log.Warn("Ни один кандидат не нажат",
				zap.Int("attempt", attempt),
				zap.Int("candidates", len(report.Candidates)),
				zap.Error(newError(KindInteraction, run.URL, errNoCandidateClicked)))
			run.state = StateStalled
			break loop
		}

		run.state = StateSettling
		if err := d.cfg.Sleep(ctx, d.cfg.ClickSettle); err != nil {
			run.state = StateStalled
			break loop
		}
		d.refresh(ctx, run, log)
		run.state = StateExhausted
	}

	log.Info("Цикл закрытия попапов завершен",
		zap.Stringer("state", run.state),
		zap.Int("attempts", run.Attempt),
		zap.Int("clicks", run.clicks))

	final := run.state
	if err := d.cfg.Sleep(ctx, d.cfg.FinalSettle); err == nil {
		d.refresh(ctx, run, log)
	}
	run.state = final

	return run.Snapshot
}

var errNoCandidateClicked = errors.New("ни один кандидат не нажат")

func (d *Dismisser) query(ctx context.Context, run *Run) (*llm.PopupReport, error) {
	ctx = llm.WithRunID(ctx, run.ID.String())

	detect := func() (*llm.PopupReport, error) {
		return d.oracle.DetectPopups(ctx, run.Snapshot.HTML)
	}
	if d.breaker == nil {
		return detect()
	}

	var report *llm.PopupReport
	err := d.breaker.Call(ctx, func() error {
		r, err := detect()
		report = r
		return err
	})
	return report, err
}

// dismissOne нажимает не больше одного кандидата за попытку: первого, у кого
// уверенность выше порога и есть селектор, и кто реально нажался.
func (d *Dismisser) dismissOne(ctx context.Context, run *Run, candidates []llm.PopupCandidate, log *logger.Zap) bool {
	for i, c := range candidates {
		if !c.Actionable(d.cfg.MinConfidence) {
			log.Debug("Кандидат пропущен",
				zap.Int("index", i),
				zap.String("selector", c.Selector),
				zap.Float64("confidence", c.Confidence))
			continue
		}

		log.Info("Закрываем попап",
			zap.Int("index", i),
			zap.String("type", c.Kind),
			zap.String("selector", c.Selector),
			zap.String("button_text", c.ButtonText),
			zap.Float64("confidence", c.Confidence))

		if d.clicker.Click(ctx, run.Page, c.Selector, c.ButtonText) {
			run.clicks++
			return true
		}
	}
	return false
}

// refresh заменяет снимок целиком. При ошибке остается предыдущий.
func (d *Dismisser) refresh(ctx context.Context, run *Run, log *logger.Zap) {
	if run.Page == nil {
		return
	}

	snapshot, err := run.Page.Snapshot(ctx)
	if err != nil || snapshot.Empty() {
		log.Warn("Не удалось обновить снимок страницы", zap.Error(err))
		return
	}
	run.Snapshot = snapshot
}
