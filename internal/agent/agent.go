package agent

import (
	"context"
	"fmt"
	"time"

	"browsir/internal/browser"
	"browsir/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// New создает агента извлечения. recorder может быть nil: тогда история не пишется.
// Если в конфигурации не указаны значения, используются дефолты:
//   - MaxConcurrent: 4
//   - MaxAttempts: 3
func New(br browser.Browser, dismisser *Dismisser, ext ContentExtractor, recorder Recorder, log *logger.Zap, cfg Config) *Agent {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Agent{
		browser:   br,
		dismisser: dismisser,
		extractor: ext,
		recorder:  recorder,
		slots:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Extract загружает страницу, закрывает попапы и извлекает статью.
// Наружу выходят только ErrInvalidURL, ошибки контекста и *Error
// видов KindDriverInit, KindPageLoad, KindEmpty.
func (a *Agent) Extract(ctx context.Context, rawURL string) (*Article, error) {
	target, err := ParseTargetURL(rawURL)
	if err != nil {
		return nil, err
	}

	run := NewRun(target.String(), a.cfg.MaxAttempts)
	started := a.now()
	log := a.log.With(zap.String("run_id", run.ID.String()), zap.String("url", run.URL))

	article, err := a.extract(ctx, run, log)
	a.record(ctx, run, article, err, a.now().Sub(started), log)

	if err != nil {
		log.Warn("Извлечение не удалось", zap.Error(err), zap.Duration("duration", a.now().Sub(started)))
		return nil, err
	}

	log.Info("Статья извлечена",
		zap.String("title", article.Title),
		zap.Int("body_length", len(article.Body)),
		zap.Int("images", len(article.Images)),
		zap.Duration("duration", a.now().Sub(started)))

	return article, nil
}

func (a *Agent) extract(ctx context.Context, run *Run, log *zap.Logger) (*Article, error) {
	if err := a.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("ожидание свободного слота: %w", err)
	}
	defer a.slots.Release(1)

	page, err := a.browser.NewPage(ctx)
	if err != nil {
		return nil, newError(KindDriverInit, run.URL, err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("Ошибка закрытия страницы", zap.Error(cerr))
		}
	}()
	run.Page = page

	log.Info("Загрузка страницы")
	html, err := page.Load(ctx, run.URL)
	if err != nil {
		return nil, newError(KindPageLoad, run.URL, err)
	}
	run.Snapshot = browser.PageSnapshot{HTML: html, URL: run.URL}

	final := a.dismisser.Run(ctx, run)

	pageURL := final.URL
	if pageURL == "" {
		pageURL = run.URL
	}
	content := a.extractor.Extract(final.HTML, pageURL)
	if content.Title == "" && content.Body == "" {
		return nil, newError(KindEmpty, run.URL, ErrExtractionEmpty)
	}

	images := content.Images
	if images == nil {
		images = []string{}
	}

	return &Article{
		Title:       content.Title,
		Body:        content.Body,
		Images:      images,
		URL:         run.URL,
		ExtractedAt: a.now().UTC(),
	}, nil
}

func (a *Agent) record(ctx context.Context, run *Run, article *Article, extractErr error, took time.Duration, log *zap.Logger) {
	if a.recorder == nil {
		return
	}

	rec := ExtractionRecord{
		RunID:    run.ID.String(),
		URL:      run.URL,
		Status:   StatusSuccess,
		Attempts: run.Attempt,
		Clicks:   run.Clicks(),
		Duration: took,
	}
	if run.Attempt > 0 {
		rec.FinalState = run.State().String()
	}
	if article != nil {
		rec.Title = article.Title
		rec.BodyLength = len(article.Body)
		rec.ImageCount = len(article.Images)
	}
	if extractErr != nil {
		rec.Status = StatusFailed
		rec.Error = extractErr.Error()
		if kind, ok := KindOf(extractErr); ok {
			rec.ErrorKind = kind.String()
			if kind == KindEmpty {
				rec.Status = StatusEmpty
			}
		}
	}

	if err := a.recorder.RecordExtraction(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("Не удалось сохранить историю извлечения", zap.Error(err))
	}
}
