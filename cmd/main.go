package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"browsir/internal/agent"
	"browsir/internal/browser"
	"browsir/internal/cli"
	"browsir/internal/cli/commands"
	"browsir/internal/config"
	"browsir/internal/database"
	"browsir/internal/extractor"
	"browsir/internal/llm"
	"browsir/internal/logger"
	"browsir/internal/migrations"

	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	kctx, err := cli.Parse(args, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cli.NeedsAgent(kctx) {
		if err := cfg.ValidateOracle(); err != nil {
			return err
		}
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &commands.Dependencies{
		Ctx:    ctx,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Cfg:    cfg,
		Log:    log,
	}

	var repo *database.Repository
	if cfg.Database.Enabled() {
		if err := migrations.Run(cfg, log); err != nil {
			log.Error("Ошибка миграций", zap.Error(err))
			return err
		}

		db, err := database.New(cfg, log)
		if err != nil {
			log.Error("Ошибка подключения к БД", zap.Error(err))
			return err
		}
		defer db.Close(log)

		repo = database.NewRepository(db.DB)
		deps.History = repo
	}

	if cli.NeedsAgent(kctx) {
		ag, closeBrowser, err := buildAgent(ctx, cfg, log, repo)
		if err != nil {
			return err
		}
		defer closeBrowser()
		deps.Extractor = ag
	}

	return cli.Run(kctx, deps)
}

// buildAgent собирает оракул, браузер и цикл закрытия попапов.
func buildAgent(ctx context.Context, cfg *config.Cfg, log *logger.Zap, repo *database.Repository) (*agent.Agent, func(), error) {
	var (
		llmLog   llm.Logger
		recorder agent.Recorder
	)
	if repo != nil {
		llmLog = repo
		recorder = repo
	}

	oracle, err := newOracle(ctx, cfg, llmLog)
	if err != nil {
		return nil, nil, err
	}
	if err := oracle.Ping(ctx); err != nil {
		log.Error("Оракул недоступен, проверьте ключ API", zap.String("provider", cfg.Oracle.Provider), zap.Error(err))
		return nil, nil, err
	}
	log.Info("Оракул готов", zap.String("provider", cfg.Oracle.Provider))

	br := browser.New(browser.Config{
		Engine:          cfg.Browser.Engine,
		Headless:        cfg.Browser.Headless,
		Display:         cfg.Browser.Display,
		Timeout:         cfg.Browser.Timeout,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
		LoadWait:        cfg.Browser.LoadWait,
		SnapshotWait:    cfg.Browser.SnapshotWait,
	})
	if err := br.Launch(ctx); err != nil {
		// запросы попробуют поднять браузер заново и вернут 503, если не выйдет
		log.Warn("Браузер не запущен", zap.Error(err))
	}
	closeBrowser := func() {
		if err := br.Close(); err != nil {
			log.Warn("Ошибка закрытия браузера", zap.Error(err))
		}
	}

	interactor := browser.NewInteractor(browser.InteractorConfig{
		ClickTimeout:   cfg.Browser.ClickTimeout,
		StrategyBudget: cfg.Browser.StrategyBudget,
		Pause:          cfg.Browser.ClickPause,
	}, log.Logger)

	minConfidence := cfg.Popups.MinConfidence
	if minConfidence == 0 {
		minConfidence = agent.AnyConfidence
	}

	dismisser := agent.NewDismisser(oracle, interactor, agent.NewCircuitBreaker(5, 30*time.Second), agent.DismisserConfig{
		MaxAttempts:   cfg.Popups.MaxAttempts,
		MinConfidence: minConfidence,
		ClickSettle:   cfg.Popups.ClickSettle,
		FinalSettle:   cfg.Popups.FinalSettle,
	}, log)

	ag := agent.New(br, dismisser, extractor.New(), recorder, log, agent.Config{
		MaxConcurrent: cfg.App.MaxConcurrent,
		MaxAttempts:   cfg.Popups.MaxAttempts,
	})

	return ag, closeBrowser, nil
}

func newOracle(ctx context.Context, cfg *config.Cfg, llmLog llm.Logger) (llm.PopupOracle, error) {
	switch cfg.Oracle.Provider {
	case config.ProviderGemini:
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:            cfg.Gemini.Key,
			Model:             cfg.Gemini.Model,
			MaxTokens:         cfg.OpenAI.MaxTokens,
			HTMLLimit:         cfg.Oracle.HTMLLimit,
			Timeout:           cfg.Oracle.Timeout,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
			TokensPerHour:     cfg.Oracle.TokensPerHour,
		}, llmLog)
	default:
		return llm.NewClient(llm.ClientConfig{
			APIKey:            cfg.OpenAI.KeyAI,
			Model:             cfg.OpenAI.Model,
			MaxTokens:         cfg.OpenAI.MaxTokens,
			HTMLLimit:         cfg.Oracle.HTMLLimit,
			Timeout:           cfg.Oracle.Timeout,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
			TokensPerHour:     cfg.Oracle.TokensPerHour,
		}, llmLog), nil
	}
}
