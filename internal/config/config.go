package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	EngineChromium = "chromium"
	EngineFirefox  = "firefox"
)

type Cfg struct {
	App        App
	Database   Database
	Logger     Logger
	Oracle     Oracle
	OpenAI     OpenAI
	Gemini     Gemini
	Browser    Browser
	Popups     Popups
	Migrations Migrations
}

type App struct {
	Host           string
	Port           string
	RequestTimeout time.Duration
	MaxConcurrent  int
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Enabled сообщает, настроено ли хранилище истории извлечений.
func (d Database) Enabled() bool {
	return d.Host != ""
}

// DSN собирает строку подключения в формате key=value для gorm.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL собирает строку подключения в формате URL для golang-migrate.
func (d Database) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
}

type Oracle struct {
	Provider          string
	HTMLLimit         int
	Timeout           time.Duration
	RequestsPerMinute int
	TokensPerHour     int
}

type OpenAI struct {
	KeyAI     string
	Model     string
	MaxTokens int
}

type Gemini struct {
	Key   string
	Model string
}

type Browser struct {
	Engine          string
	Display         string
	Headless        bool
	Timeout         time.Duration
	NavigateTimeout time.Duration
	LoadWait        time.Duration
	SnapshotWait    time.Duration
	ClickTimeout    time.Duration
	StrategyBudget  time.Duration
	ClickPause      time.Duration
}

type Popups struct {
	MaxAttempts   int
	MinConfidence float64
	ClickSettle   time.Duration
	FinalSettle   time.Duration
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		App: App{
			Host:           env("HOST", "0.0.0.0"),
			Port:           env("PORT", "8000"),
			RequestTimeout: envDuration("REQUEST_TIMEOUT", 180*time.Second),
			MaxConcurrent:  envInt("MAX_CONCURRENT_EXTRACTIONS", 4),
		},
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
		},
		Oracle: Oracle{
			Provider:          strings.ToLower(env("ORACLE_PROVIDER", ProviderOpenAI)),
			HTMLLimit:         envInt("ORACLE_HTML_LIMIT", 50000),
			Timeout:           envDuration("ORACLE_TIMEOUT", 60*time.Second),
			RequestsPerMinute: envInt("ORACLE_RPM", 60),
			TokensPerHour:     envInt("ORACLE_TPH", 90000),
		},
		OpenAI: OpenAI{
			KeyAI:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:     env("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: envInt("OPENAI_MAX_TOKENS", 1000),
		},
		Gemini: Gemini{
			Key:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model: env("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Browser: Browser{
			Engine:          strings.ToLower(env("BROWSER_ENGINE", EngineChromium)),
			Display:         os.Getenv("DISPLAY"),
			Headless:        envBool("PW_HEADLESS", true),
			Timeout:         envDuration("BROWSER_TIMEOUT", 30*time.Second),
			NavigateTimeout: envDuration("NAVIGATE_TIMEOUT", 60*time.Second),
			LoadWait:        envDuration("LOAD_WAIT", 3*time.Second),
			SnapshotWait:    envDuration("SNAPSHOT_WAIT", 2*time.Second),
			ClickTimeout:    envDuration("CLICK_TIMEOUT", 5*time.Second),
			StrategyBudget:  envDuration("STRATEGY_BUDGET", 10*time.Second),
			ClickPause:      envDuration("CLICK_PAUSE", time.Second),
		},
		Popups: Popups{
			MaxAttempts:   envInt("MAX_POPUP_RETRIES", 3),
			MinConfidence: envFloat("POPUP_MIN_CONFIDENCE", 0.3),
			ClickSettle:   envDuration("POPUP_SETTLE", 5*time.Second),
			FinalSettle:   envDuration("FINAL_SETTLE", 3*time.Second),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет параметры, общие для всех команд. Ключ оракула
// проверяет ValidateOracle: команды истории работают и без него.
func (c *Cfg) Validate() error {
	switch c.Oracle.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("неизвестный ORACLE_PROVIDER: %q", c.Oracle.Provider)
	}

	switch c.Browser.Engine {
	case EngineChromium, EngineFirefox:
	default:
		return fmt.Errorf("неизвестный BROWSER_ENGINE: %q", c.Browser.Engine)
	}

	if c.Popups.MaxAttempts < 1 {
		return fmt.Errorf("MAX_POPUP_RETRIES должен быть >= 1, получено %d", c.Popups.MaxAttempts)
	}
	if c.Popups.MinConfidence < 0 || c.Popups.MinConfidence > 1 {
		return fmt.Errorf("POPUP_MIN_CONFIDENCE должен быть в диапазоне [0,1], получено %v", c.Popups.MinConfidence)
	}
	if c.App.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_CONCURRENT_EXTRACTIONS должен быть >= 1, получено %d", c.App.MaxConcurrent)
	}

	return nil
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// envDuration принимает как "5s"/"500ms", так и целое число секунд.
func envDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}

// ValidateOracle требует ключ выбранного провайдера. Вызывается для команд,
// которые извлекают статьи: детектор попапов без ключа бесполезен.
func (c *Cfg) ValidateOracle() error {
	switch c.Oracle.Provider {
	case ProviderOpenAI:
		if c.OpenAI.KeyAI == "" {
			return fmt.Errorf("OPENAI_API_KEY обязателен и не может быть пустым (https://platform.openai.com/api-keys)")
		}
	case ProviderGemini:
		if c.Gemini.Key == "" {
			return fmt.Errorf("GEMINI_API_KEY обязателен при ORACLE_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("неизвестный ORACLE_PROVIDER: %q", c.Oracle.Provider)
	}
	return nil
}
