package browser

import (
	"context"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser управляет процессом браузера. Один процесс обслуживает все запросы,
// каждый запрос получает собственную изолированную страницу через NewPage.
type Browser interface {
	Launch(ctx context.Context) error
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page принадлежит ровно одному запросу на извлечение.
// Close обязан вызываться на любом пути выхода.
type Page interface {
	Load(ctx context.Context, url string) (string, error)
	Snapshot(ctx context.Context) (PageSnapshot, error)
	Click(ctx context.Context, selector string, opts ClickOptions) error
	Activate(ctx context.Context, selector string, timeout time.Duration) error
	Frames() []Frame
	Close() error
}

// Frame представляет встроенный фрейм страницы (в том числе главный).
type Frame interface {
	Name() string
	Click(ctx context.Context, selector string, timeout time.Duration) error
}

// ClickOptions задает параметры имитации клика указателем.
type ClickOptions struct {
	Timeout time.Duration
	Force   bool // пропустить проверки видимости и actionability
}

// PageSnapshot хранит сериализацию DOM в один момент времени. Значение неизменяемо:
// после любого взаимодействия снимок заменяется целиком.
type PageSnapshot struct {
	HTML string
	URL  string
}

// Empty сообщает, что снимок еще не получен.
func (s PageSnapshot) Empty() bool {
	return s.HTML == ""
}

type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     Config
	mu      sync.Mutex
}

type Config struct {
	Engine          string
	Headless        bool
	Display         string
	UserAgent       string
	Timeout         time.Duration
	NavigateTimeout time.Duration
	LoadWait        time.Duration
	SnapshotWait    time.Duration // сколько снимок ждет состояния load после клика
}
