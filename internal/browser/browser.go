package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrNotLaunched возвращается, если страница запрошена до запуска браузера.
var ErrNotLaunched = errors.New("браузер не запущен")

func New(cfg Config) *PlaywrightBrowser {
	// Установка дефолтных таймаутов
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second // Navigate обычно дольше
	}
	if cfg.SnapshotWait <= 0 {
		cfg.SnapshotWait = 2 * time.Second
	}
	if cfg.SnapshotWait > cfg.Timeout {
		cfg.SnapshotWait = cfg.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Engine == "" {
		cfg.Engine = "chromium"
	}

	return &PlaywrightBrowser{
		cfg: cfg,
	}
}

// Config возвращает конфигурацию с примененными дефолтами.
func (b *PlaywrightBrowser) Config() Config {
	return b.cfg
}

func (b *PlaywrightBrowser) getBrowserArgs() []string {
	if b.cfg.Engine == "firefox" {
		return nil
	}
	return []string{
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
	}
}

func (b *PlaywrightBrowser) getEnvMap() map[string]string {
	if b.cfg.Display != "" {
		return map[string]string{
			"DISPLAY": b.cfg.Display,
		}
	}
	return nil
}

func (b *PlaywrightBrowser) browserType(pw *playwright.Playwright) playwright.BrowserType {
	if b.cfg.Engine == "firefox" {
		return pw.Firefox
	}
	return pw.Chromium
}

// Launch запускает драйвер playwright и процесс браузера. Повторный вызов
// при живом браузере ничего не делает.
func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil && b.browser.IsConnected() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return fmt.Errorf("запуск драйвера playwright: %w", err)
		}
		b.pw = pw
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.cfg.Headless),
		Args:     b.getBrowserArgs(),
	}
	if env := b.getEnvMap(); env != nil {
		opts.Env = env
	}

	browser, err := b.browserType(b.pw).Launch(opts)
	if err != nil {
		return fmt.Errorf("запуск %s (выполните: playwright install %s): %w", b.cfg.Engine, b.cfg.Engine, err)
	}
	b.browser = browser

	return nil
}

// NewPage создает изолированный контекст браузера и страницу для одного запроса.
// Если процесс браузера упал, он перезапускается.
func (b *PlaywrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := b.Launch(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	browser := b.browser
	b.mu.Unlock()
	if browser == nil {
		return nil, ErrNotLaunched
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(b.cfg.UserAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return nil, fmt.Errorf("создание контекста браузера: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("создание страницы: %w", err)
	}
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))

	return &playwrightPage{
		page:    page,
		context: bctx,
		cfg:     b.cfg,
	}, nil
}

func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
		b.browser = nil
	}
	if b.pw != nil {
		err := b.pw.Stop()
		b.pw = nil
		return err
	}
	return nil
}

// playwrightPage реализует Page поверх страницы playwright.
type playwrightPage struct {
	page    playwright.Page
	context playwright.BrowserContext
	cfg     Config
}

// Load открывает url, дожидается networkidle и дает странице LoadWait
// на появление отложенных попапов.
func (p *playwrightPage) Load(ctx context.Context, url string) (string, error) {
	// Создаем context с timeout для navigate операции
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigateTimeout)
	defer cancel()

	// Channel для получения результата
	errChan := make(chan error, 1)
	go func() {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(float64(p.cfg.NavigateTimeout.Milliseconds())),
		})
		errChan <- err
	}()

	// Ждем результат или timeout
	select {
	case <-navCtx.Done():
		return "", fmt.Errorf("navigate timeout after %v: %w", p.cfg.NavigateTimeout, navCtx.Err())
	case err := <-errChan:
		if err != nil {
			return "", err
		}
	}

	if err := Sleep(ctx, p.cfg.LoadWait); err != nil {
		return "", err
	}

	return p.page.Content()
}

func (p *playwrightPage) Click(ctx context.Context, selector string, opts ClickOptions) error {
	timeout, err := boundedTimeout(ctx, opts.Timeout)
	if err != nil {
		return err
	}

	clickOpts := playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}
	if opts.Force {
		clickOpts.Force = playwright.Bool(true)
	}

	return p.page.Click(selector, clickOpts)
}

// Activate вызывает el.click() у элемента, минуя имитацию указателя.
func (p *playwrightPage) Activate(ctx context.Context, selector string, timeout time.Duration) error {
	if _, err := boundedTimeout(ctx, timeout); err != nil {
		return err
	}

	element, err := p.page.QuerySelector(selector)
	if err != nil {
		return err
	}
	if element == nil {
		return fmt.Errorf("элемент с селектором %s не найден", selector)
	}
	defer element.Dispose()

	_, err = element.Evaluate("el => el.click()")
	return err
}

func (p *playwrightPage) Frames() []Frame {
	frames := p.page.Frames()
	result := make([]Frame, 0, len(frames))
	for _, f := range frames {
		result = append(result, &playwrightFrame{frame: f})
	}
	return result
}

// Close закрывает контекст браузера целиком: страницу, куки и хранилище запроса.
func (p *playwrightPage) Close() error {
	if p.context != nil {
		return p.context.Close()
	}
	return p.page.Close()
}

type playwrightFrame struct {
	frame playwright.Frame
}

func (f *playwrightFrame) Name() string {
	if name := f.frame.Name(); name != "" {
		return name
	}
	return f.frame.URL()
}

func (f *playwrightFrame) Click(ctx context.Context, selector string, timeout time.Duration) error {
	timeout, err := boundedTimeout(ctx, timeout)
	if err != nil {
		return err
	}

	element, err := f.frame.QuerySelector(selector)
	if err != nil {
		return err
	}
	if element == nil {
		return fmt.Errorf("элемент с селектором %s не найден во фрейме", selector)
	}
	defer element.Dispose()

	return element.Click(playwright.ElementHandleClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// boundedTimeout ограничивает таймаут операции оставшимся временем контекста.
// playwright не принимает context, поэтому дедлайн передается через Timeout.
func boundedTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout || timeout == 0 {
			timeout = left
		}
	}
	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}
	return timeout, nil
}
