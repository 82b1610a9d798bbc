// Package mock содержит ручные моки интерфейсов browsir для тестов.
package mock

import (
	"context"
	"time"

	"browsir/internal/browser"
)

var (
	_ browser.Browser = (*Browser)(nil)
	_ browser.Page    = (*Page)(nil)
	_ browser.Frame   = (*Frame)(nil)
)

// Browser is a mock implementation of browser.Browser.
type Browser struct {
	LaunchFn  func(ctx context.Context) error
	NewPageFn func(ctx context.Context) (browser.Page, error)
	CloseFn   func() error
}

func (b *Browser) Launch(ctx context.Context) error {
	return b.LaunchFn(ctx)
}

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	return b.NewPageFn(ctx)
}

func (b *Browser) Close() error {
	return b.CloseFn()
}

// Page is a mock implementation of browser.Page.
type Page struct {
	LoadFn     func(ctx context.Context, url string) (string, error)
	SnapshotFn func(ctx context.Context) (browser.PageSnapshot, error)
	ClickFn    func(ctx context.Context, selector string, opts browser.ClickOptions) error
	ActivateFn func(ctx context.Context, selector string, timeout time.Duration) error
	FramesFn   func() []browser.Frame
	CloseFn    func() error
}

func (p *Page) Load(ctx context.Context, url string) (string, error) {
	return p.LoadFn(ctx, url)
}

func (p *Page) Snapshot(ctx context.Context) (browser.PageSnapshot, error) {
	return p.SnapshotFn(ctx)
}

func (p *Page) Click(ctx context.Context, selector string, opts browser.ClickOptions) error {
	return p.ClickFn(ctx, selector, opts)
}

func (p *Page) Activate(ctx context.Context, selector string, timeout time.Duration) error {
	return p.ActivateFn(ctx, selector, timeout)
}

func (p *Page) Frames() []browser.Frame {
	return p.FramesFn()
}

func (p *Page) Close() error {
	return p.CloseFn()
}

// Frame is a mock implementation of browser.Frame.
type Frame struct {
	NameFn  func() string
	ClickFn func(ctx context.Context, selector string, timeout time.Duration) error
}

func (f *Frame) Name() string {
	return f.NameFn()
}

func (f *Frame) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return f.ClickFn(ctx, selector, timeout)
}

// NoSleep подменяет паузы в тестах.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
