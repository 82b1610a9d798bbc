package browser

import (
	"context"
	"fmt"
)

// Snapshot снимает текущий DOM страницы. Если клик запустил переход, ждем
// событие load не дольше SnapshotWait; таймаут ожидания не ошибка.
// networkidle здесь не ждем: страницы с long-polling его не достигают.
func (p *playwrightPage) Snapshot(ctx context.Context) (PageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return PageSnapshot{}, err
	}

	_ = p.waitForLoadState(ctx, "load", p.cfg.SnapshotWait)

	html, err := p.page.Content()
	if err != nil {
		return PageSnapshot{}, fmt.Errorf("ошибка извлечения snapshot: %w", err)
	}

	return PageSnapshot{
		HTML: html,
		URL:  p.page.URL(),
	}, nil
}
