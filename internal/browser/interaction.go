package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Названия стратегий клика, попадают в логи и Outcome.Strategy.
const (
	StrategyDirect   = "direct"
	StrategyText     = "text"
	StrategyForce    = "force"
	StrategyActivate = "activate"
	StrategyFrames   = "frames"
)

var errNoFrameMatched = errors.New("селектор не найден ни в одном фрейме")

// Target описывает элемент для нажатия: селектор от модели и, если есть, текст кнопки.
type Target struct {
	Selector   string
	ButtonText string
}

// Outcome хранит результат попытки нажатия. Strategy заполнен только при успехе.
type Outcome struct {
	Succeeded bool
	Strategy  string
}

type InteractorConfig struct {
	ClickTimeout   time.Duration // таймаут одного вызова драйвера
	StrategyBudget time.Duration // общий бюджет одной стратегии
	Pause          time.Duration // пауза после успешного клика
	Sleep          SleepFunc
}

type strategy struct {
	name          string
	needsSelector bool
	needsText     bool
	try           func(ctx context.Context, page Page, target Target) error
}

// Interactor перебирает стратегии нажатия по порядку до первой успешной.
type Interactor struct {
	cfg        InteractorConfig
	log        *zap.Logger
	strategies []strategy
}

func NewInteractor(cfg InteractorConfig, log *zap.Logger) *Interactor {
	if cfg.ClickTimeout <= 0 {
		cfg.ClickTimeout = 5 * time.Second
	}
	if cfg.StrategyBudget <= 0 {
		cfg.StrategyBudget = 2 * cfg.ClickTimeout
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	if log == nil {
		log = zap.NewNop()
	}

	i := &Interactor{cfg: cfg, log: log}
	i.strategies = []strategy{
		{name: StrategyDirect, needsSelector: true, try: i.clickDirect},
		{name: StrategyText, needsText: true, try: i.clickByText},
		{name: StrategyForce, needsSelector: true, try: i.clickForce},
		{name: StrategyActivate, needsSelector: true, try: i.activate},
		{name: StrategyFrames, needsSelector: true, try: i.clickInFrames},
	}
	return i
}

// Click нажимает элемент и сообщает, удалось ли это хоть одной стратегией.
func (i *Interactor) Click(ctx context.Context, page Page, selector, buttonText string) bool {
	return i.Interact(ctx, page, Target{Selector: selector, ButtonText: buttonText}).Succeeded
}

// Interact никогда не паникует и не возвращает ошибку: сбой любой стратегии
// означает переход к следующей.
func (i *Interactor) Interact(ctx context.Context, page Page, target Target) Outcome {
	if page == nil {
		return Outcome{}
	}

	target = i.prepare(target)
	if target.Selector == "" && target.ButtonText == "" {
		return Outcome{}
	}

	for _, s := range i.strategies {
		if ctx.Err() != nil {
			i.log.Debug("Контекст отменен, стратегии клика прерваны", zap.Error(ctx.Err()))
			return Outcome{}
		}
		if s.needsSelector && target.Selector == "" {
			continue
		}
		if s.needsText && target.ButtonText == "" {
			continue
		}

		if err := i.attempt(ctx, s, page, target); err != nil {
			i.log.Debug("Стратегия клика не сработала",
				zap.String("strategy", s.name),
				zap.String("selector", target.Selector),
				zap.Error(err))
			continue
		}

		i.log.Info("Клик выполнен",
			zap.String("strategy", s.name),
			zap.String("selector", target.Selector),
			zap.String("button_text", target.ButtonText))
		_ = i.cfg.Sleep(ctx, i.cfg.Pause)

		return Outcome{Succeeded: true, Strategy: s.name}
	}

	return Outcome{}
}

// prepare нормализует селектор от модели. Невалидный селектор обнуляется,
// тогда остаются только стратегии по тексту.
func (i *Interactor) prepare(target Target) Target {
	if target.Selector != "" {
		normalized, changed := NormalizeSelector(target.Selector)
		if changed {
			i.log.Debug("Селектор нормализован",
				zap.String("original", target.Selector),
				zap.String("normalized", normalized))
		}
		if err := ValidateSelector(normalized); err != nil {
			i.log.Warn("Селектор отклонен", zap.String("selector", target.Selector), zap.Error(err))
			normalized = ""
		}
		target.Selector = normalized
	}
	return target
}

func (i *Interactor) attempt(ctx context.Context, s strategy, page Page, target Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в стратегии %s: %v", s.name, r)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, i.cfg.StrategyBudget)
	defer cancel()

	return s.try(sctx, page, target)
}

func (i *Interactor) clickDirect(ctx context.Context, page Page, target Target) error {
	return page.Click(ctx, target.Selector, ClickOptions{Timeout: i.cfg.ClickTimeout})
}

func (i *Interactor) clickByText(ctx context.Context, page Page, target Target) error {
	var errs []error
	for _, sel := range TextSelectors(target.ButtonText) {
		err := page.Click(ctx, sel, ClickOptions{Timeout: i.cfg.ClickTimeout})
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", sel, err))
	}
	return errors.Join(errs...)
}

func (i *Interactor) clickForce(ctx context.Context, page Page, target Target) error {
	return page.Click(ctx, target.Selector, ClickOptions{Timeout: i.cfg.ClickTimeout, Force: true})
}

func (i *Interactor) activate(ctx context.Context, page Page, target Target) error {
	return page.Activate(ctx, target.Selector, i.cfg.ClickTimeout)
}

func (i *Interactor) clickInFrames(ctx context.Context, page Page, target Target) error {
	for _, frame := range page.Frames() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := frame.Click(ctx, target.Selector, i.cfg.ClickTimeout); err != nil {
			continue
		}
		i.log.Debug("Элемент найден во фрейме", zap.String("frame", frame.Name()))
		return nil
	}
	return errNoFrameMatched
}
