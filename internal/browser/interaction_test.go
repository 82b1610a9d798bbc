package browser_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"browsir/internal/browser"
	"browsir/internal/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errNotFound = errors.New("element not found")

// failingPage returns a page where every driver call fails.
func failingPage() *mock.Page {
	return &mock.Page{
		ClickFn: func(context.Context, string, browser.ClickOptions) error {
			return errNotFound
		},
		ActivateFn: func(context.Context, string, time.Duration) error {
			return errNotFound
		},
		FramesFn: func() []browser.Frame {
			return nil
		},
	}
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func newInteractor(sleep browser.SleepFunc) *browser.Interactor {
	return browser.NewInteractor(browser.InteractorConfig{
		ClickTimeout:   5 * time.Second,
		StrategyBudget: 10 * time.Second,
		Pause:          time.Second,
		Sleep:          sleep,
	}, zap.NewNop())
}

func TestInteractor_DirectClick(t *testing.T) {
	t.Parallel()

	sleeps := &sleepRecorder{}
	page := failingPage()
	var gotOpts browser.ClickOptions
	page.ClickFn = func(_ context.Context, selector string, opts browser.ClickOptions) error {
		assert.Equal(t, "#accept", selector)
		gotOpts = opts
		return nil
	}

	outcome := newInteractor(sleeps.Sleep).Interact(context.Background(), page, browser.Target{Selector: "#accept"})

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, browser.StrategyDirect, outcome.Strategy)
	assert.Equal(t, 5*time.Second, gotOpts.Timeout)
	assert.False(t, gotOpts.Force)
	assert.Equal(t, []time.Duration{time.Second}, sleeps.calls)
}

func TestInteractor_TextFallback(t *testing.T) {
	t.Parallel()

	var clicked []string
	page := failingPage()
	page.ClickFn = func(_ context.Context, selector string, _ browser.ClickOptions) error {
		clicked = append(clicked, selector)
		if selector == ":has-text('Accept all')" {
			return nil
		}
		return errNotFound
	}

	outcome := newInteractor(mock.NoSleep).Interact(context.Background(), page, browser.Target{
		Selector:   ".cmp-accept",
		ButtonText: "Accept all",
	})

	require.True(t, outcome.Succeeded)
	assert.Equal(t, browser.StrategyText, outcome.Strategy)
	assert.Equal(t, []string{
		".cmp-accept",
		"button:has-text('Accept all')",
		":has-text('Accept all')",
	}, clicked)
}

func TestInteractor_SkipsTextWithoutButtonText(t *testing.T) {
	t.Parallel()

	var calls []browser.ClickOptions
	page := failingPage()
	page.ClickFn = func(_ context.Context, selector string, opts browser.ClickOptions) error {
		assert.Equal(t, "#consent", selector)
		calls = append(calls, opts)
		if opts.Force {
			return nil
		}
		return errNotFound
	}

	outcome := newInteractor(mock.NoSleep).Interact(context.Background(), page, browser.Target{Selector: "#consent"})

	require.True(t, outcome.Succeeded)
	assert.Equal(t, browser.StrategyForce, outcome.Strategy)
	require.Len(t, calls, 2)
	assert.False(t, calls[0].Force)
	assert.True(t, calls[1].Force)
}

func TestInteractor_Activate(t *testing.T) {
	t.Parallel()

	page := failingPage()
	page.ActivateFn = func(_ context.Context, selector string, timeout time.Duration) error {
		assert.Equal(t, "#consent", selector)
		assert.Equal(t, 5*time.Second, timeout)
		return nil
	}

	outcome := newInteractor(mock.NoSleep).Interact(context.Background(), page, browser.Target{Selector: "#consent"})

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, browser.StrategyActivate, outcome.Strategy)
}

func TestInteractor_Frames(t *testing.T) {
	t.Parallel()

	var tried []string
	frame := func(name string, err error) browser.Frame {
		return &mock.Frame{
			NameFn: func() string { return name },
			ClickFn: func(_ context.Context, selector string, _ time.Duration) error {
				assert.Equal(t, "#sp-accept", selector)
				tried = append(tried, name)
				return err
			},
		}
	}

	page := failingPage()
	page.FramesFn = func() []browser.Frame {
		return []browser.Frame{
			frame("main", errNotFound),
			frame("sp_message_iframe", nil),
			frame("never", nil),
		}
	}

	outcome := newInteractor(mock.NoSleep).Interact(context.Background(), page, browser.Target{Selector: "#sp-accept"})

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, browser.StrategyFrames, outcome.Strategy)
	assert.Equal(t, []string{"main", "sp_message_iframe"}, tried)
}

func TestInteractor_AllStrategiesFail(t *testing.T) {
	t.Parallel()

	sleeps := &sleepRecorder{}

	outcome := newInteractor(sleeps.Sleep).Interact(context.Background(), failingPage(), browser.Target{
		Selector:   "#missing",
		ButtonText: "Accept",
	})

	assert.False(t, outcome.Succeeded)
	assert.Empty(t, outcome.Strategy)
	assert.Empty(t, sleeps.calls)
}

func TestInteractor_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	page := failingPage()
	page.ClickFn = func(context.Context, string, browser.ClickOptions) error {
		panic("driver crashed")
	}
	page.ActivateFn = func(context.Context, string, time.Duration) error {
		return nil
	}

	var outcome browser.Outcome
	require.NotPanics(t, func() {
		outcome = newInteractor(mock.NoSleep).Interact(context.Background(), page, browser.Target{Selector: "#a"})
	})

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, browser.StrategyActivate, outcome.Strategy)
}

func TestInteractor_RejectsURLSelector(t *testing.T) {
	t.Parallel()

	t.Run("falls back to text", func(t *testing.T) {
		t.Parallel()

		var clicked []string
		page := failingPage()
		page.ClickFn = func(_ context.Context, selector string, _ browser.ClickOptions) error {
			clicked = append(clicked, selector)
			return nil
		}
		page.ActivateFn = func(context.Context, string, time.Duration) error {
			t.Fatal("activate must not be called with a URL selector")
			return nil
		}

		outcome := newInteractor(mock.NoSleep).Interact(context.Background(), page, browser.Target{
			Selector:   "https://example.com/consent",
			ButtonText: "OK",
		})

		assert.True(t, outcome.Succeeded)
		assert.Equal(t, browser.StrategyText, outcome.Strategy)
		assert.Equal(t, []string{"button:has-text('OK')"}, clicked)
	})

	t.Run("without text nothing is tried", func(t *testing.T) {
		t.Parallel()

		page := &mock.Page{}

		ok := newInteractor(mock.NoSleep).Click(context.Background(), page, "https://example.com/consent", "")

		assert.False(t, ok)
	})
}

func TestInteractor_NormalizesSelector(t *testing.T) {
	t.Parallel()

	page := failingPage()
	page.ClickFn = func(_ context.Context, selector string, _ browser.ClickOptions) error {
		assert.Equal(t, "button:has-text('Accept')", selector)
		return nil
	}

	ok := newInteractor(mock.NoSleep).Click(context.Background(), page, `button:contains("Accept")`, "")

	assert.True(t, ok)
}

func TestInteractor_StrategyBudget(t *testing.T) {
	t.Parallel()

	page := failingPage()
	page.ClickFn = func(ctx context.Context, _ string, _ browser.ClickOptions) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.LessOrEqual(t, time.Until(deadline), 10*time.Second)
		return nil
	}

	assert.True(t, newInteractor(mock.NoSleep).Click(context.Background(), page, "#a", ""))
}

func TestInteractor_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := newInteractor(mock.NoSleep).Click(ctx, &mock.Page{}, "#a", "OK")

	assert.False(t, ok)
}

func TestInteractor_NilPage(t *testing.T) {
	t.Parallel()

	assert.False(t, newInteractor(mock.NoSleep).Click(context.Background(), nil, "#a", ""))
}
