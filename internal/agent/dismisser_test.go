package agent_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"browsir/internal/agent"
	"browsir/internal/browser"
	"browsir/internal/llm"
	"browsir/internal/logger"
	"browsir/internal/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bannerHTML = `<html><body><div id="cmp">We use cookies <button id="accept">Accept</button></div><main><p>Article text.</p></main></body></html>`
	cleanHTML  = `<html><body><main><p>Article text.</p></main></body></html>`
)

// scriptedOracle answers with the reports in order and repeats the last one.
type scriptedOracle struct {
	reports []*llm.PopupReport
	errs    []error
	seen    []string
}

func (o *scriptedOracle) mock() *mock.Oracle {
	return &mock.Oracle{
		DetectPopupsFn: func(_ context.Context, html string) (*llm.PopupReport, error) {
			i := len(o.seen)
			o.seen = append(o.seen, html)
			if i < len(o.errs) && o.errs[i] != nil {
				return nil, o.errs[i]
			}
			if len(o.reports) == 0 {
				return &llm.PopupReport{}, nil
			}
			if i >= len(o.reports) {
				i = len(o.reports) - 1
			}
			return o.reports[i], nil
		},
		PingFn: func(context.Context) error { return nil },
	}
}

func popups(candidates ...llm.PopupCandidate) *llm.PopupReport {
	return &llm.PopupReport{PopupsFound: true, Candidates: candidates}
}

func candidate(selector string, confidence float64) llm.PopupCandidate {
	return llm.PopupCandidate{Kind: "button", Selector: selector, Confidence: confidence}
}

type clickLog struct {
	selectors []string
	succeed   func(selector string) bool
}

func (c *clickLog) mock() *mock.Clicker {
	return &mock.Clicker{
		ClickFn: func(_ context.Context, _ browser.Page, selector, _ string) bool {
			c.selectors = append(c.selectors, selector)
			if c.succeed == nil {
				return true
			}
			return c.succeed(selector)
		},
	}
}

// snapshotPage returns a page whose snapshots come from html().
func snapshotPage(html func() string) *mock.Page {
	return &mock.Page{
		SnapshotFn: func(context.Context) (browser.PageSnapshot, error) {
			return browser.PageSnapshot{HTML: html(), URL: "https://example.com/a"}, nil
		},
		CloseFn: func() error { return nil },
	}
}

type sleeps struct {
	calls []time.Duration
}

func (s *sleeps) Sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func newDismisser(oracle llm.PopupOracle, clicker agent.Clicker, breaker *agent.CircuitBreaker, sleep browser.SleepFunc) *agent.Dismisser {
	return agent.NewDismisser(oracle, clicker, breaker, agent.DismisserConfig{
		MaxAttempts:   3,
		MinConfidence: 0.3,
		ClickSettle:   5 * time.Second,
		FinalSettle:   3 * time.Second,
		Sleep:         sleep,
	}, logger.Nop())
}

func newRun(page browser.Page, html string) *agent.Run {
	run := agent.NewRun("https://example.com/a", 3)
	run.Page = page
	run.Snapshot = browser.PageSnapshot{HTML: html, URL: "https://example.com/a"}
	return run
}

func TestDismisser_NoPopups(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{{PopupsFound: false}}}
	clicks := &clickLog{}
	sl := &sleeps{}
	run := newRun(snapshotPage(func() string { return cleanHTML }), cleanHTML)

	final := newDismisser(oracle.mock(), clicks.mock(), nil, sl.Sleep).Run(context.Background(), run)

	assert.Equal(t, cleanHTML, final.HTML)
	assert.Len(t, oracle.seen, 1)
	assert.Empty(t, clicks.selectors)
	assert.Equal(t, 0, run.Clicks())
	assert.Equal(t, agent.StateCleanExit, run.State())
	assert.Equal(t, []time.Duration{3 * time.Second}, sl.calls)
}

func TestDismisser_OracleCalledAtMostMaxAttempts(t *testing.T) {
	t.Parallel()

	// the popup never goes away: every attempt clicks and the loop runs out
	oracle := &scriptedOracle{reports: []*llm.PopupReport{popups(candidate("#accept", 0.9))}}
	clicks := &clickLog{}
	sl := &sleeps{}
	run := newRun(snapshotPage(func() string { return bannerHTML }), bannerHTML)

	newDismisser(oracle.mock(), clicks.mock(), nil, sl.Sleep).Run(context.Background(), run)

	assert.Len(t, oracle.seen, 3)
	assert.Equal(t, 3, run.Clicks())
	assert.Equal(t, 3, run.Attempt)
	assert.Equal(t, agent.StateExhausted, run.State())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second, 3 * time.Second}, sl.calls)
}

func TestDismisser_LowConfidenceNeverClicked(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{popups(
		candidate("#maybe", 0.3),
		candidate("#unlikely", 0.1),
		candidate("", 0.99),
		candidate("   ", 0.99),
	)}}
	clicks := &clickLog{}
	run := newRun(snapshotPage(func() string { return bannerHTML }), bannerHTML)

	newDismisser(oracle.mock(), clicks.mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Empty(t, clicks.selectors)
	assert.Len(t, oracle.seen, 1)
	assert.Equal(t, agent.StateStalled, run.State())
}

func TestDismisser_AtMostOneClickPerAttempt(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{
		popups(candidate("#first", 0.8), candidate("#second", 0.9)),
		{PopupsFound: false},
	}}
	clicks := &clickLog{}
	run := newRun(snapshotPage(func() string { return cleanHTML }), bannerHTML)

	newDismisser(oracle.mock(), clicks.mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Equal(t, []string{"#first"}, clicks.selectors)
	assert.Equal(t, 1, run.Clicks())
	assert.Equal(t, agent.StateCleanExit, run.State())
}

func TestDismisser_FallsThroughFailedCandidates(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{
		popups(candidate("#gone", 0.9), candidate("#low", 0.2), candidate("#works", 0.5)),
		{PopupsFound: false},
	}}
	clicks := &clickLog{succeed: func(selector string) bool { return selector == "#works" }}
	run := newRun(snapshotPage(func() string { return cleanHTML }), bannerHTML)

	newDismisser(oracle.mock(), clicks.mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Equal(t, []string{"#gone", "#works"}, clicks.selectors)
	assert.Equal(t, 1, run.Clicks())
}

func TestDismisser_AllClicksFailStalls(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{popups(candidate("#a", 0.9), candidate("#b", 0.9))}}
	clicks := &clickLog{succeed: func(string) bool { return false }}
	run := newRun(snapshotPage(func() string { return bannerHTML }), bannerHTML)

	newDismisser(oracle.mock(), clicks.mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Equal(t, []string{"#a", "#b"}, clicks.selectors)
	assert.Len(t, oracle.seen, 1)
	assert.Equal(t, agent.StateStalled, run.State())
}

func TestDismisser_OracleErrorIsCleanExit(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{errs: []error{errors.New("provider down")}}
	clicks := &clickLog{}
	run := newRun(snapshotPage(func() string { return bannerHTML }), bannerHTML)

	final := newDismisser(oracle.mock(), clicks.mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Equal(t, bannerHTML, final.HTML)
	assert.Empty(t, clicks.selectors)
	assert.Equal(t, agent.StateCleanExit, run.State())
}

func TestDismisser_OpenCircuitSkipsOracle(t *testing.T) {
	t.Parallel()

	breaker := agent.NewCircuitBreaker(1, time.Hour)
	_ = breaker.Call(context.Background(), func() error { return errors.New("boom") })
	require.Equal(t, agent.CircuitOpen, breaker.State())

	oracle := &scriptedOracle{reports: []*llm.PopupReport{popups(candidate("#accept", 0.9))}}
	clicks := &clickLog{}
	run := newRun(snapshotPage(func() string { return bannerHTML }), bannerHTML)

	newDismisser(oracle.mock(), clicks.mock(), breaker, mock.NoSleep).Run(context.Background(), run)

	assert.Empty(t, oracle.seen)
	assert.Empty(t, clicks.selectors)
	assert.Equal(t, agent.StateCleanExit, run.State())
}

func TestDismisser_OracleSeesRefreshedSnapshot(t *testing.T) {
	t.Parallel()

	version := 0
	page := snapshotPage(func() string { return fmt.Sprintf("<html><body>v%d</body></html>", version) })
	oracle := &scriptedOracle{reports: []*llm.PopupReport{
		popups(candidate("#accept", 0.9)),
		{PopupsFound: false},
	}}
	clicks := &mock.Clicker{
		ClickFn: func(context.Context, browser.Page, string, string) bool {
			version++
			return true
		},
	}
	run := newRun(page, "<html><body>initial</body></html>")

	final := newDismisser(oracle.mock(), clicks, nil, mock.NoSleep).Run(context.Background(), run)

	require.Len(t, oracle.seen, 2)
	assert.Equal(t, "<html><body>initial</body></html>", oracle.seen[0])
	assert.Equal(t, "<html><body>v1</body></html>", oracle.seen[1])
	assert.Equal(t, "<html><body>v1</body></html>", final.HTML)
}

func TestDismisser_KeepsLastSnapshotOnRefreshError(t *testing.T) {
	t.Parallel()

	page := &mock.Page{
		SnapshotFn: func(context.Context) (browser.PageSnapshot, error) {
			return browser.PageSnapshot{}, errors.New("target closed")
		},
	}
	oracle := &scriptedOracle{reports: []*llm.PopupReport{{PopupsFound: false}}}
	run := newRun(page, bannerHTML)

	final := newDismisser(oracle.mock(), (&clickLog{}).mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Equal(t, bannerHTML, final.HTML)
}

func TestDismisser_PassesRunID(t *testing.T) {
	t.Parallel()

	var got string
	oracle := &mock.Oracle{
		DetectPopupsFn: func(ctx context.Context, _ string) (*llm.PopupReport, error) {
			got = llm.RunIDFrom(ctx)
			return &llm.PopupReport{}, nil
		},
	}
	run := newRun(snapshotPage(func() string { return cleanHTML }), cleanHTML)

	newDismisser(oracle, (&clickLog{}).mock(), nil, mock.NoSleep).Run(context.Background(), run)

	assert.Equal(t, run.ID.String(), got)
}

func TestDismisser_ZeroConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{
		popups(candidate("#low", 0.1), candidate("#edge", 0.3), candidate("#accept", 0.9)),
		{PopupsFound: false},
	}}
	clicks := &clickLog{}
	sl := &sleeps{}
	run := newRun(snapshotPage(func() string { return cleanHTML }), bannerHTML)

	d := agent.NewDismisser(oracle.mock(), clicks.mock(), nil, agent.DismisserConfig{Sleep: sl.Sleep}, logger.Nop())
	d.Run(context.Background(), run)

	assert.Equal(t, []string{"#accept"}, clicks.selectors)
	assert.Equal(t, []time.Duration{5 * time.Second, 3 * time.Second}, sl.calls)
	assert.Equal(t, agent.StateCleanExit, run.State())
}

func TestDismisser_AnyConfidence(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{reports: []*llm.PopupReport{
		popups(candidate("#zero", 0), candidate("#low", 0.1)),
		{PopupsFound: false},
	}}
	clicks := &clickLog{}
	run := newRun(snapshotPage(func() string { return cleanHTML }), bannerHTML)

	d := agent.NewDismisser(oracle.mock(), clicks.mock(), nil, agent.DismisserConfig{
		MinConfidence: agent.AnyConfidence,
		Sleep:         mock.NoSleep,
	}, logger.Nop())
	d.Run(context.Background(), run)

	assert.Equal(t, []string{"#low"}, clicks.selectors)
}
