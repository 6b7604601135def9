package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estatecrawler/internal/browser"
)

// Bootstrapper drives the navigation state machine that establishes a
// usable, cookie-authenticated session and confirms the listing endpoint is
// answering:
//
//	Init -> WarmUp -> TargetEntry -> FailureCheck -> TriggerContent ->
//	ListenerAttach -> AwaitFirstCapture -> Ready
//
// Any stage can land in Failed instead; the session is left open for the
// orchestrator to tear down.
type Bootstrapper struct {
	warmupURL string
	entryURL  string

	maxNavRetries int
	captureWindow time.Duration

	// Candidate UI triggers that coax the page into issuing its internal
	// listing request. All clicks are best-effort.
	triggerSelectors []string

	trace func(format string, args ...interface{})
	sleep func(ctx context.Context, d time.Duration) error
}

func newBootstrapper(warmupURL, entryURL string, trace func(string, ...interface{}), sleep func(ctx context.Context, d time.Duration) error) *Bootstrapper {
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Bootstrapper{
		warmupURL:     warmupURL,
		entryURL:      entryURL,
		maxNavRetries: 3,
		captureWindow: 30 * time.Second,
		triggerSelectors: []string{
			"text=매물",
			"text=매매",
			"text=전세",
			"[data-testid*='tab'] >> text=매물",
			"[role='tab'] >> text=매물",
		},
		trace: trace,
		sleep: sleep,
	}
}

// Run takes the session from cold to Ready: listing endpoint confirmed
// reachable with at least one successful response captured.
func (b *Bootstrapper) Run(ctx context.Context, s browser.Session, ic *Interceptor) error {
	b.trace("bootstrap: warming up session via %s", b.warmupURL)
	status, err := b.safeNavigate(ctx, s, b.warmupURL)
	if err != nil {
		return fmt.Errorf("%w: warmup %s: %v", ErrNavigationFailed, b.warmupURL, err)
	}
	if status != 200 {
		b.trace("bootstrap: warmup answered HTTP %d, continuing", status)
	}
	if err := b.sleep(ctx, 2*time.Second); err != nil {
		return err
	}

	b.trace("bootstrap: entering target %s", b.entryURL)
	if _, err := b.safeNavigate(ctx, s, b.entryURL); err != nil {
		return fmt.Errorf("%w: target entry %s: %v", ErrNavigationFailed, b.entryURL, err)
	}
	if err := b.sleep(ctx, 1500*time.Millisecond); err != nil {
		return err
	}
	b.trace("bootstrap: landed on %s", s.URL())

	if b.isNotFoundPage(s) {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, b.entryURL)
	}

	// Listener goes on before the trigger so the induced response cannot
	// be missed.
	ic.Attach(s)
	b.triggerContent(ctx, s)

	b.trace("bootstrap: awaiting first listing response (%s window)", b.captureWindow)
	if _, err := ic.WaitForCapture(ctx, b.captureWindow); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w within %s", ErrNoFirstCapture, b.captureWindow)
	}
	b.trace("bootstrap: listing endpoint confirmed, session ready")
	return nil
}

// safeNavigate retries a navigation up to the retry ceiling, each attempt
// separated by an increasing pause, and gives up only when every attempt
// failed or landed on a not-found page.
func (b *Bootstrapper) safeNavigate(ctx context.Context, s browser.Session, url string) (int, error) {
	var (
		lastStatus int
		lastErr    error
	)
	for attempt := 1; attempt <= b.maxNavRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		status, err := s.Navigate(ctx, url, browser.NavigateOptions{
			WaitUntil: "domcontentloaded",
			Timeout:   30 * time.Second,
		})
		if err == nil {
			if serr := b.sleep(ctx, time.Second+time.Duration(attempt)*300*time.Millisecond); serr != nil {
				return 0, serr
			}
			if !b.isNotFoundPage(s) {
				return status, nil
			}
			lastStatus = status
			lastErr = fmt.Errorf("landed on not-found page (attempt %d)", attempt)
			continue
		}
		lastErr = err
		b.trace("bootstrap: navigation attempt %d/%d failed: %v", attempt, b.maxNavRetries, err)
		if serr := b.sleep(ctx, time.Second+time.Duration(attempt)*500*time.Millisecond); serr != nil {
			return 0, serr
		}
	}
	return lastStatus, lastErr
}

// isNotFoundPage inspects the landed page for resource-missing signals:
// URL pattern, page title, or body text.
func (b *Bootstrapper) isNotFoundPage(s browser.Session) bool {
	if strings.Contains(s.URL(), "/404") {
		return true
	}
	if title, err := s.Title(); err == nil {
		if strings.Contains(title, "찾을 수 없") || strings.Contains(title, "404") {
			return true
		}
	}
	if body, err := s.BodyText(); err == nil && body != "" {
		if strings.Contains(body, "찾을 수 없") || strings.Contains(body, "/404") {
			return true
		}
	}
	return false
}

// triggerContent clicks the first present candidate trigger. Finding none
// is non-fatal; the stage always proceeds.
func (b *Bootstrapper) triggerContent(ctx context.Context, s browser.Session) {
	for _, selector := range b.triggerSelectors {
		el, err := s.Query(selector)
		if err != nil || el == nil {
			continue
		}
		if err := el.Click(); err != nil {
			continue
		}
		_ = b.sleep(ctx, time.Second)
		b.trace("bootstrap: clicked listing trigger %q", selector)
		return
	}
	b.trace("bootstrap: no listing trigger found, skipping")
}
