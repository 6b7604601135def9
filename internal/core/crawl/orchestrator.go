package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"estatecrawler/internal/browser"
	"estatecrawler/internal/logger"
)

// SessionFactory opens the one browsing session a crawl owns.
type SessionFactory func(ctx context.Context, headless bool) (browser.Session, error)

var complexIDRe = regexp.MustCompile(`/complexes/(\d+)`)

// Candidate selectors for listing cards; the page's class names churn, so
// several shapes are tried in order.
var listItemSelectors = []string{
	"a[href*='/articles/']",
	"[class*='item'][href*='/articles/']",
	"[class*='item_card'] a[href*='/articles/']",
}

// Orchestrator is the top-level crawl driver: bootstrap, item discovery,
// per-item extraction with dedup and pacing, and session teardown exactly
// once on every exit path.
type Orchestrator struct {
	log        *logger.Logger
	opts       Options
	newSession SessionFactory

	cancelled atomic.Bool

	// Injection points for tests.
	sleep   func(ctx context.Context, d time.Duration) error
	randF64 func() float64

	lastPercent int
}

func NewOrchestrator(opts Options, factory SessionFactory) *Orchestrator {
	if opts.WarmupURL == "" {
		opts.WarmupURL = defaultWarmupURL
	}
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.DetailURLPrefix == "" {
		opts.DetailURLPrefix = defaultDetailURLPrefix
	}
	return &Orchestrator{
		log:        logger.New("Orchestrator"),
		opts:       opts,
		newSession: factory,
		sleep:      sleepCtx,
		randF64:    rand.Float64,
	}
}

// Cancel requests a cooperative stop. In-flight operations finish; the loop
// exits at the next check point and proceeds to teardown.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
	o.trace("cancellation requested")
}

// Run executes one full crawl. On cancellation it returns the records
// accumulated so far together with ErrCancelled; bootstrap failures return
// no records.
func (o *Orchestrator) Run(ctx context.Context) ([]PropertyRecord, error) {
	entryURL := CleanURL(o.opts.TargetURL)
	o.trace("target resource: %s", entryURL)

	o.progress(0, 100, "세션 확보 중...")
	session, err := o.newSession(ctx, o.opts.Headless)
	if err != nil {
		o.progress(0, 0, "세션 확보 실패")
		return nil, fmt.Errorf("%w: open session: %v", ErrNavigationFailed, err)
	}

	alive := atomic.Bool{}
	alive.Store(true)
	var teardown sync.Once
	closeSession := func(reason string) {
		teardown.Do(func() {
			o.trace("closing session: %s", reason)
			alive.Store(false)
			if err := session.Close(); err != nil {
				o.log.LogError("session close", err)
			}
		})
	}
	defer closeSession("crawl end")

	ic := NewInterceptor(o.opts.APIURL)
	boot := newBootstrapper(o.opts.WarmupURL, entryURL, o.trace, o.sleep)
	o.progress(5, 100, "세션 확보 중...")
	if err := boot.Run(ctx, session, ic); err != nil {
		o.progress(0, 0, "세션 확보 실패")
		return nil, err
	}
	if o.stopRequested(ctx) {
		return nil, ErrCancelled
	}

	o.progress(10, 100, "매물 데이터 수집 중...")
	if err := o.sleep(ctx, 2*time.Second); err != nil {
		return nil, ErrCancelled
	}

	items := o.discoverItems(session)
	if len(items) == 0 {
		closeSession("no listing items")
		return nil, fmt.Errorf("%w: no listing items on page", ErrTargetNotFound)
	}
	o.trace("discovered %d listing items", len(items))

	retrier := NewRetrier(alive.Load)
	engine := NewEngine(o.detailFetcher(session, ic, retrier))
	tracker := NewTracker()

	var results []PropertyRecord
	total := len(items)
	for idx, item := range items {
		if o.stopRequested(ctx) {
			o.trace("stopping before item %d/%d", idx+1, total)
			return results, ErrCancelled
		}

		o.progress(10+(idx+1)*85/total, 100, fmt.Sprintf("매물 %d/%d 처리 중...", idx+1, total))

		if item.ID != "" && !tracker.Observe(item.ID) {
			o.trace("duplicate listing %s skipped", item.ID)
			continue
		}

		rec, err := engine.Extract(ctx, item)
		if err != nil {
			if errors.Is(err, ErrNoIdentifier) {
				o.trace("item %d/%d has no identifier, skipped", idx+1, total)
				continue
			}
			return results, err
		}

		results = append(results, rec)
		o.trace("[%d] 동: %s, 가격: %s, 면적: %s, 층수: %s",
			len(results), rec.Building, rec.Price, rec.Area, rec.Floor)
		if o.opts.Callbacks.OnProperty != nil {
			o.opts.Callbacks.OnProperty(rec)
		}

		if err := o.sleep(ctx, o.jitter()); err != nil {
			return results, ErrCancelled
		}
	}

	o.progress(100, 100, "크롤링 완료")
	o.trace("collected %d records", len(results))
	return results, nil
}

// discoverItems collects the listing cards currently rendered, trying each
// candidate selector until one matches.
func (o *Orchestrator) discoverItems(session browser.Session) []RawItem {
	var elements []browser.Element
	for _, sel := range listItemSelectors {
		els, err := session.QueryAll(sel)
		if err == nil && len(els) > 0 {
			elements = els
			break
		}
	}

	items := make([]RawItem, 0, len(elements))
	for _, el := range elements {
		var item RawItem
		if href, ok := el.Attr("href"); ok {
			item.ID = ArticleIDFromHref(href)
		}
		if item.ID == "" {
			if html, err := el.HTML(); err == nil {
				if parsed, err := ItemFromHTML(html); err == nil {
					item = parsed
				}
			}
		}
		if item.Text == "" {
			if text, err := el.Text(); err == nil {
				item.Text = text
			}
		}
		items = append(items, item)
	}
	return items
}

// detailFetcher builds the bounded-retry follow-up lookup used to resolve
// ambiguous floor markers. When the interceptor has flagged a rate limit,
// further lookups halt rather than fetch.
func (o *Orchestrator) detailFetcher(session browser.Session, ic *Interceptor, retrier *Retrier) DetailFetcher {
	return func(ctx context.Context, articleID, tradeType string) (map[string]interface{}, error) {
		if limited, _ := ic.RateLimited(); limited {
			return nil, ErrRateLimited
		}
		if o.stopRequested(ctx) {
			return nil, ErrCancelled
		}
		detailURL := o.opts.DetailURLPrefix + articleID
		if tradeType != "" {
			detailURL += "?tradeType=" + url.QueryEscape(tradeType)
		}
		out, err := retrier.DoBounded(ctx, detailURL, 3, func(ctx context.Context) Outcome {
			resp, err := session.Request(ctx, "GET", detailURL, map[string]string{
				"Accept": "application/json",
			}, nil)
			if err != nil {
				return Outcome{}
			}
			outcome := Outcome{Status: resp.Status, Headers: resp.Headers, Body: string(resp.Body)}
			if resp.Status == 200 {
				var data map[string]interface{}
				if jerr := json.Unmarshal(resp.Body, &data); jerr == nil {
					outcome.Data = data
				}
			}
			return outcome
		})
		if err != nil {
			return nil, err
		}
		if out.Data == nil {
			return nil, fmt.Errorf("%w: detail %s status %d", ErrDecodeFailed, detailURL, out.Status)
		}
		return out.Data, nil
	}
}

func (o *Orchestrator) stopRequested(ctx context.Context) bool {
	return o.cancelled.Load() || ctx.Err() != nil
}

func (o *Orchestrator) jitter() time.Duration {
	min, max := o.opts.MinWait, o.opts.MaxWait
	if max <= min {
		return min
	}
	return min + time.Duration(o.randF64()*float64(max-min))
}

// progress reports a monotonically non-decreasing percentage. The (0, 0)
// failure report passes through untouched.
func (o *Orchestrator) progress(current, total int, message string) {
	if total > 0 {
		if current < o.lastPercent {
			current = o.lastPercent
		}
		o.lastPercent = current
	}
	if o.opts.Callbacks.OnProgress != nil {
		o.opts.Callbacks.OnProgress(current, total, message)
	}
}

func (o *Orchestrator) trace(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	o.log.LogInfo(msg)
	if o.opts.Callbacks.OnLog != nil {
		o.opts.Callbacks.OnLog(msg)
	}
}

// CleanURL strips query parameters and fragments: the crawl operates on the
// canonical resource identity, not transient filter state.
func CleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// ComplexID extracts the complex identifier from a target URL.
func ComplexID(raw string) string {
	if m := complexIDRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
