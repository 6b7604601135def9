package crawl

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"estatecrawler/internal/browser"
	"estatecrawler/internal/logger"
)

// Interceptor passively observes every response flowing through a session
// and keeps the decoded bodies of those matching the listing endpoint, in
// arrival order. A 429 raises a session-wide rate-limit flag that downstream
// iteration must check before fetching more.
type Interceptor struct {
	log    *logger.Logger
	target string

	mu          sync.Mutex
	captures    []map[string]interface{}
	consumed    int
	rateLimited bool
	retryAfter  time.Duration

	arrived chan struct{}
}

func NewInterceptor(targetURL string) *Interceptor {
	return &Interceptor{
		log:     logger.New("Interceptor"),
		target:  targetURL,
		arrived: make(chan struct{}, 1),
	}
}

// Attach registers the observation hook on the session. Must be called
// before any interaction that could trigger the listing request.
func (ic *Interceptor) Attach(s browser.Session) {
	s.OnResponse(ic.handle)
}

func (ic *Interceptor) handle(r browser.Response) {
	if !strings.HasPrefix(r.URL, ic.target) {
		return
	}
	if r.Status == 429 {
		wait, _ := advisoryWait(r.Headers)
		ic.mu.Lock()
		ic.rateLimited = true
		ic.retryAfter = wait
		ic.mu.Unlock()
		ic.log.LogWarnf("listing endpoint rate limited, halting further fetches (advisory %s)", wait)
		return
	}
	if r.Status < 200 || r.Status >= 300 {
		ic.log.LogWarnf("dropping listing response: url=%s status=%d", r.URL, r.Status)
		return
	}
	var data map[string]interface{}
	if err := json.Unmarshal(r.Body, &data); err != nil {
		ic.log.LogWarnf("dropping undecodable listing response: url=%s: %v", r.URL, err)
		return
	}

	ic.mu.Lock()
	ic.captures = append(ic.captures, data)
	ic.mu.Unlock()

	select {
	case ic.arrived <- struct{}{}:
	default:
	}
}

// WaitForCapture blocks until the next unconsumed successful capture is
// available or the window elapses. Captures are handed out FIFO.
func (ic *Interceptor) WaitForCapture(ctx context.Context, window time.Duration) (map[string]interface{}, error) {
	deadline := time.NewTimer(window)
	defer deadline.Stop()
	for {
		ic.mu.Lock()
		if ic.consumed < len(ic.captures) {
			data := ic.captures[ic.consumed]
			ic.consumed++
			ic.mu.Unlock()
			return data, nil
		}
		ic.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrNoFirstCapture
		case <-ic.arrived:
		}
	}
}

// Captures returns all successful captures observed so far, oldest first.
func (ic *Interceptor) Captures() []map[string]interface{} {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	out := make([]map[string]interface{}, len(ic.captures))
	copy(out, ic.captures)
	return out
}

// RateLimited reports whether the endpoint signalled 429, and the advisory
// wait if the server supplied one.
func (ic *Interceptor) RateLimited() (bool, time.Duration) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.rateLimited, ic.retryAfter
}
