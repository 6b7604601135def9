package crawl

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"estatecrawler/internal/logger"
)

// Outcome is the classified result of one network attempt. A transport-level
// failure carries Status 0.
type Outcome struct {
	Data    map[string]interface{}
	Status  int
	Headers map[string]string
	Body    string
}

// Fetch performs one attempt of a logical network operation.
type Fetch func(ctx context.Context) Outcome

// Retrier wraps a network operation with the tiered retry policy:
// auth failures and missing resources get a fixed short pause, rate limits
// honor the server's advisory wait or fall back to capped exponential
// backoff with jitter, and everything else gets the short pause. In
// unbounded mode, exceeding the retry ceiling triggers a long randomized
// cooldown and the attempt counter resets; the operation is retried until
// it succeeds or the context is cancelled.
type Retrier struct {
	log *logger.Logger

	maxRetries  int
	shortPause  time.Duration
	backoffCap  time.Duration
	cooldownMin time.Duration
	cooldownMax time.Duration

	// alive reports session liveness, logged with every failed attempt.
	alive func() bool

	// Injection points for tests.
	sleep   func(ctx context.Context, d time.Duration) error
	randF64 func() float64
}

func NewRetrier(alive func() bool) *Retrier {
	if alive == nil {
		alive = func() bool { return false }
	}
	return &Retrier{
		log:         logger.New("Retrier"),
		maxRetries:  5,
		shortPause:  2 * time.Second,
		backoffCap:  60 * time.Second,
		cooldownMin: 120 * time.Second,
		cooldownMax: 300 * time.Second,
		alive:       alive,
		sleep:       sleepCtx,
		randF64:     rand.Float64,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do retries fetch indefinitely across cooldown cycles until it succeeds or
// ctx is cancelled. Used for the main listing fetch, which must not give up.
func (r *Retrier) Do(ctx context.Context, target string, fetch Fetch) (map[string]interface{}, error) {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := fetch(ctx)
		if out.Status == 200 && out.Data != nil {
			return out.Data, nil
		}
		r.logAttempt(target, out)

		if err := r.sleep(ctx, r.delayFor(out, attempt)); err != nil {
			return nil, err
		}

		attempt++
		if attempt > r.maxRetries {
			cooldown := r.cooldownMin + time.Duration(r.randF64()*float64(r.cooldownMax-r.cooldownMin))
			r.log.LogWarnf("retry ceiling exceeded for %s, cooling down %ds", target, int(cooldown.Seconds()))
			if err := r.sleep(ctx, cooldown); err != nil {
				return nil, err
			}
			attempt = 0
		}
	}
}

// DoBounded retries fetch up to maxRetries times and then returns the last
// observed outcome. Used for non-critical follow-up lookups where an
// unresolved field is acceptable.
func (r *Retrier) DoBounded(ctx context.Context, target string, maxRetries int, fetch Fetch) (Outcome, error) {
	var out Outcome
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = fetch(ctx)
		if out.Status == 200 && out.Data != nil {
			return out, nil
		}
		r.logAttempt(target, out)
		if attempt >= maxRetries {
			return out, nil
		}
		if err := r.sleep(ctx, r.shortPause); err != nil {
			return out, err
		}
	}
}

// delayFor maps an attempt outcome to the pause before the next attempt.
func (r *Retrier) delayFor(out Outcome, attempt int) time.Duration {
	switch out.Status {
	case 401, 404:
		return r.shortPause
	case 429:
		if wait, ok := advisoryWait(out.Headers); ok {
			r.log.LogWarnf("rate limited, honoring advisory wait of %ds", int(wait.Seconds()))
			return wait
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		if backoff > r.backoffCap {
			backoff = r.backoffCap
		}
		jitter := time.Duration((0.5 + 1.5*r.randF64()) * float64(time.Second))
		r.log.LogWarnf("rate limited without advisory wait, backing off %.1fs", (backoff + jitter).Seconds())
		return backoff + jitter
	default:
		return r.shortPause
	}
}

// advisoryWait reads a Retry-After style hint. Non-numeric values fall back
// to 10 seconds rather than being ignored.
func advisoryWait(headers map[string]string) (time.Duration, bool) {
	raw, ok := headers["retry-after"]
	if !ok || raw == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 10 * time.Second, true
	}
	return time.Duration(secs * float64(time.Second)), true
}

func (r *Retrier) logAttempt(target string, out Outcome) {
	retryAfter := out.Headers["retry-after"]
	r.log.LogWarnf("request failed: url=%s status=%d retry-after=%q session_alive=%v",
		target, out.Status, retryAfter, r.alive())
}
