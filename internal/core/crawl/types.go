package crawl

import (
	"errors"
	"time"
)

// PropertyRecord is the unit of output: one normalized listing. All fields
// are best-effort strings; a field that could not be determined is "".
// Records are never mutated after emission.
type PropertyRecord struct {
	Building string `json:"building"`
	Price    string `json:"price"`
	Area     string `json:"area"`
	Floor    string `json:"floor"`
}

// RawItem is one candidate listing lifted out of the session's UI state or a
// JSON payload fragment. Transient: valid only for one extraction pass.
type RawItem struct {
	ID        string
	TradeType string
	Text      string
	Payload   map[string]interface{}
}

// Callbacks are the orchestrator-to-caller contract. Nil members are skipped.
type Callbacks struct {
	// OnProgress is invoked at coarse milestones and at least once per item.
	// The reported percentage never decreases.
	OnProgress func(current, total int, message string)
	// OnLog carries the operational trace; never used for control decisions.
	OnLog func(message string)
	// OnProperty fires exactly once per accepted, deduplicated item, in
	// discovery order.
	OnProperty func(record PropertyRecord)
}

// Options is the immutable configuration value passed once at orchestrator
// construction.
type Options struct {
	// TargetURL is the complex page to crawl. Query parameters are stripped;
	// the crawl operates on the canonical resource identity.
	TargetURL string

	// MinWait/MaxWait bound the randomized delay between per-item network
	// interactions.
	MinWait time.Duration
	MaxWait time.Duration

	Headless  bool
	Callbacks Callbacks

	// WarmupURL and APIURL default to the known site endpoints when empty.
	WarmupURL string
	APIURL    string
	// DetailURLPrefix is joined with an article id for follow-up lookups.
	DetailURLPrefix string
}

// Failure taxonomy. Bootstrap-stage failures are terminal for the crawl;
// per-item failures are retried or skipped.
var (
	ErrNavigationFailed = errors.New("navigation failed")
	ErrTargetNotFound   = errors.New("target resource not found")
	ErrAuthRequired     = errors.New("authentication required")
	ErrRateLimited      = errors.New("rate limited")
	ErrDecodeFailed     = errors.New("response body not decodable")
	ErrNoIdentifier     = errors.New("listing item has no identifier")
	ErrNoFirstCapture   = errors.New("no listing response captured")

	// ErrCancelled marks a cooperative stop. It is a normal terminal state:
	// partial results accompany it.
	ErrCancelled = errors.New("crawl cancelled")
)

const (
	defaultWarmupURL       = "https://new.land.naver.com"
	defaultAPIURL          = "https://fin.land.naver.com/front-api/v1/complex/article/list"
	defaultDetailURLPrefix = "https://new.land.naver.com/api/articles/"
)
