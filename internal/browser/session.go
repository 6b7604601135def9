package browser

import (
	"context"
	"time"
)

// Response is a passive view of one network response observed in the session.
type Response struct {
	URL     string
	Status  int
	Headers map[string]string
	Body    []byte
}

// Element is a handle to one DOM element in the current page.
type Element interface {
	Text() (string, error)
	HTML() (string, error)
	Attr(name string) (string, bool)
	Click() error
}

// NavigateOptions control the readiness condition and timeout of a navigation.
type NavigateOptions struct {
	// WaitUntil is one of "domcontentloaded", "load", "networkidle".
	WaitUntil string
	Timeout   time.Duration
}

// Session is the capability surface the crawl engine requires from a live,
// cookie-carrying browsing session. Exactly one session is open per crawl;
// all navigation and DOM access is single-threaded against it.
//
// Query and QueryAll are optional-result operations: a selector that matches
// nothing returns (nil, nil) / (empty, nil), never an error. The caller
// decides whether absence is fatal.
type Session interface {
	// Navigate drives the page to url and returns the main response status.
	// A navigation that yields no response (same-document) reports 200.
	Navigate(ctx context.Context, url string, opts NavigateOptions) (int, error)

	URL() string
	Title() (string, error)
	BodyText() (string, error)

	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)

	// OnResponse registers a passive hook invoked for every network response
	// flowing through the session. Hooks must not block page execution.
	OnResponse(fn func(Response))

	// Request issues an in-session HTTP request carrying the session's
	// cookie jar plus the given headers. body may be nil for GET.
	Request(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error)

	// Close releases the session and its resources. Idempotent.
	Close() error
}
