package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"estatecrawler/internal/logger"

	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// LaunchOptions configure a fresh playwright-backed session.
type LaunchOptions struct {
	Headless  bool
	UserAgent string
	Locale    string
	Timezone  string
}

type playwrightSession struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page
	log        *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Launch starts a chromium instance and opens one page. The returned Session
// owns the whole playwright stack and tears it down on Close.
func Launch(opts LaunchOptions) (Session, error) {
	log := logger.New("Browser")

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
			"--disable-default-apps",
			"--disable-extensions",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch: %w", err)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	locale := opts.Locale
	if locale == "" {
		locale = "ko-KR"
	}
	tz := opts.Timezone
	if tz == "" {
		tz = "Asia/Seoul"
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(ua),
		Locale:     playwright.String(locale),
		TimezoneId: playwright.String(tz),
		Viewport:   &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	s := &playwrightSession{pw: pw, browser: browser, browserCtx: bctx, page: page, log: log}

	// Redirect trace mirrors what a developer sees in the network tab.
	page.OnResponse(func(r playwright.Response) {
		status := r.Status()
		if status >= 300 && status < 400 {
			location := r.Headers()["location"]
			log.LogDebugf("redirect: %s -> %s", r.URL(), location)
		}
	})

	return s, nil
}

func waitUntilState(name string) *playwright.WaitUntilState {
	switch name {
	case "load":
		return playwright.WaitUntilStateLoad
	case "networkidle":
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateDomcontentloaded
	}
}

func (s *playwrightSession) Navigate(ctx context.Context, url string, opts NavigateOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := 30000.0
	if opts.Timeout > 0 {
		timeout = float64(opts.Timeout.Milliseconds())
	}
	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntilState(opts.WaitUntil),
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		return 0, fmt.Errorf("goto %s: %w", url, err)
	}
	if resp == nil {
		return 200, nil
	}
	return resp.Status(), nil
}

func (s *playwrightSession) URL() string { return s.page.URL() }

func (s *playwrightSession) Title() (string, error) { return s.page.Title() }

func (s *playwrightSession) BodyText() (string, error) {
	text, err := s.page.Locator("body").TextContent()
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *playwrightSession) Query(selector string) (Element, error) {
	el, err := s.page.QuerySelector(selector)
	if err != nil || el == nil {
		// Absence is a legitimate outcome, not an error.
		return nil, nil
	}
	return &playwrightElement{el: el}, nil
}

func (s *playwrightSession) QueryAll(selector string) ([]Element, error) {
	els, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &playwrightElement{el: el})
	}
	return out, nil
}

func (s *playwrightSession) OnResponse(fn func(Response)) {
	s.page.OnResponse(func(r playwright.Response) {
		body, err := r.Body()
		if err != nil {
			body = nil
		}
		fn(Response{
			URL:     r.URL(),
			Status:  r.Status(),
			Headers: lowercaseHeaders(r.Headers()),
			Body:    body,
		})
	})
}

func (s *playwrightSession) Request(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	req := s.browserCtx.Request()

	var (
		resp playwright.APIResponse
		err  error
	)
	if strings.EqualFold(method, "POST") {
		resp, err = req.Post(url, playwright.APIRequestContextPostOptions{
			Headers: headers,
			Data:    string(body),
			Timeout: playwright.Float(30000),
		})
	} else {
		resp, err = req.Get(url, playwright.APIRequestContextGetOptions{
			Headers: headers,
			Timeout: playwright.Float(30000),
		})
	}
	if err != nil {
		return Response{}, fmt.Errorf("in-session %s %s: %w", method, url, err)
	}

	respBody, err := resp.Body()
	if err != nil {
		respBody = nil
	}
	return Response{
		URL:     resp.URL(),
		Status:  resp.Status(),
		Headers: lowercaseHeaders(resp.Headers()),
		Body:    respBody,
	}, nil
}

func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		if err := s.page.Close(); err != nil {
			s.log.LogDebugf("page close: %v", err)
		}
		if err := s.browserCtx.Close(); err != nil {
			s.log.LogDebugf("context close: %v", err)
		}
		if err := s.browser.Close(); err != nil {
			s.closeErr = err
		}
		if err := s.pw.Stop(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func lowercaseHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = v
	}
	return out
}

type playwrightElement struct {
	el playwright.ElementHandle
}

func (e *playwrightElement) Text() (string, error) { return e.el.InnerText() }

func (e *playwrightElement) HTML() (string, error) { return e.el.InnerHTML() }

func (e *playwrightElement) Attr(name string) (string, bool) {
	v, err := e.el.GetAttribute(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (e *playwrightElement) Click() error { return e.el.Click() }
