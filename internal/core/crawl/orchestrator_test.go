package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"estatecrawler/internal/browser"
)

type fakeElement struct {
	text    string
	html    string
	href    string
	onClick func()
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }
func (e *fakeElement) HTML() (string, error) { return e.html, nil }
func (e *fakeElement) Attr(name string) (string, bool) {
	if name == "href" && e.href != "" {
		return e.href, true
	}
	return "", false
}
func (e *fakeElement) Click() error {
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

// fakeSession scripts a browsing session: navigations always land, the
// page carries a fixed set of listing cards, and clicking the trigger
// element replays a captured listing response through the hooks.
type fakeSession struct {
	mu sync.Mutex

	currentURL  string
	title       string
	body        string
	navigations []string

	// titleNotFoundFrom makes Title() report a missing-resource page from
	// the nth call on. Zero disables.
	titleCalls        int
	titleNotFoundFrom int

	hooks     []func(browser.Response)
	trigger   *fakeElement
	listItems []browser.Element

	queryAllCalls int
	requests      []string
	requestFn     func(url string) (browser.Response, error)

	closeCalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{title: "단지 정보", body: "정상 페이지"}
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ browser.NavigateOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)
	s.currentURL = url
	return 200, nil
}

func (s *fakeSession) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

func (s *fakeSession) Title() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titleCalls++
	if s.titleNotFoundFrom > 0 && s.titleCalls >= s.titleNotFoundFrom {
		return "페이지를 찾을 수 없습니다", nil
	}
	return s.title, nil
}

func (s *fakeSession) BodyText() (string, error) { return s.body, nil }

func (s *fakeSession) Query(string) (browser.Element, error) {
	if s.trigger != nil {
		return s.trigger, nil
	}
	return nil, nil
}

func (s *fakeSession) QueryAll(selector string) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryAllCalls++
	if strings.Contains(selector, "/articles/") {
		return s.listItems, nil
	}
	return nil, nil
}

func (s *fakeSession) OnResponse(fn func(browser.Response)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *fakeSession) emit(r browser.Response) {
	s.mu.Lock()
	hooks := append([]func(browser.Response){}, s.hooks...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(r)
	}
}

func (s *fakeSession) Request(_ context.Context, _ string, url string, _ map[string]string, _ []byte) (browser.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, url)
	fn := s.requestFn
	s.mu.Unlock()
	if fn != nil {
		return fn(url)
	}
	return browser.Response{Status: 404}, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func testOrchestrator(t *testing.T, opts Options, fs *fakeSession) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(opts, func(context.Context, bool) (browser.Session, error) {
		return fs, nil
	})
	o.sleep = noSleep
	o.randF64 = func() float64 { return 0 }
	return o
}

func listingJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestRunCollectsDeduplicatedRecords(t *testing.T) {
	t.Parallel()
	const (
		warmupURL = "https://warmup.test"
		apiURL    = "https://api.test/front-api/v1/complex/article/list"
		detailURL = "https://api.test/articles/"
	)

	fs := newFakeSession()
	fs.trigger = &fakeElement{text: "매물", onClick: func() {
		fs.emit(browser.Response{URL: apiURL + "?page=1", Status: 200, Body: []byte(`{"ok":true}`)})
	}}
	fs.listItems = []browser.Element{
		&fakeElement{href: "/complexes/111/articles/100", text: "101동 2억 5,000만원 84.97㎡ 12/15층"},
		&fakeElement{href: "/complexes/111/articles/200", text: "102동 3억 5,000만원 59.88㎡ 3/15층"},
		&fakeElement{href: "/complexes/111/articles/100", text: "101동 2억 5,000만원 84.97㎡ 12/15층"},
		&fakeElement{href: "/complexes/111/articles/300", text: "103동 1억 8,000만원 49.50㎡ 고"},
	}
	fs.requestFn = func(url string) (browser.Response, error) {
		return browser.Response{
			Status: 200,
			Body:   listingJSON(t, map[string]interface{}{"floorNo": 24, "totalFloorNo": 30}),
		}, nil
	}

	var (
		emitted  []PropertyRecord
		progress []int
	)
	opts := Options{
		TargetURL:       "https://new.land.naver.com/complexes/111?ms=37.5,127.0&a=APT#map",
		WarmupURL:       warmupURL,
		APIURL:          apiURL,
		DetailURLPrefix: detailURL,
		Callbacks: Callbacks{
			OnProperty: func(rec PropertyRecord) { emitted = append(emitted, rec) },
			OnProgress: func(current, total int, _ string) {
				if total > 0 {
					progress = append(progress, current)
				}
			},
		},
	}
	o := testOrchestrator(t, opts, fs)

	records, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 after dedup: %+v", len(records), records)
	}
	want := []PropertyRecord{
		{Building: "101동", Price: "2억 5,000만원", Area: "84.97㎡", Floor: "12/15층"},
		{Building: "102동", Price: "3억 5,000만원", Area: "59.88㎡", Floor: "3/15층"},
		{Building: "103동", Price: "1억 8,000만원", Area: "49.50㎡", Floor: "24/30층"},
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("records[%d] = %+v, want %+v", i, records[i], want[i])
		}
	}
	if len(emitted) != 3 {
		t.Fatalf("OnProperty fired %d times, want exactly once per accepted item", len(emitted))
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted[%d] = %+v, want discovery order preserved", i, emitted[i])
		}
	}

	if len(fs.navigations) != 2 || fs.navigations[0] != warmupURL {
		t.Fatalf("navigations = %v, want warmup then target", fs.navigations)
	}
	if fs.navigations[1] != "https://new.land.naver.com/complexes/111" {
		t.Fatalf("target navigation %q must have query and fragment stripped", fs.navigations[1])
	}
	if len(fs.requests) != 1 || !strings.HasPrefix(fs.requests[0], detailURL+"300") {
		t.Fatalf("requests = %v, want one floor lookup for listing 300", fs.requests)
	}

	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress decreased: %v", progress)
		}
	}
	if progress[len(progress)-1] != 100 {
		t.Fatalf("final progress = %d, want 100", progress[len(progress)-1])
	}
	if fs.closeCalls != 1 {
		t.Fatalf("session closed %d times, want exactly once", fs.closeCalls)
	}
}

func TestRunTargetNotFound(t *testing.T) {
	t.Parallel()
	fs := newFakeSession()
	// The missing-resource page surfaces after the target entry settles:
	// both navigations land, then the page reports itself gone.
	fs.titleNotFoundFrom = 3

	opts := Options{
		TargetURL: "https://new.land.naver.com/complexes/999",
		WarmupURL: "https://warmup.test",
		APIURL:    "https://api.test/list",
	}
	o := testOrchestrator(t, opts, fs)

	records, err := o.Run(context.Background())
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want none", len(records))
	}
	if fs.queryAllCalls != 0 {
		t.Fatalf("item discovery ran %d times, want none after a failed bootstrap", fs.queryAllCalls)
	}
	if len(fs.requests) != 0 {
		t.Fatalf("no follow-up requests expected, got %v", fs.requests)
	}
	if fs.closeCalls != 1 {
		t.Fatalf("session closed %d times, want exactly once", fs.closeCalls)
	}
}

func TestRunCancellationKeepsPartialResults(t *testing.T) {
	t.Parallel()
	const apiURL = "https://api.test/list"

	fs := newFakeSession()
	fs.trigger = &fakeElement{text: "매물", onClick: func() {
		fs.emit(browser.Response{URL: apiURL, Status: 200, Body: []byte(`{"ok":true}`)})
	}}
	for i := 0; i < 10; i++ {
		fs.listItems = append(fs.listItems, &fakeElement{
			href: "/complexes/111/articles/" + strconv.Itoa(100+i),
			text: "101동 2억 5,000만원 84.97㎡ 12/15층",
		})
	}

	var o *Orchestrator
	var emitted int
	opts := Options{
		TargetURL: "https://new.land.naver.com/complexes/111",
		WarmupURL: "https://warmup.test",
		APIURL:    apiURL,
		Callbacks: Callbacks{
			OnProperty: func(PropertyRecord) {
				emitted++
				if emitted == 2 {
					o.Cancel()
				}
			},
		},
	}
	o = testOrchestrator(t, opts, fs)

	records, err := o.Run(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want the 2 collected before the stop", len(records))
	}
	if emitted != 2 {
		t.Fatalf("OnProperty fired %d times after cancellation, want 2", emitted)
	}
	if len(fs.requests) != 0 {
		t.Fatalf("no network interactions expected after the stop point, got %v", fs.requests)
	}
	if fs.closeCalls != 1 {
		t.Fatalf("session closed %d times, want exactly once", fs.closeCalls)
	}
}

func TestRunSessionOpenFailure(t *testing.T) {
	t.Parallel()
	o := NewOrchestrator(Options{TargetURL: "https://new.land.naver.com/complexes/1"},
		func(context.Context, bool) (browser.Session, error) {
			return nil, errors.New("browser missing")
		})
	o.sleep = noSleep

	records, err := o.Run(context.Background())
	if !errors.Is(err, ErrNavigationFailed) {
		t.Fatalf("err = %v, want ErrNavigationFailed", err)
	}
	if records != nil {
		t.Fatalf("records = %v, want none", records)
	}
}

func TestBootstrapNoFirstCapture(t *testing.T) {
	t.Parallel()
	fs := newFakeSession()
	ic := NewInterceptor("https://api.test/list")

	b := newBootstrapper("https://warmup.test", "https://target.test", func(string, ...interface{}) {}, noSleep)
	b.captureWindow = 50 * time.Millisecond

	err := b.Run(context.Background(), fs, ic)
	if !errors.Is(err, ErrNoFirstCapture) {
		t.Fatalf("err = %v, want ErrNoFirstCapture", err)
	}
}

func TestCleanURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "https://new.land.naver.com/complexes/111?ms=37.5,127.0&a=APT#map",
			want: "https://new.land.naver.com/complexes/111",
		},
		{
			in:   "https://new.land.naver.com/complexes/111",
			want: "https://new.land.naver.com/complexes/111",
		},
		{
			in:   "::bad::",
			want: "::bad::",
		},
	}
	for _, tt := range tests {
		if got := CleanURL(tt.in); got != tt.want {
			t.Fatalf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComplexID(t *testing.T) {
	t.Parallel()
	if got := ComplexID("https://new.land.naver.com/complexes/109208?ms=1"); got != "109208" {
		t.Fatalf("ComplexID = %q, want 109208", got)
	}
	if got := ComplexID("https://new.land.naver.com/"); got != "" {
		t.Fatalf("ComplexID = %q, want empty", got)
	}
}
