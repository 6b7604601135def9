package crawl

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"estatecrawler/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

var articleIDRe = regexp.MustCompile(`/articles/(\d+)`)

// ItemFromHTML lifts a RawItem out of a listing card's HTML fragment. The
// identifier comes from the article link; the text is what a user sees.
func ItemFromHTML(fragment string) (RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return RawItem{}, fmt.Errorf("parse listing fragment: %w", err)
	}

	var id string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if m := articleIDRe.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})

	return RawItem{ID: id, Text: strings.TrimSpace(doc.Text())}, nil
}

// ArticleIDFromHref extracts the listing identifier from an article link.
func ArticleIDFromHref(href string) string {
	if m := articleIDRe.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// DetailFetcher retrieves the detail payload for one listing, keyed by the
// item's identifier and trade classification. Used only to resolve
// ambiguous floor markers; failures leave the marker as-is.
type DetailFetcher func(ctx context.Context, articleID, tradeType string) (map[string]interface{}, error)

// Engine converts raw listing items into PropertyRecords.
type Engine struct {
	log    *logger.Logger
	detail DetailFetcher
}

func NewEngine(detail DetailFetcher) *Engine {
	return &Engine{log: logger.New("Extract"), detail: detail}
}

// Extract produces a fully populated record. Missing fields resolve to "";
// only an item without any identifier fails, and the caller skips it.
func (e *Engine) Extract(ctx context.Context, item RawItem) (PropertyRecord, error) {
	if item.ID == "" {
		return PropertyRecord{}, ErrNoIdentifier
	}

	var rec PropertyRecord
	if item.Payload != nil {
		rec = e.fromPayload(item.Payload)
	}
	if rec == (PropertyRecord{}) && item.Text != "" {
		rec = e.fromText(item.Text)
	}

	if IsAmbiguousFloor(rec.Floor) {
		if resolved := e.resolveFloor(ctx, item, rec.Floor); resolved != "" {
			rec.Floor = resolved
		}
	}
	return rec, nil
}

func (e *Engine) fromPayload(payload map[string]interface{}) PropertyRecord {
	rec := PropertyRecord{
		Building: FirstNonEmpty(payload, buildingKeys),
		Price:    FormatPrice(FirstNonEmpty(payload, priceKeys)),
		Area:     FormatArea(FirstNonEmpty(payload, areaKeys)),
	}
	if rec.Price == "만원" { // no raw price at all
		rec.Price = ""
	}
	rec.Floor = FormatFloor(FirstNonEmpty(payload, floorKeys), FirstNonEmpty(payload, totalFloorKeys))
	return rec
}

func (e *Engine) fromText(text string) PropertyRecord {
	return PropertyRecord{
		Building: buildingTextRe.FindString(text),
		Price:    priceTextRe.FindString(text),
		Area:     areaTextRe.FindString(text),
		Floor:    floorTextRe.FindString(text),
	}
}

// resolveFloor attempts to turn a low/mid/high marker into an exact
// n/total층 pair via the detail payload. Resolution is best-effort: any
// failure keeps the ambiguous marker.
func (e *Engine) resolveFloor(ctx context.Context, item RawItem, marker string) string {
	if e.detail == nil {
		return ""
	}
	detail, err := e.detail(ctx, item.ID, item.TradeType)
	if err != nil || detail == nil {
		e.log.LogDebugf("floor lookup failed for %s, keeping %q: %v", item.ID, marker, err)
		return ""
	}

	floor := pickNumeric(detail, detailFloorKeys)
	if floor == "" {
		return ""
	}
	if IsExactFloor(floor) {
		return floor
	}

	total := pickNumeric(detail, detailTotalKeys)
	if total == "" {
		total = FirstNonEmpty(item.Payload, totalFloorKeys)
	}
	resolved := FormatFloor(floor, total)
	if resolved == "" || IsAmbiguousFloor(resolved) {
		return ""
	}
	e.log.LogDebugf("resolved floor for %s: %q -> %q", item.ID, marker, resolved)
	return resolved
}

// pickNumeric searches the detail tree for the candidate keys in order and
// returns the first non-empty match, rendered as a plain number when
// possible.
func pickNumeric(data map[string]interface{}, keys []string) string {
	for _, key := range keys {
		v, _, ok := PickByKey(data, key)
		if !ok || emptyValue(v) {
			continue
		}
		switch t := v.(type) {
		case float64:
			return strconv.Itoa(int(t))
		case string:
			return strings.TrimSpace(t)
		}
	}
	return ""
}
