package crawl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The upstream payload shape is undocumented and drifts between responses,
// so every field is resolved from an ordered candidate list: the first
// candidate with a non-empty value wins.
var (
	buildingKeys   = []string{"dongName", "dong", "buildingName"}
	priceKeys      = []string{"dealOrWarrantPrc", "price", "dealPrice"}
	areaKeys       = []string{"area1", "area", "exclusiveArea"}
	floorKeys      = []string{"floor", "floorInfo"}
	totalFloorKeys = []string{"totalFloor", "maxFloor"}

	// Candidates searched in detail payloads when resolving an ambiguous
	// floor marker.
	detailFloorKeys = []string{"floorNo", "floor", "floorInfo", "correspondingFloor"}
	detailTotalKeys = []string{"totalFloorNo", "totalFloor", "maxFloor"}
)

// FirstNonEmpty resolves a field from an ordered list of candidate keys.
func FirstNonEmpty(item map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := item[k]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool, nil:
		return ""
	default:
		return ""
	}
}

// FormatPrice normalizes a raw price. Pure integers are 만원 amounts: values
// of 10000 and above split into 억 and a comma-grouped 만원 remainder, the
// remainder clause omitted when zero. Anything non-numeric passes through
// trimmed.
func FormatPrice(raw string) string {
	trimmed := strings.TrimSpace(raw)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return trimmed
	}
	if n >= 10000 {
		eok := n / 10000
		man := n % 10000
		if man > 0 {
			return fmt.Sprintf("%d억 %s만원", eok, groupDigits(man))
		}
		return fmt.Sprintf("%d억원", eok)
	}
	return fmt.Sprintf("%s만원", groupDigits(n))
}

// FormatArea normalizes a raw area to two decimals with the ㎡ suffix;
// non-numeric values pass through trimmed.
func FormatArea(raw string) string {
	trimmed := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return trimmed
	}
	return fmt.Sprintf("%.2f㎡", f)
}

// FormatFloor combines a floor and total into the n/total층 shape when both
// are numeric, otherwise falls back to the trimmed floor value.
func FormatFloor(floor, total string) string {
	floor = strings.TrimSpace(floor)
	total = strings.TrimSpace(total)
	if floor == "" {
		return ""
	}
	if total != "" {
		fn, ferr := strconv.Atoi(floor)
		tn, terr := strconv.Atoi(total)
		if ferr == nil && terr == nil {
			return fmt.Sprintf("%d/%d층", fn, tn)
		}
	}
	return floor
}

var exactFloorRe = regexp.MustCompile(`^\d+/\d+층$`)

// IsExactFloor reports whether s already carries the exact n/total층 shape.
func IsExactFloor(s string) bool { return exactFloorRe.MatchString(s) }

// IsAmbiguousFloor reports whether s is one of the coarse low/mid/high
// markers the site substitutes for an exact floor number.
func IsAmbiguousFloor(s string) bool {
	switch strings.TrimSpace(s) {
	case "저", "중", "고":
		return true
	}
	return false
}

func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

var priceValueRe = regexp.MustCompile(`^(?:(\d+)억)?\s*([\d,]+)?만?원?$`)

// PriceValue parses a formatted price back into its 만원 amount, for
// numeric comparison by downstream consumers. Returns false for free-text
// prices.
func PriceValue(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	m := priceValueRe.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, false
	}
	total := 0
	if m[1] != "" {
		eok, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		total += eok * 10000
	}
	if m[2] != "" {
		man, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
		if err != nil {
			return 0, false
		}
		total += man
	}
	return total, true
}

// Textual shapes expected inside a rendered listing card.
var (
	buildingTextRe = regexp.MustCompile(`\d+동`)
	areaTextRe     = regexp.MustCompile(`\d+(\.\d+)?㎡`)
	priceTextRe    = regexp.MustCompile(`\d+억\s?\d*,?\d*만원|\d+억|\d+만원`)
	floorTextRe    = regexp.MustCompile(`\d+/\d+층|저|중|고`)
)
