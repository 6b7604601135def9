package crawl

import "testing"

func TestFormatPrice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "splits into eok and man", in: "25000", want: "2억 5,000만원"},
		{name: "omits zero man remainder", in: "30000", want: "3억원"},
		{name: "groups man digits", in: "131072", want: "13억 1,072만원"},
		{name: "below eok threshold", in: "9999", want: "9,999만원"},
		{name: "small value ungrouped", in: "500", want: "500만원"},
		{name: "exact threshold", in: "10000", want: "1억원"},
		{name: "non numeric passes through", in: "가격협의", want: "가격협의"},
		{name: "trims whitespace", in: "  5000 ", want: "5,000만원"},
		{name: "already formatted passes through", in: "2억 5,000만원", want: "2억 5,000만원"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPrice(tt.in); got != tt.want {
				t.Fatalf("FormatPrice(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatArea(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "two decimals", in: "84.9701", want: "84.97㎡"},
		{name: "integer gains decimals", in: "59", want: "59.00㎡"},
		{name: "non numeric passes through", in: "84.97㎡", want: "84.97㎡"},
		{name: "free text passes through", in: "평형 미상", want: "평형 미상"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatArea(tt.in); got != tt.want {
				t.Fatalf("FormatArea(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatFloor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		floor string
		total string
		want  string
	}{
		{name: "combines numeric pair", floor: "12", total: "15", want: "12/15층"},
		{name: "missing total keeps floor", floor: "12", total: "", want: "12"},
		{name: "non numeric total keeps floor", floor: "12", total: "고층", want: "12"},
		{name: "ambiguous marker untouched", floor: "고", total: "15", want: "고"},
		{name: "empty floor yields empty", floor: "", total: "15", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFloor(tt.floor, tt.total); got != tt.want {
				t.Fatalf("FormatFloor(%q, %q) = %q, want %q", tt.floor, tt.total, got, tt.want)
			}
		})
	}
}

func TestFloorClassifiers(t *testing.T) {
	t.Parallel()
	if !IsExactFloor("12/15층") {
		t.Fatalf("12/15층 should be exact")
	}
	if IsExactFloor("고") || IsExactFloor("12층") || IsExactFloor("12/15") {
		t.Fatalf("non n/total층 shapes must not classify as exact")
	}
	for _, marker := range []string{"저", "중", "고", " 고 "} {
		if !IsAmbiguousFloor(marker) {
			t.Fatalf("%q should be ambiguous", marker)
		}
	}
	if IsAmbiguousFloor("12/15층") || IsAmbiguousFloor("고층") {
		t.Fatalf("exact or compound values must not classify as ambiguous")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()
	item := map[string]interface{}{
		"dongName":         "",
		"dong":             "101동",
		"buildingName":     "래미안",
		"dealOrWarrantPrc": float64(25000),
		"floor":            nil,
		"floorInfo":        "12",
	}
	if got := FirstNonEmpty(item, buildingKeys); got != "101동" {
		t.Fatalf("building = %q, want 101동", got)
	}
	if got := FirstNonEmpty(item, priceKeys); got != "25000" {
		t.Fatalf("price = %q, want 25000", got)
	}
	if got := FirstNonEmpty(item, floorKeys); got != "12" {
		t.Fatalf("floor = %q, want 12", got)
	}
	if got := FirstNonEmpty(item, areaKeys); got != "" {
		t.Fatalf("absent keys must resolve to empty, got %q", got)
	}
}

func TestPriceValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		in     string
		want   int
		wantOK bool
	}{
		{name: "eok and man", in: "2억 5,000만원", want: 25000, wantOK: true},
		{name: "eok only", in: "3억원", want: 30000, wantOK: true},
		{name: "man only", in: "9,999만원", want: 9999, wantOK: true},
		{name: "bare eok", in: "2억", want: 20000, wantOK: true},
		{name: "free text rejected", in: "가격협의", wantOK: false},
		{name: "empty rejected", in: "", wantOK: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PriceValue(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("PriceValue(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("PriceValue(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPriceRoundTrip(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"500", "9999", "10000", "25000", "131072"} {
		formatted := FormatPrice(raw)
		got, ok := PriceValue(formatted)
		if !ok {
			t.Fatalf("PriceValue(%q) not parseable", formatted)
		}
		want, _ := PriceValue(raw + "만원")
		if got != want {
			t.Fatalf("round trip %s -> %s -> %d, want %d", raw, formatted, got, want)
		}
	}
}
