package stats

import (
	"testing"

	"estatecrawler/internal/core/crawl"
)

func sampleRecords() []crawl.PropertyRecord {
	return []crawl.PropertyRecord{
		{Building: "101동", Price: "2억 5,000만원", Area: "84.97㎡", Floor: "12/15층"},
		{Building: "101동", Price: "3억원", Area: "84.97㎡", Floor: "3/15층"},
		{Building: "103동", Price: "9,500만원", Area: "59.88㎡", Floor: "고"},
		{Building: "", Price: "가격협의", Area: "", Floor: ""},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	s := Summarize(sampleRecords())

	if s.Total != 4 {
		t.Fatalf("Total = %d, want 4", s.Total)
	}
	if s.BuildingCounts["101동"] != 2 || s.BuildingCounts["103동"] != 1 {
		t.Fatalf("BuildingCounts = %v", s.BuildingCounts)
	}
	if s.BuildingCounts["미지정"] != 1 {
		t.Fatalf("records without a building must count under 미지정, got %v", s.BuildingCounts)
	}
	if s.MinPrice != "9,500만원" {
		t.Fatalf("MinPrice = %q, want 9,500만원", s.MinPrice)
	}
	if s.MaxPrice != "3억원" {
		t.Fatalf("MaxPrice = %q, want 3억원", s.MaxPrice)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()
	s := Summarize(nil)
	if s.Total != 0 || s.MinPrice != "" || s.MaxPrice != "" {
		t.Fatalf("empty input must yield a zero summary, got %+v", s)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()
	records := sampleRecords()

	got := Filter(records, "101동")
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	got = Filter(records, "9,500")
	if len(got) != 1 || got[0].Building != "103동" {
		t.Fatalf("price substring filter failed: %+v", got)
	}

	if got := Filter(records, "없는값"); len(got) != 0 {
		t.Fatalf("non-matching query must yield nothing, got %+v", got)
	}

	if got := Filter(records, "  "); len(got) != len(records) {
		t.Fatalf("blank query must return the input unchanged")
	}
}
