package stats

import (
	"strings"

	"estatecrawler/internal/core/crawl"
	"estatecrawler/internal/core/job"

	"github.com/gofiber/fiber/v2"
)

// Summary aggregates an already-extracted record sequence. Purely a
// downstream consumer: it places no constraints on the crawl core.
type Summary struct {
	Total          int            `json:"total"`
	BuildingCounts map[string]int `json:"building_counts"`
	MinPrice       string         `json:"min_price,omitempty"`
	MaxPrice       string         `json:"max_price,omitempty"`
}

func Summarize(records []crawl.PropertyRecord) Summary {
	s := Summary{Total: len(records), BuildingCounts: make(map[string]int)}
	minVal, maxVal := 0, 0
	for _, rec := range records {
		building := rec.Building
		if building == "" {
			building = "미지정"
		}
		s.BuildingCounts[building]++

		v, ok := crawl.PriceValue(rec.Price)
		if !ok {
			continue
		}
		if s.MinPrice == "" || v < minVal {
			s.MinPrice, minVal = rec.Price, v
		}
		if s.MaxPrice == "" || v > maxVal {
			s.MaxPrice, maxVal = rec.Price, v
		}
	}
	return s
}

// Filter returns the records whose fields contain query, case-insensitive.
// An empty query returns the input unchanged.
func Filter(records []crawl.PropertyRecord, query string) []crawl.PropertyRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}
	var out []crawl.PropertyRecord
	for _, rec := range records {
		for _, field := range []string{rec.Building, rec.Price, rec.Area, rec.Floor} {
			if strings.Contains(strings.ToLower(field), query) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

type Handler struct {
	job *job.Service
}

func NewHandler(jobSvc *job.Service) *Handler { return &Handler{job: jobSvc} }

func (h *Handler) HandleStats(c *fiber.Ctx) error {
	id := c.Params("jobId")
	records, err := crawl.RecordsForJob(c, h.job, id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}
	if q := c.Query("q"); q != "" {
		records = Filter(records, q)
	}
	return c.JSON(fiber.Map{"success": true, "job_id": id, "stats": Summarize(records)})
}
