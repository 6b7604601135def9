package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"estatecrawler/internal/core/crawl"
	"estatecrawler/internal/core/job"
	"estatecrawler/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// utf8BOM keeps Korean headers readable when the file lands in Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{"동", "가격", "면적", "층수"}

type Service struct {
	log *logger.Logger
}

func NewService() *Service { return &Service{log: logger.New("Export")} }

// WriteCSV renders the final record sequence as a BOM-prefixed CSV.
func (s *Service) WriteCSV(w io.Writer, records []crawl.PropertyRecord) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.Building, rec.Price, rec.Area, rec.Floor}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type Handler struct {
	job    *job.Service
	export *Service
}

func NewHandler(jobSvc *job.Service, exportSvc *Service) *Handler {
	return &Handler{job: jobSvc, export: exportSvc}
}

func (h *Handler) HandleExport(c *fiber.Ctx) error {
	id := c.Params("jobId")
	records, err := crawl.RecordsForJob(c, h.job, id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}
	c.Set("Content-Type", "text/csv; charset=utf-8")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "crawl-"+id+".csv"))
	if err := h.export.WriteCSV(c.Response().BodyWriter(), records); err != nil {
		h.export.log.LogError("csv export", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "export failed"})
	}
	return nil
}
