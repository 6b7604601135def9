package crawl

import (
	"encoding/json"

	"estatecrawler/internal/core/job"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	job   *job.Service
	crawl *Service
}

func NewHandler(jobSvc *job.Service, crawlSvc *Service) *Handler {
	return &Handler{job: jobSvc, crawl: crawlSvc}
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	id, err := h.crawl.Enqueue(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "job_id": id})
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.job.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}
	resp := fiber.Map{"success": true, "job_id": id, "status": j.Status}
	if len(j.Result) > 0 {
		var data JobData
		if err := json.Unmarshal(j.Result, &data); err == nil {
			resp["data"] = data
		}
	}
	return c.JSON(resp)
}

func (h *Handler) HandleCancel(c *fiber.Ctx) error {
	id := c.Params("jobId")
	if err := h.crawl.Cancel(c.Context(), id); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "job_id": id, "status": "cancelling"})
}

// RecordsForJob loads the stored record sequence of a finished job. Shared
// by the export and stats surfaces, which consume the final sequence only.
func RecordsForJob(c *fiber.Ctx, jobSvc *job.Service, jobID string) ([]PropertyRecord, error) {
	j, err := jobSvc.Get(c.Context(), jobID)
	if err != nil {
		return nil, err
	}
	var data JobData
	if len(j.Result) > 0 {
		if err := json.Unmarshal(j.Result, &data); err != nil {
			return nil, err
		}
	}
	return data.Records, nil
}
