package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"estatecrawler/internal/logger"
	"estatecrawler/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	log          *logger.Logger
	redisService *redis.Service
	startTime    time.Time
	isReady      bool
}

func NewHealthHandler(redisSvc *redis.Service) *HealthHandler {
	return &HealthHandler{
		log:          logger.New("HealthCheck"),
		redisService: redisSvc,
		startTime:    time.Now(),
		isReady:      false,
	}
}

// SetReady marks the application as ready to receive traffic
func (h *HealthHandler) SetReady() {
	h.isReady = true
	h.log.LogInfof("Application marked as ready for traffic after %v", time.Since(h.startTime))
}

type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type OverallHealth struct {
	OverallStatus string                     `json:"overall_status"`
	Timestamp     string                     `json:"timestamp"`
	Ready         bool                       `json:"ready"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

// HandleHealth responds with the system's health status, including dependencies
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 8*time.Second)
	defer cancel()

	statuses := make(map[string]ComponentStatus)
	var wg sync.WaitGroup
	var mu sync.Mutex

	allOk := true

	checkComponent := func(name string, checkFunc func(context.Context) error) {
		defer wg.Done()
		componentState := "ok"
		var errStr string

		if err := checkFunc(ctx); err != nil {
			componentState = "error"
			errStr = err.Error()
			mu.Lock()
			allOk = false
			mu.Unlock()
			h.log.LogErrorf("Health check failed for %s: %v", name, err)
		}

		mu.Lock()
		statuses[name] = ComponentStatus{Status: componentState, Error: errStr}
		mu.Unlock()
	}

	wg.Add(1)
	go checkComponent("redis", h.redisService.HealthCheck)

	wg.Wait()

	response := OverallHealth{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Ready:         h.isReady,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    statuses,
	}

	if allOk && h.isReady {
		response.OverallStatus = "ok"
		return c.Status(http.StatusOK).JSON(response)
	}

	if !h.isReady {
		response.OverallStatus = "starting"
		return c.Status(http.StatusServiceUnavailable).JSON(response)
	}

	response.OverallStatus = "error"
	h.log.LogWarnf("Health check failed. Statuses: %+v", statuses)
	return c.Status(http.StatusServiceUnavailable).JSON(response)
}

func HealthLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{"error": "Rate limit exceeded"})
		},
	})
}
