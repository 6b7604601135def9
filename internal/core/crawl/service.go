package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"estatecrawler/internal/browser"
	"estatecrawler/internal/config"
	"estatecrawler/internal/core/job"
	"estatecrawler/internal/logger"
	rds "estatecrawler/internal/platform/redis"
	tasks "estatecrawler/internal/platform/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Request is the caller-facing shape of one crawl job.
type Request struct {
	URL       string `json:"url"`
	MinWaitMS *int   `json:"min_wait_ms,omitempty"`
	MaxWaitMS *int   `json:"max_wait_ms,omitempty"`
	Headless  *bool  `json:"headless,omitempty"`
}

// JobData is what a finished (or cancelled) crawl job stores.
type JobData struct {
	URL     string           `json:"url"`
	Records []PropertyRecord `json:"records,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// TraceEvent is the progress payload streamed over the job channel.
type TraceEvent struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type TaskPayload struct {
	JobID   string  `json:"job_id"`
	Request Request `json:"request"`
}

// Service owns the crawl job lifecycle: enqueue, background execution,
// cooperative cancellation, and result storage.
type Service struct {
	job        *job.Service
	tasks      *tasks.Client
	redis      *rds.Service
	log        *logger.Logger
	cfg        config.Config
	newSession SessionFactory
}

func NewService(jobSvc *job.Service, taskClient *tasks.Client, redis *rds.Service, cfg config.Config) *Service {
	return &Service{
		job:   jobSvc,
		tasks: taskClient,
		redis: redis,
		log:   logger.New("CrawlService"),
		cfg:   cfg,
		newSession: func(_ context.Context, headless bool) (browser.Session, error) {
			return browser.Launch(browser.LaunchOptions{Headless: headless})
		},
	}
}

// SetSessionFactory overrides how browsing sessions are opened. Tests use
// this to run the whole pipeline against a fake session.
func (s *Service) SetSessionFactory(f SessionFactory) { s.newSession = f }

func (s *Service) Enqueue(ctx context.Context, req Request) (string, error) {
	if req.URL == "" {
		return "", fmt.Errorf("url is required")
	}
	id := uuid.New().String()

	if err := s.job.InitPending(ctx, id, JobData{URL: CleanURL(req.URL)}); err != nil {
		return "", err
	}
	payload, _ := json.Marshal(TaskPayload{JobID: id, Request: req})
	task := asynq.NewTask(tasks.TaskTypeCrawl, payload)
	if err := s.tasks.Enqueue(task, "default", s.cfg.TaskMaxRetries); err != nil {
		return "", err
	}
	s.log.LogInfof("enqueued crawl job %s for %s", id, req.URL)
	return id, nil
}

// Cancel flags a running job for cooperative stop. The worker polls the
// flag between items.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	j, err := s.job.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %s already %s", jobID, j.Status)
	}
	return s.redis.SetFlag(ctx, cancelKey(jobID), 3600)
}

func (s *Service) HandleCrawlTask(ctx context.Context, task *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	s.log.LogInfof("processing crawl job %s for %s", p.JobID, p.Request.URL)
	if err := s.job.SetProcessing(ctx, p.JobID); err != nil {
		return err
	}

	opts := s.buildOptions(ctx, p)
	orch := NewOrchestrator(opts, s.newSession)

	// Poll the cancel flag while the crawl runs.
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				if s.redis.FlagSet(pollCtx, cancelKey(p.JobID)) {
					orch.Cancel()
					return
				}
			}
		}
	}()

	records, err := orch.Run(ctx)
	data := JobData{URL: CleanURL(p.Request.URL), Records: records}

	switch {
	case err == nil:
		s.log.LogInfof("crawl job %s completed with %d records", p.JobID, len(records))
		return s.job.Complete(ctx, p.JobID, job.StatusCompleted, data)
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		s.log.LogInfof("crawl job %s cancelled with %d partial records", p.JobID, len(records))
		return s.job.Complete(ctx, p.JobID, job.StatusCancelled, data)
	default:
		s.log.LogError(fmt.Sprintf("crawl job %s failed", p.JobID), err)
		data.Records = nil
		data.Error = err.Error()
		if cerr := s.job.Complete(ctx, p.JobID, job.StatusFailed, data); cerr != nil {
			return cerr
		}
		return err
	}
}

func (s *Service) buildOptions(ctx context.Context, p TaskPayload) Options {
	minWait := s.cfg.CrawlMinWait
	if p.Request.MinWaitMS != nil {
		minWait = time.Duration(*p.Request.MinWaitMS) * time.Millisecond
	}
	maxWait := s.cfg.CrawlMaxWait
	if p.Request.MaxWaitMS != nil {
		maxWait = time.Duration(*p.Request.MaxWaitMS) * time.Millisecond
	}
	headless := s.cfg.CrawlHeadless
	if p.Request.Headless != nil {
		headless = *p.Request.Headless
	}

	return Options{
		TargetURL: p.Request.URL,
		MinWait:   minWait,
		MaxWait:   maxWait,
		Headless:  headless,
		Callbacks: Callbacks{
			OnProgress: func(current, total int, message string) {
				_ = s.job.PublishTrace(ctx, p.JobID, TraceEvent{Current: current, Total: total, Message: message})
			},
			OnLog: func(message string) {
				s.log.LogDebugf("job %s: %s", p.JobID, message)
			},
		},
	}
}

func cancelKey(jobID string) string { return "crawl:cancel:" + jobID }
