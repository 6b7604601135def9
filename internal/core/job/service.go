package job

import (
	"context"
	"encoding/json"
	"fmt"

	rds "estatecrawler/internal/platform/redis"
)

type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &j, nil
}

func (s *Service) store(ctx context.Context, jobID string, jobType Type, status Status, result interface{}) error {
	var j Job
	_ = s.redis.CacheGet(ctx, key(jobID), &j)
	j.JobID = jobID
	j.Type = jobType
	j.Status = status
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		j.Result = b
	}
	if err := s.redis.CacheSet(ctx, key(jobID), j, ttl(status)); err != nil {
		return err
	}
	// Status change event for any SSE/poll listeners.
	_ = s.redis.Client().Publish(ctx, key(jobID), "updated").Err()
	return nil
}

func (s *Service) InitPending(ctx context.Context, jobID string, result interface{}) error {
	return s.store(ctx, jobID, TypeCrawl, StatusPending, result)
}

func (s *Service) SetProcessing(ctx context.Context, jobID string) error {
	return s.store(ctx, jobID, TypeCrawl, StatusProcessing, nil)
}

func (s *Service) Complete(ctx context.Context, jobID string, status Status, result interface{}) error {
	return s.store(ctx, jobID, TypeCrawl, status, result)
}

// PublishTrace forwards a structured progress event to the job's channel.
func (s *Service) PublishTrace(ctx context.Context, jobID string, event interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trace event: %w", err)
	}
	return s.redis.Client().Publish(ctx, key(jobID), "trace:"+string(b)).Err()
}

func key(id string) string { return "job:" + id }

func ttl(s Status) int {
	if s.Terminal() {
		return 3600
	}
	return 600
}
