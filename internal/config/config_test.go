package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr == "" || cfg.RedisAddr == "" {
		t.Fatalf("defaults missing: %+v", cfg)
	}
	if cfg.CrawlMinWait != time.Second || cfg.CrawlMaxWait != 3*time.Second {
		t.Fatalf("wait defaults = %v/%v", cfg.CrawlMinWait, cfg.CrawlMaxWait)
	}
	if !cfg.CrawlHeadless {
		t.Fatalf("headless must default to true")
	}
}

func TestLoadWaitBounds(t *testing.T) {
	t.Setenv("CRAWL_MIN_WAIT_MS", "500")
	t.Setenv("CRAWL_MAX_WAIT_MS", "100")

	cfg := Load()
	if cfg.CrawlMinWait != 500*time.Millisecond {
		t.Fatalf("CrawlMinWait = %v", cfg.CrawlMinWait)
	}
	if cfg.CrawlMaxWait != cfg.CrawlMinWait {
		t.Fatalf("an inverted window must clamp max to min, got %v", cfg.CrawlMaxWait)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("CRAWL_MIN_WAIT_MS", "soon")
	t.Setenv("CRAWL_HEADLESS", "maybe")
	t.Setenv("TASK_MAX_RETRIES", "lots")

	cfg := Load()
	if cfg.CrawlMinWait != time.Second {
		t.Fatalf("unparseable wait must keep the default, got %v", cfg.CrawlMinWait)
	}
	if !cfg.CrawlHeadless {
		t.Fatalf("unparseable bool must keep the default")
	}
	if cfg.TaskMaxRetries != 3 {
		t.Fatalf("unparseable int must keep the default, got %d", cfg.TaskMaxRetries)
	}
}
