package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DataDir       string

	// Per-item jitter bounds for the crawl loop. Deliberate pacing, not a
	// tuning knob: stay under the target's rate-limiting threshold.
	CrawlMinWait  time.Duration
	CrawlMaxWait  time.Duration
	CrawlHeadless bool

	TaskMaxRetries int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		CrawlMinWait:  getenvMillis("CRAWL_MIN_WAIT_MS", 1000*time.Millisecond),
		CrawlMaxWait:  getenvMillis("CRAWL_MAX_WAIT_MS", 3000*time.Millisecond),
		CrawlHeadless: getenvBool("CRAWL_HEADLESS", true),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	if cfg.CrawlMaxWait < cfg.CrawlMinWait {
		cfg.CrawlMaxWait = cfg.CrawlMinWait
	}
	return cfg
}
