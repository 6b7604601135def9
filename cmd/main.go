package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"estatecrawler/internal/config"
	"estatecrawler/internal/core/crawl"
	"estatecrawler/internal/core/export"
	"estatecrawler/internal/core/job"
	"estatecrawler/internal/logger"
	rds "estatecrawler/internal/platform/redis"
	tasks "estatecrawler/internal/platform/tasks"
	"estatecrawler/internal/server"
	"estatecrawler/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[estatecrawler] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	// Core services
	jobSvc := job.NewService(redisSvc)
	crawlSvc := crawl.NewService(jobSvc, taskClient, redisSvc, cfg)
	exportSvc := export.NewService()

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeCrawl, crawlSvc.HandleCrawlTask)

	// Start worker
	_, workerCancel := context.WithCancel(context.Background())
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Estate Crawler",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Serve saved artifacts (e.g., CSV exports written to disk) from DATA_DIR
	app.Static("/files", cfg.DataDir)

	deps := server.Dependencies{
		Job:    jobSvc,
		Crawl:  crawlSvc,
		Export: exportSvc,
		Tasks:  taskClient,
		Redis:  redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(5 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		workerCancel()
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
