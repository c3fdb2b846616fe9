package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/narrator/internal/app"
	"github.com/timmy/narrator/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, os.Getenv("CONFIG_PATH"), "narrator-worker", app.Options{UseQueue: true})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if a.Queue == nil {
		logger.GetDefault().Fatal("redis.addr is not configured; the worker needs a queue")
	}

	if err := a.Queue.Consume(ctx, a.Jobs); err != nil {
		logger.GetDefault().WithError(err).Error("worker stopped")
	}
	logger.CtxInfo(ctx, "Worker exited")
}
