package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/narrator/internal/api"
	"github.com/timmy/narrator/internal/api/handler"
	"github.com/timmy/narrator/internal/app"
	"github.com/timmy/narrator/internal/logger"
)

func main() {
	ctx := context.Background()

	// CONFIG_PATH overrides the config search path in deployments.
	a, err := app.New(ctx, os.Getenv("CONFIG_PATH"), "narrator-api", app.Options{UseQueue: true})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()
	cfg := a.Config

	health := map[string]handler.Pinger{}
	if a.Queue != nil {
		health["redis"] = a.Queue
	}
	router := api.SetupRouter(a.Jobs, health, cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.With(logger.Fields{"port": cfg.Server.Port, "mode": cfg.Server.Mode}).
			Info(ctx, "Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetDefault().WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.CtxInfo(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetDefault().WithError(err).Error("Server forced to shutdown")
	}

	logger.CtxInfo(ctx, "Server exited")
}
