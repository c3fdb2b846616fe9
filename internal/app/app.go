// Package app assembles the narrator components from configuration for the
// command line, API and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/logger"
	"github.com/timmy/narrator/internal/repository"
	"github.com/timmy/narrator/internal/service"
	"gorm.io/gorm"
)

// App holds the long-lived components shared by every entry point.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Engine *service.Engine
	Jobs   *service.JobService
	Queue  *service.Queue
}

// Options selects which parts to start.
type Options struct {
	// UseQueue connects to redis when it is configured.
	UseQueue bool
}

// InitLogger installs the package default logger from cfg.
func InitLogger(cfg config.LogConfig, service string) *logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Level
	lc.Format = cfg.Format
	lc.File = cfg.File
	if service != "" {
		lc.ServiceName = service
	}
	log := logger.New(lc)
	logger.SetDefaultLogger(log)
	return log
}

// New loads configuration from path and wires the database, engine and,
// when requested, the redis queue.
func New(ctx context.Context, path, serviceName string, opts Options) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := InitLogger(cfg.Log, serviceName)

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	engine, err := service.BuildEngine(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, DB: db, Engine: engine}

	var enqueuer service.Enqueuer
	if opts.UseQueue && cfg.Redis.Enabled() {
		a.Queue = service.NewQueue(cfg.Redis)
		if err := a.Queue.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		enqueuer = a.Queue
		log.WithField("queue", a.Queue.Key()).Info("job queue connected")
	}
	a.Jobs = service.NewJobService(repository.NewJobRepository(db), engine, enqueuer)
	return a, nil
}

// Close releases connections and flushes the log file.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Sync()
}
