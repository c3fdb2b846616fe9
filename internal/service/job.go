package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
	"gorm.io/gorm"
)

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// JobStore persists job records.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error)
}

// Enqueuer hands job ids to workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
}

// CreateJobRequest is the input for a new job.
type CreateJobRequest struct {
	Mode               domain.JobMode `json:"mode" binding:"required"`
	Prompt             string         `json:"prompt"`
	Script             string         `json:"script"`
	VideoPaths         []string       `json:"video_paths"`
	BackgroundAudioURL string         `json:"background_audio_url"`
	ImageStyle         string         `json:"image_style"`
	Voice              string         `json:"voice"`
}

// Validate checks the request before a job is created.
func (r *CreateJobRequest) Validate() error {
	if !r.Mode.Valid() {
		return domain.Configurationf("mode must be %q or %q", domain.JobModeReels, domain.JobModeStory)
	}
	if strings.TrimSpace(r.Script) == "" && strings.TrimSpace(r.Prompt) == "" {
		return domain.Configurationf("either script or prompt is required")
	}
	if r.Mode == domain.JobModeStory && len(r.VideoPaths) > 0 {
		return domain.Configurationf("video_paths only apply to reels jobs")
	}
	return nil
}

// JobService creates jobs, dispatches them and records their outcome.
type JobService struct {
	store  JobStore
	engine *Engine
	queue  Enqueuer
}

// NewJobService creates a JobService. queue may be nil, in which case jobs
// run in-process on Submit.
func NewJobService(store JobStore, engine *Engine, queue Enqueuer) *JobService {
	return &JobService{store: store, engine: engine, queue: queue}
}

// Create validates req and stores a pending job without dispatching it.
func (s *JobService) Create(ctx context.Context, req *CreateJobRequest) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := &domain.Job{
		ID:                 uuid.NewString(),
		Mode:               req.Mode,
		Status:             domain.JobStatusPending,
		Prompt:             req.Prompt,
		Script:             req.Script,
		VideoPaths:         domain.StringArray(req.VideoPaths),
		BackgroundAudioURL: req.BackgroundAudioURL,
		ImageStyle:         req.ImageStyle,
		Voice:              req.Voice,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Submit creates a job and dispatches it to the queue, or to a background
// goroutine when no queue is configured. Submitted jobs may only name
// remote clips; local paths are reserved for the command line.
func (s *JobService) Submit(ctx context.Context, req *CreateJobRequest) (*domain.Job, error) {
	for _, p := range req.VideoPaths {
		if !isRemote(p) {
			return nil, domain.Configurationf("video_paths must be http(s) URLs, got %q", p)
		}
	}
	job, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetJobID(ctx, job.ID)

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, job.ID); err != nil {
			return nil, fmt.Errorf("enqueue job: %w", err)
		}
		logger.CtxInfo(ctx, "job queued")
		return job, nil
	}

	// Detach from the request so the job outlives it.
	bg := logger.FromContext(ctx).WithContext(context.Background())
	go func() {
		if err := s.Process(bg, job.ID); err != nil {
			logger.FromContext(bg).WithError(err).Error("job failed")
		}
	}()
	return job, nil
}

// Process loads and runs the job with the given id, persisting each state
// transition.
func (s *JobService) Process(ctx context.Context, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ctx = logger.SetJobID(ctx, job.ID)

	now := time.Now()
	job.Status = domain.JobStatusRunning
	job.StartedAt = &now
	job.ErrorLog = ""
	if err := s.store.Update(ctx, job); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	logger.CtxInfo(ctx, "job running")

	out, runErr := s.engine.Run(ctx, job)
	done := time.Now()
	job.CompletedAt = &done
	if runErr != nil {
		job.Status = domain.JobStatusFailed
		job.ErrorLog = runErr.Error()
	} else {
		job.Status = domain.JobStatusCompleted
		job.OutputPath = out.Video
		job.PreviewPath = out.Preview
		job.OutputURL = out.VideoURL
		job.PreviewURL = out.PreviewURL
	}
	// The outcome is recorded even when ctx was cancelled mid-run.
	if err := s.store.Update(context.WithoutCancel(ctx), job); err != nil {
		logger.FromContext(ctx).WithError(err).Error("persist job result failed")
		if runErr == nil {
			return fmt.Errorf("persist job: %w", err)
		}
	}
	logger.With(logger.Fields{"status": job.Status}).WithSince(now).Info(ctx, "job %s", job.Status)
	return runErr
}

// Get returns the job or ErrJobNotFound.
func (s *JobService) Get(ctx context.Context, id string) (*domain.Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns jobs newest first.
func (s *JobService) List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	return s.store.List(ctx, status, limit, offset)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrJobNotFound)
}
