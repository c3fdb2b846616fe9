package repository

import (
	"context"

	"github.com/timmy/narrator/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles narration job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update saves all fields of job.
func (r *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.Job: job record if found.
//   - error: gorm.ErrRecordNotFound if no such job exists.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns jobs newest first, optionally filtered by status.
func (r *JobRepository) List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var jobs []domain.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
