package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/narrator/internal/api/middleware"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/service"
)

// JobService is the job surface the handlers use.
type JobService interface {
	Submit(ctx context.Context, req *service.CreateJobRequest) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error)
}

// JobHandler handles job endpoints.
type JobHandler struct {
	jobs JobService
}

func NewJobHandler(jobs JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListResponse wraps a page of jobs.
type ListResponse struct {
	Jobs   []domain.Job `json:"jobs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// Create handles POST /api/v1/jobs.
func (h *JobHandler) Create(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	job, err := h.jobs.Submit(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.GetLogger(c).WithError(err).Error("submit job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job: " + err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// Get handles GET /api/v1/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// List handles GET /api/v1/jobs.
func (h *JobHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.jobs.List(c.Request.Context(), domain.JobStatus(c.Query("status")), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs: " + err.Error()})
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	c.JSON(http.StatusOK, ListResponse{Jobs: jobs, Limit: limit, Offset: offset})
}
