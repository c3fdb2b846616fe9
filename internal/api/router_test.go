package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timmy/narrator/internal/api/handler"
	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/service"
)

type stubJobs struct {
	jobs      map[string]*domain.Job
	submitted []*service.CreateJobRequest
}

func (s *stubJobs) Submit(_ context.Context, req *service.CreateJobRequest) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.submitted = append(s.submitted, req)
	job := &domain.Job{ID: "job-1", Mode: req.Mode, Status: domain.JobStatusPending}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubJobs) Get(_ context.Context, id string) (*domain.Job, error) {
	if j, ok := s.jobs[id]; ok {
		return j, nil
	}
	return nil, service.ErrJobNotFound
}

func (s *stubJobs) List(_ context.Context, status domain.JobStatus, _, _ int) ([]domain.Job, error) {
	var out []domain.Job
	for _, j := range s.jobs {
		if status == "" || j.Status == status {
			out = append(out, *j)
		}
	}
	return out, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestRouter(jobs *stubJobs, health map[string]handler.Pinger) http.Handler {
	return SetupRouter(jobs, health, config.ServerConfig{Mode: "test", CORS: config.CORSConfig{AllowAllOrigins: true}})
}

func TestCreateAndGetJob(t *testing.T) {
	jobs := &stubJobs{jobs: map[string]*domain.Job{}}
	r := newTestRouter(jobs, nil)

	body, _ := json.Marshal(map[string]string{"mode": "story", "prompt": "a fox at dusk"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	var created domain.Job
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != "job-1" || created.Status != domain.JobStatusPending {
		t.Fatalf("created = %+v", created)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=pending", nil))
	var list handler.ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Limit != 20 {
		t.Fatalf("list = %+v", list)
	}
}

func TestCreateJobRejectsInvalid(t *testing.T) {
	jobs := &stubJobs{jobs: map[string]*domain.Job{}}
	r := newTestRouter(jobs, nil)

	for _, body := range []string{
		`{"mode": "story"}`,
		`{"mode": "movie", "prompt": "x"}`,
		`not json`,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString(body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, w.Code)
		}
	}
	if len(jobs.submitted) != 0 {
		t.Fatal("invalid request reached the service")
	}
}

func TestHealth(t *testing.T) {
	jobs := &stubJobs{jobs: map[string]*domain.Job{}}

	w := httptest.NewRecorder()
	newTestRouter(jobs, map[string]handler.Pinger{"queue": pinger{}}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	newTestRouter(jobs, map[string]handler.Pinger{"queue": pinger{err: errors.New("down")}}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded health status = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(&stubJobs{jobs: map[string]*domain.Job{}}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	req.Header.Set("Origin", "https://app.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("allow origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
