package verify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickvault/internal/logger"
	"tickvault/internal/run"
)

// Job statuses.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Job is one asynchronous verification. Done means the pass completed; the
// verification verdict itself is Report.OK.
type Job struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Report    *Report   `json:"report,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// The report pointer is shared, not copied: a report is written once before
// the job reaches a terminal status and never mutated after.
func (j *Job) copy() Job { return *j }

// Service runs verifications in the background and keeps their state in
// memory for polling. Restarts forget jobs; reports are recomputable.
type Service struct {
	root string

	mu   sync.RWMutex
	jobs map[string]*Job

	baseCtx context.Context
}

func NewService(root string) *Service {
	return &Service{
		root:    root,
		jobs:    make(map[string]*Job),
		baseCtx: context.Background(),
	}
}

// SetContext injects the host context used to cancel running jobs.
func (s *Service) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

func (s *Service) ctx() context.Context {
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

// Submit queues a verification for one run and returns the pending job. The
// run must exist; everything after that is reported through the job.
func (s *Service) Submit(runID string) (Job, error) {
	d, err := run.Open(s.root, runID)
	if err != nil {
		return Job{}, fmt.Errorf("verify submit: %w", err)
	}
	job := &Job{
		ID:        uuid.NewString(),
		RunID:     runID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	logger.Infof("verify: job %s submitted for run %s", job.ID, runID)

	go s.runJob(job.ID, d)
	return job.copy(), nil
}

func (s *Service) runJob(jobID string, d *run.Dir) {
	s.updateJob(jobID, func(j *Job) {
		j.Status = JobStatusRunning
		j.UpdatedAt = time.Now()
	})
	rep, err := Run(s.ctx(), d)
	if err != nil {
		s.updateJob(jobID, func(j *Job) {
			j.Status = JobStatusFailed
			j.Message = err.Error()
			j.UpdatedAt = time.Now()
		})
		logger.Warnf("verify: job %s failed: %v", jobID, err)
		return
	}
	message := "all checks passed"
	if !rep.OK {
		message = "issues found"
	}
	s.updateJob(jobID, func(j *Job) {
		j.Status = JobStatusDone
		j.Message = message
		j.Report = rep
		j.UpdatedAt = time.Now()
	})
	logger.Infof("verify: job %s done for run %s ok=%v", jobID, d.ID(), rep.OK)
}

func (s *Service) updateJob(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok && fn != nil {
		fn(job)
	}
}

// Snapshot returns a copy of one job.
func (s *Service) Snapshot(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

// Jobs returns copies of all known jobs, newest first.
func (s *Service) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}
