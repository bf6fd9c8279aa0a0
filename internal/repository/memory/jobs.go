// Package memory keeps analysis jobs in process memory. Jobs do not survive a
// restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/repository"
)

type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]domain.AnalysisJob
	now  func() time.Time
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		jobs: make(map[string]domain.AnalysisJob),
		now:  time.Now,
	}
}

func (r *JobRegistry) Create(_ context.Context, job *domain.AnalysisJob) error {
	const op = "internal.repository.memory.Create"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ProcessID]; ok {
		return fmt.Errorf("%s: job %s already exists", op, job.ProcessID)
	}

	stored := *job
	now := r.now().UTC()

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	stored.UpdatedAt = now
	r.jobs[job.ProcessID] = stored

	return nil
}

func (r *JobRegistry) Get(_ context.Context, processID string) (*domain.AnalysisJob, error) {
	const op = "internal.repository.memory.Get"

	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[processID]
	if !ok {
		return nil, fmt.Errorf("%s: job %s: %w", op, processID, apperrors.ErrNotFound)
	}

	if job.ReportID != nil {
		id := *job.ReportID
		job.ReportID = &id
	}

	return &job, nil
}

func (r *JobRegistry) Update(_ context.Context, processID string, upd repository.JobUpdate) error {
	const op = "internal.repository.memory.Update"

	if err := repository.ValidateUpdate(upd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[processID]
	if !ok {
		return fmt.Errorf("%s: job %s: %w", op, processID, apperrors.ErrNotFound)
	}

	if job.Status.Terminal() {
		return fmt.Errorf("%s: job %s is %s: %w", op, processID, job.Status, apperrors.ErrInvalidTransition)
	}

	job.Status = upd.Status
	job.Message = upd.Message
	job.UpdatedAt = r.now().UTC()

	if upd.ReportID != nil {
		id := *upd.ReportID
		job.ReportID = &id
	}

	r.jobs[processID] = job

	return nil
}
