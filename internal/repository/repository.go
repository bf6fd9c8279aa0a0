// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying storage from the service layer.
package repository

import (
	"context"
	"fmt"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/domain"
)

// ReportRepository stores rendered report artifacts.
type ReportRepository interface {
	// Save inserts the report and returns its generated id.
	// Failures match apperrors.ErrPersistence.
	Save(ctx context.Context, report *domain.Report) (int64, error)

	// GetByID returns apperrors.ErrNotFound for an unknown id.
	GetByID(ctx context.Context, id int64) (*domain.Report, error)
}

// JobUpdate is the terminal state a pending job moves to.
type JobUpdate struct {
	Status   domain.JobStatus
	Message  string
	ReportID *int64
}

// JobRegistry tracks the lifecycle of analysis jobs.
type JobRegistry interface {
	Create(ctx context.Context, job *domain.AnalysisJob) error

	// Get returns apperrors.ErrNotFound for an unknown process id.
	Get(ctx context.Context, processID string) (*domain.AnalysisJob, error)

	// Update moves a pending job to a terminal state. It returns
	// apperrors.ErrInvalidTransition when the job is already terminal or the
	// update itself is not allowed.
	Update(ctx context.Context, processID string, upd JobUpdate) error
}

// ValidateUpdate checks the rules shared by every JobRegistry: only terminal
// targets, and a completed job always points at a report.
func ValidateUpdate(upd JobUpdate) error {
	if !upd.Status.Terminal() {
		return fmt.Errorf("%w: target status %q", apperrors.ErrInvalidTransition, upd.Status)
	}

	if upd.Status == domain.JobStatusCompleted && upd.ReportID == nil {
		return fmt.Errorf("%w: completed job without report id", apperrors.ErrInvalidTransition)
	}

	return nil
}
