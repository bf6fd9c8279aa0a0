package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var jobColumns = []string{"process_id", "login", "status", "message", "report_id", "created_at", "updated_at"}

// JobRegistry persists analysis jobs so their status survives a restart.
// Transitions are conditional on the row still being pending.
type JobRegistry struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewJobRegistry(db *sqlx.DB, log *slog.Logger) *JobRegistry {
	return &JobRegistry{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (jr *JobRegistry) Create(ctx context.Context, job *domain.AnalysisJob) error {
	const op = "internal.repository.postgres.CreateJob"

	query, args, err := jr.sq.Insert("analysis_jobs").
		Columns("process_id", "login", "status", "message").
		Values(job.ProcessID, job.Login, job.Status, job.Message).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build job insert query: %w", op, err)
	}

	if _, err := jr.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%s: job %s already exists", op, job.ProcessID)
		}

		return fmt.Errorf("%s: failed to insert job: %w", op, err)
	}

	return nil
}

func (jr *JobRegistry) Get(ctx context.Context, processID string) (*domain.AnalysisJob, error) {
	const op = "internal.repository.postgres.GetJob"

	// process_id is a uuid column; anything else cannot match a row.
	if _, err := uuid.Parse(processID); err != nil {
		return nil, fmt.Errorf("%s: job %s: %w", op, processID, apperrors.ErrNotFound)
	}

	query, args, err := jr.sq.Select(jobColumns...).
		From("analysis_jobs").
		Where(sq.Eq{"process_id": processID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build job select query: %w", op, err)
	}

	var job domain.AnalysisJob
	if err := jr.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: job %s: %w", op, processID, apperrors.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get job: %w", op, err)
	}

	return &job, nil
}

func (jr *JobRegistry) Update(ctx context.Context, processID string, upd repository.JobUpdate) error {
	const op = "internal.repository.postgres.UpdateJob"
	log := jr.log.With(slog.String("op", op), slog.String("process_id", processID))

	if err := repository.ValidateUpdate(upd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := uuid.Parse(processID); err != nil {
		return fmt.Errorf("%s: job %s: %w", op, processID, apperrors.ErrNotFound)
	}

	query, args, err := jr.sq.Update("analysis_jobs").
		Set("status", upd.Status).
		Set("message", upd.Message).
		Set("report_id", upd.ReportID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"process_id": processID, "status": domain.JobStatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build job update query: %w", op, err)
	}

	res, err := jr.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to update job: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		current, err := jr.Get(ctx, processID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return fmt.Errorf("%s: job %s is %s: %w", op, processID, current.Status, apperrors.ErrInvalidTransition)
	}

	log.Debug("job updated", slog.String("status", string(upd.Status)))

	return nil
}

// FailPending marks every job still pending as failed. Called at startup: no job
// of a previous process can still be running.
func (jr *JobRegistry) FailPending(ctx context.Context, message string) (int64, error) {
	const op = "internal.repository.postgres.FailPending"

	query, args, err := jr.sq.Update("analysis_jobs").
		Set("status", domain.JobStatusFailed).
		Set("message", message).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"status": domain.JobStatusPending}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	res, err := jr.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to fail pending jobs: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return affected, nil
}
