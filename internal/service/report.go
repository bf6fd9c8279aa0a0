package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/repository"
	"github.com/YusovID/pr-analytics-service/internal/worker"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
	"github.com/google/uuid"
)

const (
	MessageStarted     = "report generation started"
	MessageCompleted   = "report generated"
	MessageInterrupted = "service stopped before the report was generated"
)

// SubmitRequest is a report request as received from a client.
type SubmitRequest struct {
	Login     string
	RepoLinks []string
	StartDate string
	EndDate   string
}

type ReportService interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.AnalysisJob, error)
	Status(ctx context.Context, processID string) (*domain.AnalysisJob, error)
	Download(ctx context.Context, reportID int64) (*domain.Report, error)
}

// Enqueuer hands work to the background workers without blocking.
// abandon runs instead of task when the workers stop before reaching it.
type Enqueuer interface {
	Enqueue(name string, task, abandon worker.Task)
}

type ReportServiceImpl struct {
	log        *slog.Logger
	jobs       repository.JobRegistry
	reports    repository.ReportRepository
	collector  Collector
	aggregator SummaryAggregator
	queue      Enqueuer
	now        func() time.Time
}

func NewReportService(
	log *slog.Logger,
	jobs repository.JobRegistry,
	reports repository.ReportRepository,
	collector Collector,
	aggregator SummaryAggregator,
	queue Enqueuer,
) *ReportServiceImpl {
	return &ReportServiceImpl{
		log:        log,
		jobs:       jobs,
		reports:    reports,
		collector:  collector,
		aggregator: aggregator,
		queue:      queue,
		now:        time.Now,
	}
}

// Submit registers a pending job and queues it. It returns as soon as the job is
// stored.
func (s *ReportServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*domain.AnalysisJob, error) {
	const op = "internal.service.report.Submit"

	window, err := domain.ParseDateWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if strings.TrimSpace(req.Login) == "" {
		return nil, fmt.Errorf("%w: login is required", apperrors.ErrValidation)
	}

	if len(req.RepoLinks) == 0 {
		return nil, fmt.Errorf("%w: at least one repository link is required", apperrors.ErrValidation)
	}

	job := &domain.AnalysisJob{
		ProcessID: uuid.NewString(),
		Login:     req.Login,
		Status:    domain.JobStatusPending,
		Message:   MessageStarted,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("%s: failed to register job: %w", op, err)
	}

	reportReq := domain.ReportRequest{
		Login:     req.Login,
		RepoLinks: req.RepoLinks,
		Window:    window,
	}

	s.queue.Enqueue("report:"+job.ProcessID, func(ctx context.Context) {
		s.run(ctx, job.ProcessID, reportReq)
	}, func(ctx context.Context) {
		s.fail(ctx, s.log.With(slog.String("op", op), slog.String("process_id", job.ProcessID)),
			job.ProcessID, s.now(), MessageInterrupted)
	})

	jobsTotal.WithLabelValues("submitted").Inc()

	s.log.Info("job submitted",
		slog.String("op", op),
		slog.String("process_id", job.ProcessID),
		slog.String("login", req.Login),
		slog.Int("repositories", len(req.RepoLinks)),
	)

	return job, nil
}

func (s *ReportServiceImpl) Status(ctx context.Context, processID string) (*domain.AnalysisJob, error) {
	const op = "internal.service.report.Status"

	job, err := s.jobs.Get(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return job, nil
}

func (s *ReportServiceImpl) Download(ctx context.Context, reportID int64) (*domain.Report, error) {
	const op = "internal.service.report.Download"

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return report, nil
}

// run produces and stores the report for one job and records the result in the
// registry. Nothing escapes it, panics included.
func (s *ReportServiceImpl) run(ctx context.Context, processID string, req domain.ReportRequest) {
	const op = "internal.service.report.run"
	log := s.log.With(slog.String("op", op), slog.String("process_id", processID))
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			s.fail(ctx, log, processID, start, fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Info("job started")

	prs, err := s.collector.Collect(ctx, req)
	if err != nil {
		log.Error("failed to collect pull requests", sl.Err(err))
		s.fail(ctx, log, processID, start, fmt.Sprintf("failed to collect pull requests: %v", err))

		return
	}

	summary := s.aggregator.Aggregate(ctx, prs)
	if summary.Err != nil {
		log.Warn("summary degraded", sl.Err(summary.Err))
	}

	now := s.now()
	full := domain.NewFullReport(req, summary.Value, prs, now)

	data, err := json.MarshalIndent(full, "", "  ")
	if err != nil {
		s.fail(ctx, log, processID, start, fmt.Sprintf("failed to render report: %v", err))
		return
	}

	reportID, err := s.reports.Save(ctx, &domain.Report{
		Author:       req.Login,
		CreationDate: now.UTC(),
		FileData:     data,
	})
	if err != nil {
		log.Error("failed to persist report", sl.Err(err))
		s.fail(ctx, log, processID, start, fmt.Sprintf("%v: %v", apperrors.ErrPersistence, err))

		return
	}

	err = s.jobs.Update(ctx, processID, repository.JobUpdate{
		Status:   domain.JobStatusCompleted,
		Message:  MessageCompleted,
		ReportID: &reportID,
	})
	if err != nil {
		log.Error("failed to mark job completed", sl.Err(err), slog.Int64("report_id", reportID))
		s.fail(ctx, log, processID, start, fmt.Sprintf("%v: failed to record report %d: %v", apperrors.ErrPersistence, reportID, err))

		return
	}

	jobsTotal.WithLabelValues(string(domain.JobStatusCompleted)).Inc()
	jobDuration.WithLabelValues(string(domain.JobStatusCompleted)).Observe(s.now().Sub(start).Seconds())

	log.Info("job completed",
		slog.Int64("report_id", reportID),
		slog.Int("prs", len(prs)),
		slog.String("summary", summary.Kind.String()),
	)
}

func (s *ReportServiceImpl) fail(ctx context.Context, log *slog.Logger, processID string, start time.Time, message string) {
	err := s.jobs.Update(ctx, processID, repository.JobUpdate{
		Status:  domain.JobStatusFailed,
		Message: message,
	})
	if err != nil {
		log.Error("failed to mark job failed", sl.Err(err))
		return
	}

	jobsTotal.WithLabelValues(string(domain.JobStatusFailed)).Inc()
	jobDuration.WithLabelValues(string(domain.JobStatusFailed)).Observe(s.now().Sub(start).Seconds())
}
