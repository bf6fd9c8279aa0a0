package service

import (
	"context"
	"sync"

	"github.com/YusovID/pr-analytics-service/internal/analysis"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/github"
	"github.com/YusovID/pr-analytics-service/internal/repository"
	"github.com/YusovID/pr-analytics-service/internal/worker"
	"github.com/stretchr/testify/mock"
)

type JobRegistryMock struct {
	mock.Mock
}

var _ repository.JobRegistry = (*JobRegistryMock)(nil)

func (m *JobRegistryMock) Create(ctx context.Context, job *domain.AnalysisJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *JobRegistryMock) Get(ctx context.Context, processID string) (*domain.AnalysisJob, error) {
	args := m.Called(ctx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.AnalysisJob), args.Error(1)
}

func (m *JobRegistryMock) Update(ctx context.Context, processID string, upd repository.JobUpdate) error {
	return m.Called(ctx, processID, upd).Error(0)
}

type ReportRepositoryMock struct {
	mock.Mock
}

var _ repository.ReportRepository = (*ReportRepositoryMock)(nil)

func (m *ReportRepositoryMock) Save(ctx context.Context, report *domain.Report) (int64, error) {
	args := m.Called(ctx, report)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReportRepositoryMock) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Report), args.Error(1)
}

type CollectorMock struct {
	mock.Mock
}

func (m *CollectorMock) Collect(ctx context.Context, req domain.ReportRequest) ([]domain.AnalyzedPR, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.AnalyzedPR), args.Error(1)
}

type AggregatorMock struct {
	mock.Mock
}

func (m *AggregatorMock) Aggregate(ctx context.Context, prs []domain.AnalyzedPR) analysis.Outcome[domain.AggregateReport] {
	return m.Called(ctx, prs).Get(0).(analysis.Outcome[domain.AggregateReport])
}

type HostingMock struct {
	mock.Mock
}

func (m *HostingMock) ListPRs(ctx context.Context, repo github.RepoRef, state, author string) ([]github.PullRequestDescriptor, error) {
	args := m.Called(ctx, repo, state, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]github.PullRequestDescriptor), args.Error(1)
}

func (m *HostingMock) FetchDiff(ctx context.Context, repo github.RepoRef, number int) (string, error) {
	args := m.Called(ctx, repo, number)
	return args.String(0), args.Error(1)
}

func (m *HostingMock) FetchCommits(ctx context.Context, repo github.RepoRef, number int) []domain.Commit {
	return m.Called(ctx, repo, number).Get(0).([]domain.Commit)
}

type AnalyzerMock struct {
	mock.Mock
}

func (m *AnalyzerMock) Analyze(ctx context.Context, src analysis.Source) analysis.Outcome[*domain.PRAnalysis] {
	return m.Called(ctx, src).Get(0).(analysis.Outcome[*domain.PRAnalysis])
}

// queueRecorder keeps enqueued tasks so tests can run them on demand.
type queueRecorder struct {
	mu       sync.Mutex
	names    []string
	tasks    []worker.Task
	abandons []worker.Task
}

func (q *queueRecorder) Enqueue(name string, task, abandon worker.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.names = append(q.names, name)
	q.tasks = append(q.tasks, task)
	q.abandons = append(q.abandons, abandon)
}

func (q *queueRecorder) abandonAll(ctx context.Context) {
	q.mu.Lock()
	abandons := q.abandons
	q.tasks = nil
	q.abandons = nil
	q.mu.Unlock()

	for _, a := range abandons {
		a(ctx)
	}
}

func (q *queueRecorder) runAll(ctx context.Context) {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.abandons = nil
	q.mu.Unlock()

	for _, t := range tasks {
		t(ctx)
	}
}
