package http

import (
	"context"

	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/service"
	"github.com/stretchr/testify/mock"
)

type ReportServiceMock struct {
	mock.Mock
}

var _ service.ReportService = (*ReportServiceMock)(nil)

func (m *ReportServiceMock) Submit(ctx context.Context, req service.SubmitRequest) (*domain.AnalysisJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.AnalysisJob), args.Error(1)
}

func (m *ReportServiceMock) Status(ctx context.Context, processID string) (*domain.AnalysisJob, error) {
	args := m.Called(ctx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.AnalysisJob), args.Error(1)
}

func (m *ReportServiceMock) Download(ctx context.Context, reportID int64) (*domain.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Report), args.Error(1)
}
