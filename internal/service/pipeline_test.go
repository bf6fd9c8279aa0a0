package service

import (
	"context"
	"errors"
	"testing"

	"github.com/YusovID/pr-analytics-service/internal/analysis"
	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	demoRepo  = github.RepoRef{Owner: "acme", Name: "demo"}
	otherRepo = github.RepoRef{Owner: "acme", Name: "other"}
)

func strPtr(s string) *string { return &s }

func testRequest(t *testing.T, links ...string) domain.ReportRequest {
	t.Helper()

	w, err := domain.ParseDateWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	return domain.ReportRequest{Login: "alice", RepoLinks: links, Window: w}
}

func newTestPipeline(hosting *HostingMock, analyzer *AnalyzerMock) *Pipeline {
	return NewPipeline(github.NewLocator("github.com", discardLogger()), hosting, analyzer, "all", discardLogger())
}

func TestPipeline_Collect(t *testing.T) {
	hosting := new(HostingMock)
	analyzer := new(AnalyzerMock)
	ctx := context.Background()

	hosting.On("ListPRs", ctx, demoRepo, "all", "alice").Return([]github.PullRequestDescriptor{
		{Number: 1, User: github.User{Login: "alice"}, CreatedAt: "2024-01-05T10:00:00Z"},
		{Number: 2, User: github.User{Login: "alice"}, CreatedAt: "2024-01-31T23:59:59Z",
			ClosedAt: strPtr("2024-02-02T00:00:00Z"), MergedAt: strPtr("2024-02-02T00:00:00Z")},
		{Number: 3, User: github.User{Login: "alice"}, CreatedAt: "2024-02-01T00:00:00Z"},
		{Number: 4, User: github.User{Login: "alice"}, CreatedAt: "not a date"},
	}, nil).Once()

	hosting.On("FetchCommits", ctx, demoRepo, 1).Return([]domain.Commit{{SHA: "a1"}}).Once()
	hosting.On("FetchCommits", ctx, demoRepo, 2).Return([]domain.Commit{}).Once()
	hosting.On("FetchDiff", ctx, demoRepo, 1).
		Return("diff --git a/main.go b/main.go\n+++ b/main.go\n+package main", nil).Once()
	hosting.On("FetchDiff", ctx, demoRepo, 2).Return("", errors.New("boom")).Once()

	analyzer.On("Analyze", ctx, analysis.Source{
		Paths: []string{"main.go"},
		Code:  "diff --git a/main.go b/main.go\n+++ b/main.go\npackage main",
	}).Return(analysis.Outcome[*domain.PRAnalysis]{Kind: analysis.Success, Value: domain.EmptyAnalysis()}).Once()

	prs, err := newTestPipeline(hosting, analyzer).Collect(ctx, testRequest(t,
		"https://github.com/acme/demo",
		"not a link",
	))
	require.NoError(t, err)
	require.Len(t, prs, 2)

	assert.Equal(t, 1, prs[0].PR.Number)
	assert.Equal(t, domain.PRStatusOpen, prs[0].PR.Status)
	assert.Equal(t, "success", prs[0].AnalysisStatus)
	assert.Equal(t, []domain.Commit{{SHA: "a1"}}, prs[0].PR.Commits)

	assert.Equal(t, 2, prs[1].PR.Number)
	assert.Equal(t, domain.PRStatusMerged, prs[1].PR.Status)
	assert.Equal(t, "failed", prs[1].AnalysisStatus)
	assert.Nil(t, prs[1].Analysis)

	hosting.AssertExpectations(t)
	analyzer.AssertExpectations(t)
}

func TestPipeline_Collect_RepositoryFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("One repository failing does not abort", func(t *testing.T) {
		hosting := new(HostingMock)
		analyzer := new(AnalyzerMock)

		hosting.On("ListPRs", ctx, demoRepo, "all", "alice").
			Return(nil, &apperrors.RateLimitError{Resource: "/search/issues", StatusCode: 403, Remaining: "0"}).Once()
		hosting.On("ListPRs", ctx, otherRepo, "all", "alice").Return([]github.PullRequestDescriptor{}, nil).Once()

		prs, err := newTestPipeline(hosting, analyzer).Collect(ctx, testRequest(t,
			"https://github.com/acme/demo", "https://github.com/acme/other"))
		require.NoError(t, err)
		assert.Empty(t, prs)
		hosting.AssertExpectations(t)
	})

	t.Run("Every repository failing is an error", func(t *testing.T) {
		hosting := new(HostingMock)
		analyzer := new(AnalyzerMock)

		hosting.On("ListPRs", ctx, demoRepo, "all", "alice").Return(nil, errors.New("down")).Once()

		_, err := newTestPipeline(hosting, analyzer).Collect(ctx, testRequest(t, "https://github.com/acme/demo"))
		assert.ErrorIs(t, err, ErrNoRepositories)
	})

	t.Run("No valid links yields an empty result", func(t *testing.T) {
		hosting := new(HostingMock)
		analyzer := new(AnalyzerMock)

		prs, err := newTestPipeline(hosting, analyzer).Collect(ctx, testRequest(t, "ftp://example.com/x"))
		require.NoError(t, err)
		assert.Empty(t, prs)
		hosting.AssertNotCalled(t, "ListPRs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
