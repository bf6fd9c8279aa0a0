package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/YusovID/pr-analytics-service/internal/analysis"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/github"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
)

var ErrNoRepositories = errors.New("no repository could be read")

type RepoLocator interface {
	Locate(links []string) []github.RepoRef
}

type Hosting interface {
	ListPRs(ctx context.Context, repo github.RepoRef, state, author string) ([]github.PullRequestDescriptor, error)
	FetchDiff(ctx context.Context, repo github.RepoRef, number int) (string, error)
	FetchCommits(ctx context.Context, repo github.RepoRef, number int) []domain.Commit
}

type PRAnalyzer interface {
	Analyze(ctx context.Context, src analysis.Source) analysis.Outcome[*domain.PRAnalysis]
}

type SummaryAggregator interface {
	Aggregate(ctx context.Context, prs []domain.AnalyzedPR) analysis.Outcome[domain.AggregateReport]
}

// Collector gathers and analyzes every PR a report covers.
type Collector interface {
	Collect(ctx context.Context, req domain.ReportRequest) ([]domain.AnalyzedPR, error)
}

// Pipeline walks repositories and their PRs one at a time. A failing repository
// or PR is logged and left out; the run only fails when no repository at all
// could be listed.
type Pipeline struct {
	locator  RepoLocator
	hosting  Hosting
	analyzer PRAnalyzer
	state    string
	log      *slog.Logger
}

func NewPipeline(locator RepoLocator, hosting Hosting, analyzer PRAnalyzer, state string, log *slog.Logger) *Pipeline {
	return &Pipeline{
		locator:  locator,
		hosting:  hosting,
		analyzer: analyzer,
		state:    state,
		log:      log,
	}
}

func (p *Pipeline) Collect(ctx context.Context, req domain.ReportRequest) ([]domain.AnalyzedPR, error) {
	const op = "internal.service.pipeline.Collect"
	log := p.log.With(slog.String("op", op), slog.String("login", req.Login))

	repos := p.locator.Locate(req.RepoLinks)
	if len(repos) == 0 {
		log.Warn("no valid repository links", slog.Int("links", len(req.RepoLinks)))
		return []domain.AnalyzedPR{}, nil
	}

	var (
		collected = []domain.AnalyzedPR{}
		listed    int
	)

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		descs, err := p.hosting.ListPRs(ctx, repo, p.state, req.Login)
		if err != nil {
			log.Error("failed to list pull requests", slog.String("repo", repo.String()), sl.Err(err))
			continue
		}

		listed++

		for _, desc := range descs {
			pr, err := desc.ToDomain(repo)
			if err != nil {
				log.Warn("skipping pull request", slog.String("repo", repo.String()), sl.Err(err))
				continue
			}

			if !req.Window.Contains(pr.CreatedAt) {
				continue
			}

			collected = append(collected, p.process(ctx, log, repo, pr))
		}

		log.Info("repository processed", slog.String("repo", repo.String()), slog.Int("listed", len(descs)))
	}

	if listed == 0 {
		return nil, fmt.Errorf("%s: %w (%d requested)", op, ErrNoRepositories, len(repos))
	}

	return collected, nil
}

func (p *Pipeline) process(ctx context.Context, log *slog.Logger, repo github.RepoRef, pr domain.PullRequest) domain.AnalyzedPR {
	log = log.With(slog.String("repo", repo.String()), slog.Int("pr", pr.Number))

	pr.Commits = p.hosting.FetchCommits(ctx, repo, pr.Number)

	diff, err := p.hosting.FetchDiff(ctx, repo, pr.Number)
	if err != nil {
		log.Error("failed to fetch diff, analysis skipped", sl.Err(err))

		return domain.AnalyzedPR{PR: pr, AnalysisStatus: analysis.Failure.String()}
	}

	pr.Code = github.ExtractCode(diff)

	out := p.analyzer.Analyze(ctx, analysis.Source{
		Paths: github.ChangedFiles(diff),
		Code:  pr.Code,
	})
	if out.Err != nil {
		log.Warn("analysis incomplete", slog.String("outcome", out.Kind.String()), sl.Err(out.Err))
	}

	return domain.AnalyzedPR{
		PR:             pr,
		Analysis:       out.Value,
		AnalysisStatus: out.Kind.String(),
	}
}
