package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/config"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/retry"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
)

type Aggregator struct {
	llm     Completer
	prompts *Prompts
	retry   config.Retry
	log     *slog.Logger
}

func NewAggregator(llm Completer, prompts *Prompts, policy config.Retry, log *slog.Logger) *Aggregator {
	return &Aggregator{
		llm:     llm,
		prompts: prompts,
		retry:   policy,
		log:     log,
	}
}

type aggregateItem struct {
	PRInfo   domain.PRInfo      `json:"pr_info"`
	Analysis *domain.PRAnalysis `json:"analysis"`
}

type aggregateAnswer struct {
	OverallScore    domain.Score            `json:"overall_score"`
	RecurringIssues []domain.RecurringIssue `json:"recurring_issues"`
	Antipatterns    []domain.Antipattern    `json:"antipatterns"`
}

// Aggregate summarizes every analyzed PR in one model call. Status counts are
// always computed here, so even a degraded summary reports them correctly. No
// call is made when there is nothing to summarize.
func (a *Aggregator) Aggregate(ctx context.Context, prs []domain.AnalyzedPR) Outcome[domain.AggregateReport] {
	const op = "internal.analysis.Aggregate"
	log := a.log.With(slog.String("op", op), slog.Int("prs", len(prs)))

	var stats domain.PRStatusStats

	items := make([]aggregateItem, 0, len(prs))

	for _, p := range prs {
		stats.Add(p.PR.Status)

		if p.Analysis.IsEmpty() {
			continue
		}

		items = append(items, aggregateItem{PRInfo: domain.NewPRInfo(p.PR), Analysis: p.Analysis})
	}

	if len(items) == 0 {
		log.Info("no analyses to aggregate")
		observe("aggregate", Degraded)

		return degraded(domain.DegradedAggregate(stats), nil)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		observe("aggregate", Degraded)
		return degraded(domain.DegradedAggregate(stats), fmt.Errorf("%s: failed to marshal analyses: %w", op, err))
	}

	prompt, err := a.prompts.renderAggregate(string(data))
	if err != nil {
		observe("aggregate", Degraded)
		return degraded(domain.DegradedAggregate(stats), fmt.Errorf("%s: failed to render prompt: %w", op, err))
	}

	var content string

	policy := retry.Policy{
		MaxAttempts: a.retry.MaxAttempts,
		Delay:       a.retry.Delay,
		Retryable:   apperrors.IsConnectionError,
		OnRetry: func(attempt int, err error) {
			log.Warn("inference backend unreachable, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", a.retry.Delay),
				sl.Err(err),
			)
		},
	}

	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		c, err := a.llm.Complete(ctx, prompt)
		if err != nil {
			return err
		}

		content = c

		return nil
	})
	if err != nil {
		log.Error("aggregation unavailable", sl.Err(err))
		observe("aggregate", Degraded)

		return degraded(domain.DegradedAggregate(stats), fmt.Errorf("%s: %w", op, err))
	}

	var answer aggregateAnswer
	if err := decodeAnswer(content, &answer); err != nil {
		log.Error("failed to parse aggregate", sl.Err(err))
		observe("aggregate", Degraded)

		return degraded(domain.DegradedAggregate(stats), fmt.Errorf("%s: %w", op, err))
	}

	report := domain.AggregateReport{
		OverallScore:    answer.OverallScore,
		RecurringIssues: answer.RecurringIssues,
		Antipatterns:    answer.Antipatterns,
		PRStatusStats:   stats,
	}

	report.OverallScore = report.OverallScore.Normalize()

	if report.RecurringIssues == nil {
		report.RecurringIssues = []domain.RecurringIssue{}
	}

	if report.Antipatterns == nil {
		report.Antipatterns = []domain.Antipattern{}
	}

	observe("aggregate", Success)

	return succeeded(report)
}
