package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/config"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/retry"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
)

// TruncationMarker is appended to code cut at the character budget.
const TruncationMarker = "...[content truncated: exceeded maximum length]"

// Source is the input of one PR analysis.
type Source struct {
	// Paths are the files the PR touches.
	Paths []string
	Code  string
}

type Analyzer struct {
	llm      Completer
	prompts  *Prompts
	maxChars int
	ciPaths  []string
	retry    config.Retry
	log      *slog.Logger
}

func NewAnalyzer(llm Completer, prompts *Prompts, cfg config.Analysis, policy config.Retry, log *slog.Logger) *Analyzer {
	return &Analyzer{
		llm:      llm,
		prompts:  prompts,
		maxChars: cfg.MaxCodeChars,
		ciPaths:  cfg.CIPaths,
		retry:    policy,
		log:      log,
	}
}

// Analyze asks the model for a structured judgment of src.Code.
//
// PRs that only touch CI configuration are not sent and succeed with an empty
// analysis. When the backend stays unreachable the outcome is Degraded with an
// empty analysis; an unparsable answer is a Failure.
func (a *Analyzer) Analyze(ctx context.Context, src Source) Outcome[*domain.PRAnalysis] {
	const op = "internal.analysis.Analyze"
	log := a.log.With(slog.String("op", op))

	if a.onlyCIConfig(src.Paths) {
		log.Debug("skipping CI-only change", slog.Any("paths", src.Paths))
		observe("analyze", Success)

		return succeeded(domain.EmptyAnalysis())
	}

	prompt, err := a.prompts.renderAnalyze(a.truncate(src.Code))
	if err != nil {
		observe("analyze", Failure)
		return failed[*domain.PRAnalysis](fmt.Errorf("%s: failed to render prompt: %w", op, err))
	}

	content, err := a.complete(ctx, log, prompt)
	if err != nil {
		log.Error("analysis unavailable, using empty result", sl.Err(err))
		observe("analyze", Degraded)

		return degraded(domain.EmptyAnalysis(), fmt.Errorf("%s: %w", op, err))
	}

	var result domain.PRAnalysis
	if err := decodeAnswer(content, &result); err != nil {
		log.Error("failed to parse analysis", sl.Err(err))
		observe("analyze", Failure)

		return failed[*domain.PRAnalysis](fmt.Errorf("%s: %w", op, err))
	}

	normalize(&result)
	observe("analyze", Success)

	return succeeded(&result)
}

// complete retries connection failures only; an HTTP error from the backend is
// final.
func (a *Analyzer) complete(ctx context.Context, log *slog.Logger, prompt string) (string, error) {
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

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		c, err := a.llm.Complete(ctx, prompt)
		if err != nil {
			return err
		}

		content = c

		return nil
	})

	return content, err
}

func (a *Analyzer) truncate(code string) string {
	if a.maxChars <= 0 || utf8.RuneCountInString(code) <= a.maxChars {
		return code
	}

	return string([]rune(code)[:a.maxChars]) + TruncationMarker
}

func (a *Analyzer) onlyCIConfig(paths []string) bool {
	if len(paths) == 0 {
		return false
	}

	for _, p := range paths {
		if !a.isCIConfig(p) {
			return false
		}
	}

	return true
}

// isCIConfig matches directory entries (trailing slash) by prefix and file
// entries by exact path.
func (a *Analyzer) isCIConfig(path string) bool {
	for _, ci := range a.ciPaths {
		ci = strings.TrimSpace(ci)
		if ci == "" {
			continue
		}

		if strings.HasSuffix(ci, "/") {
			if strings.HasPrefix(path, ci) {
				return true
			}

			continue
		}

		if path == ci {
			return true
		}
	}

	return false
}

func normalize(a *domain.PRAnalysis) {
	if a.Issues == nil {
		a.Issues = []domain.Issue{}
	}

	if a.Antipatterns == nil {
		a.Antipatterns = []domain.Antipattern{}
	}

	if a.PositiveAspects == nil {
		a.PositiveAspects = []string{}
	}
}
