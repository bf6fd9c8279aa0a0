// Package github talks to the GitHub REST API: pull request listing, diffs and
// commits, plus the helpers that turn repository links and diffs into pipeline input.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/config"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/retry"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
	gh "github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
)

// PageSize is fixed: a page shorter than this ends pagination.
const PageSize = 100

const (
	acceptDiff = "application/vnd.github.v3.diff"
	userAgent  = "pr-analytics-service"

	maxErrorBody = 512
)

type Client struct {
	gh        *gh.Client
	pageDelay time.Duration
	retry     config.Retry
	log       *slog.Logger
}

func NewClient(cfg config.GitHub, log *slog.Logger) *Client {
	httpCli := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		httpCli.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   http.DefaultTransport,
		}
	}

	client := gh.NewClient(httpCli)
	client.UserAgent = userAgent

	base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/") + "/")
	if err != nil {
		log.Error("invalid hosting API url, using the public endpoint",
			slog.String("api_url", cfg.APIURL),
			sl.Err(err),
		)
	} else {
		client.BaseURL = base
	}

	return &Client{
		gh:        client,
		pageDelay: cfg.PageDelay,
		retry:     cfg.Retry,
		log:       log,
	}
}

type User struct {
	Login string `json:"login"`
}

type pullRequestLinks struct {
	MergedAt *string `json:"merged_at"`
}

// PullRequestDescriptor is a PR as returned by either the pulls listing or the
// issue search endpoint. Timestamps stay raw until ToDomain.
type PullRequestDescriptor struct {
	Number      int               `json:"number"`
	Title       string            `json:"title"`
	HTMLURL     string            `json:"html_url"`
	User        User              `json:"user"`
	CreatedAt   string            `json:"created_at"`
	ClosedAt    *string           `json:"closed_at"`
	MergedAt    *string           `json:"merged_at"`
	PullRequest *pullRequestLinks `json:"pull_request,omitempty"`
}

// ToDomain parses timestamps and derives the PR status. Search results carry the
// merge time under pull_request.merged_at.
func (d PullRequestDescriptor) ToDomain(repo RepoRef) (domain.PullRequest, error) {
	created, err := time.Parse(time.RFC3339, d.CreatedAt)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("%w: PR #%d created_at %q", apperrors.ErrValidation, d.Number, d.CreatedAt)
	}

	closed, err := parseOptionalTime(d.ClosedAt)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("%w: PR #%d closed_at: %v", apperrors.ErrValidation, d.Number, err)
	}

	mergedRaw := d.MergedAt
	if mergedRaw == nil && d.PullRequest != nil {
		mergedRaw = d.PullRequest.MergedAt
	}

	merged, err := parseOptionalTime(mergedRaw)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("%w: PR #%d merged_at: %v", apperrors.ErrValidation, d.Number, err)
	}

	return domain.PullRequest{
		Number:     d.Number,
		Repository: repo.String(),
		Author:     d.User.Login,
		Link:       d.HTMLURL,
		CreatedAt:  created.UTC(),
		ClosedAt:   closed,
		MergedAt:   merged,
		Status:     domain.DerivePRStatus(closed, merged),
	}, nil
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, err
	}

	t = t.UTC()

	return &t, nil
}

type searchResponse struct {
	TotalCount int                     `json:"total_count"`
	Items      []PullRequestDescriptor `json:"items"`
}

// ListPRs returns every PR of repo in state. With a non-empty author the issue
// search endpoint is used, since the pulls listing cannot filter by author.
// Descriptors keep raw timestamps so one malformed PR does not fail a page.
func (c *Client) ListPRs(ctx context.Context, repo RepoRef, state, author string) ([]PullRequestDescriptor, error) {
	const op = "internal.github.ListPRs"

	if author != "" {
		q := fmt.Sprintf("type:pr repo:%s author:%s", repo, author)
		if state != "" && state != "all" {
			q += " state:" + state
		}

		return paginate(ctx, c, op, func(ctx context.Context, page int) ([]PullRequestDescriptor, error) {
			u := "search/issues?" + url.Values{
				"q":        {q},
				"per_page": {strconv.Itoa(PageSize)},
				"page":     {strconv.Itoa(page)},
			}.Encode()

			var resp searchResponse
			if err := c.getJSON(ctx, op, u, &resp); err != nil {
				return nil, err
			}

			return resp.Items, nil
		})
	}

	if state == "" {
		state = "all"
	}

	return paginate(ctx, c, op, func(ctx context.Context, page int) ([]PullRequestDescriptor, error) {
		u := fmt.Sprintf("repos/%s/%s/pulls?", repo.Owner, repo.Name) + url.Values{
			"state":    {state},
			"per_page": {strconv.Itoa(PageSize)},
			"page":     {strconv.Itoa(page)},
		}.Encode()

		var items []PullRequestDescriptor
		if err := c.getJSON(ctx, op, u, &items); err != nil {
			return nil, err
		}

		return items, nil
	})
}

// FetchDiff returns the unified diff of one PR.
func (c *Client) FetchDiff(ctx context.Context, repo RepoRef, number int) (string, error) {
	const op = "internal.github.FetchDiff"

	var diff string

	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		raw, resp, err := c.gh.PullRequests.GetRaw(ctx, repo.Owner, repo.Name, number, gh.RawOptions{Type: gh.Diff})
		if err != nil {
			return mapError(op, repo.String(), resp, err)
		}

		diff = raw

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: PR #%d of %s: %w", op, number, repo, err)
	}

	return diff, nil
}

// FetchCommits returns the commits of one PR. Failures are logged and yield an
// empty list.
func (c *Client) FetchCommits(ctx context.Context, repo RepoRef, number int) []domain.Commit {
	const op = "internal.github.FetchCommits"

	raw, err := paginate(ctx, c, op, func(ctx context.Context, page int) ([]*gh.RepositoryCommit, error) {
		var commits []*gh.RepositoryCommit

		err := c.withRetry(ctx, op, func(ctx context.Context) error {
			items, resp, err := c.gh.PullRequests.ListCommits(ctx, repo.Owner, repo.Name, number,
				&gh.ListOptions{Page: page, PerPage: PageSize})
			if err != nil {
				return mapError(op, repo.String(), resp, err)
			}

			commits = items

			return nil
		})

		return commits, err
	})
	if err != nil {
		c.log.Error("failed to fetch commits",
			slog.String("op", op),
			slog.String("repo", repo.String()),
			slog.Int("pr", number),
			sl.Err(err),
		)

		return []domain.Commit{}
	}

	commits := make([]domain.Commit, len(raw))
	for i, rc := range raw {
		commits[i] = domain.Commit{
			SHA:        rc.GetSHA(),
			Message:    rc.GetCommit().GetMessage(),
			AuthorName: rc.GetCommit().GetAuthor().GetName(),
		}
	}

	return commits
}

// paginate requests pages 1, 2, ... until one holds fewer than PageSize items,
// waiting pageDelay between requests.
func paginate[T any](
	ctx context.Context,
	c *Client,
	op string,
	fetch func(ctx context.Context, page int) ([]T, error),
) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		if page > 1 {
			if err := retry.Sleep(ctx, c.pageDelay); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		items, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("%s: page %d: %w", op, page, err)
		}

		all = append(all, items...)

		if len(items) < PageSize {
			return all, nil
		}
	}
}

// getJSON fetches u under the retry policy and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, op, u string, v any) error {
	var body []byte

	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("%s: failed to create request: %w", op, err)
		}

		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		var buf bytes.Buffer

		resp, err := c.gh.Do(ctx, req, &buf)
		if err != nil {
			return mapError(op, req.URL.Path, resp, err)
		}

		body = buf.Bytes()

		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// withRetry runs call under the hosting retry policy. Rate limit answers are not
// retried.
func (c *Client) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	log := c.log.With(slog.String("op", op))

	policy := retry.Policy{
		MaxAttempts: c.retry.MaxAttempts,
		Delay:       c.retry.Delay,
		Retryable: func(err error) bool {
			return apperrors.IsTransportError(err) && !errors.Is(err, apperrors.ErrRateLimited)
		},
		OnRetry: func(attempt int, err error) {
			log.Warn("hosting request failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", c.retry.Delay),
				sl.Err(err),
			)
		},
	}

	err := retry.Do(ctx, policy, call)
	if err != nil && errors.Is(err, apperrors.ErrRateLimited) {
		log.Error("hosting API rate limit hit", sl.Err(err))
	}

	return err
}

// mapError turns a go-github failure into the service taxonomy: 403 and 429
// answers are rate limits, other HTTP failures and connection problems are
// transport errors.
func mapError(op, resource string, resp *gh.Response, err error) error {
	var (
		rle   *gh.RateLimitError
		abuse *gh.AbuseRateLimitError
		er    *gh.ErrorResponse
	)

	switch {
	case errors.As(err, &rle) && rle.Response != nil:
		return rateLimitError(resource, rle.Response)
	case errors.As(err, &abuse) && abuse.Response != nil:
		return rateLimitError(resource, abuse.Response)
	case errors.As(err, &er) && er.Response != nil:
		code := er.Response.StatusCode
		if code == http.StatusForbidden || code == http.StatusTooManyRequests {
			return rateLimitError(resource, er.Response)
		}

		return &apperrors.TransportError{
			Op:         op,
			StatusCode: code,
			Err:        errors.New(truncate(er.Error(), maxErrorBody)),
		}
	}

	if resp != nil && resp.Response != nil && resp.StatusCode >= http.StatusBadRequest {
		return &apperrors.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	return &apperrors.TransportError{Op: op, Err: err}
}

func rateLimitError(resource string, resp *http.Response) *apperrors.RateLimitError {
	rl := &apperrors.RateLimitError{
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
	}

	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(reset, 0).UTC()
	}

	return rl
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
