package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

type Complexity struct {
	Level       string `json:"level"`
	Explanation string `json:"explanation"`
}

type CodeRating struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type Issue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type Antipattern struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PRAnalysis is the structured judgment returned by the model for one PR.
type PRAnalysis struct {
	Complexity      Complexity    `json:"complexity"`
	CodeRating      CodeRating    `json:"code_rating"`
	Issues          []Issue       `json:"issues"`
	Antipatterns    []Antipattern `json:"antipatterns"`
	PositiveAspects []string      `json:"positive_aspects"`
}

// EmptyAnalysis is the canonical empty result.
func EmptyAnalysis() *PRAnalysis {
	return &PRAnalysis{
		Issues:          []Issue{},
		Antipatterns:    []Antipattern{},
		PositiveAspects: []string{},
	}
}

func (a *PRAnalysis) IsEmpty() bool {
	return a == nil || (a.Complexity == Complexity{} && a.CodeRating == CodeRating{} &&
		len(a.Issues) == 0 && len(a.Antipatterns) == 0 && len(a.PositiveAspects) == 0)
}

// ScoreNotAvailable marks an aggregate that could not be computed.
const ScoreNotAvailable = "N/A"

// Score is the overall score of an aggregate report: a number, or "N/A".
type Score string

func (s Score) Available() bool { return s != "" && s != ScoreNotAvailable }

// Number reports the score as a finite number, if it is one.
func (s Score) Number() (float64, bool) {
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// Normalize maps an empty or non-finite numeric score to "N/A".
func (s Score) Normalize() Score {
	if s == "" {
		return ScoreNotAvailable
	}

	if _, err := strconv.ParseFloat(string(s), 64); err == nil {
		if _, ok := s.Number(); !ok {
			return ScoreNotAvailable
		}
	}

	return s
}

// MarshalJSON writes finite numbers in canonical form and anything else as a string.
func (s Score) MarshalJSON() ([]byte, error) {
	if f, ok := s.Number(); ok {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}

	if s == "" {
		return json.Marshal(ScoreNotAvailable)
	}

	return json.Marshal(string(s))
}

// UnmarshalJSON accepts numbers and strings; models are not consistent about it.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*s = ScoreNotAvailable
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Score(n.String())
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	*s = Score(str)

	return nil
}

type RecurringIssue struct {
	Issue string `json:"issue"`
}

type PRStatusStats struct {
	Open     int `json:"open"`
	Merged   int `json:"merged"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

func (s *PRStatusStats) Add(status PRStatus) {
	switch status {
	case PRStatusOpen:
		s.Open++
	case PRStatusMerged:
		s.Merged++
	case PRStatusRejected:
		s.Rejected++
	}

	s.Total++
}

type AggregateReport struct {
	OverallScore    Score            `json:"overall_score"`
	RecurringIssues []RecurringIssue `json:"recurring_issues"`
	Antipatterns    []Antipattern    `json:"antipatterns"`
	PRStatusStats   PRStatusStats    `json:"pr_status_stats"`
}

// DegradedAggregate is returned whenever a real summary could not be produced.
func DegradedAggregate(stats PRStatusStats) AggregateReport {
	return AggregateReport{
		OverallScore:    ScoreNotAvailable,
		RecurringIssues: []RecurringIssue{},
		Antipatterns:    []Antipattern{},
		PRStatusStats:   stats,
	}
}

// PRInfo is the PR metadata embedded in prompts and in the rendered report.
type PRInfo struct {
	ID         int      `json:"id"`
	Repository string   `json:"repository"`
	Author     string   `json:"author"`
	Link       string   `json:"link"`
	CreatedAt  string   `json:"created_at"`
	Status     PRStatus `json:"status"`
	Commits    []Commit `json:"commits,omitempty"`
}

func NewPRInfo(pr PullRequest) PRInfo {
	return PRInfo{
		ID:         pr.Number,
		Repository: pr.Repository,
		Author:     pr.Author,
		Link:       pr.Link,
		CreatedAt:  pr.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		Status:     pr.Status,
	}
}

type PRDetail struct {
	PRInfo         PRInfo      `json:"pr_info"`
	AnalysisStatus string      `json:"analysis_status"`
	Analysis       *PRAnalysis `json:"analysis"`
}

type ReportPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// FullReport is the downloadable artifact: the summary plus per-PR detail.
type FullReport struct {
	Login       string          `json:"login"`
	Period      ReportPeriod    `json:"period"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     AggregateReport `json:"summary"`
	Details     []PRDetail      `json:"details"`
}

func NewFullReport(req ReportRequest, summary AggregateReport, prs []AnalyzedPR, now time.Time) FullReport {
	details := make([]PRDetail, 0, len(prs))

	for _, p := range prs {
		info := NewPRInfo(p.PR)
		info.Commits = p.PR.Commits

		details = append(details, PRDetail{
			PRInfo:         info,
			AnalysisStatus: p.AnalysisStatus,
			Analysis:       p.Analysis,
		})
	}

	return FullReport{
		Login:       req.Login,
		Period:      req.Window.Period(),
		GeneratedAt: now.UTC(),
		Summary:     summary,
		Details:     details,
	}
}
