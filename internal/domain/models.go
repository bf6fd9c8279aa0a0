package domain

import (
	"time"
)

type PRStatus string

const (
	PRStatusOpen     PRStatus = "open"
	PRStatusMerged   PRStatus = "merged"
	PRStatusRejected PRStatus = "rejected"
)

// DerivePRStatus is the only way a PR status is produced.
func DerivePRStatus(closedAt, mergedAt *time.Time) PRStatus {
	switch {
	case closedAt == nil:
		return PRStatusOpen
	case mergedAt != nil:
		return PRStatusMerged
	default:
		return PRStatusRejected
	}
}

type Commit struct {
	SHA        string `json:"sha"`
	Message    string `json:"message"`
	AuthorName string `json:"author"`
}

type PullRequest struct {
	Number     int
	Repository string
	Author     string
	Link       string
	CreatedAt  time.Time
	ClosedAt   *time.Time
	MergedAt   *time.Time
	Status     PRStatus
	Code       string
	Commits    []Commit
}

// AnalyzedPR pairs a collected PR with its analysis, which may be missing.
type AnalyzedPR struct {
	PR             PullRequest
	Analysis       *PRAnalysis
	AnalysisStatus string
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type AnalysisJob struct {
	ProcessID string    `db:"process_id"`
	Login     string    `db:"login"`
	Status    JobStatus `db:"status"`
	Message   string    `db:"message"`
	ReportID  *int64    `db:"report_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ReportRequest is a validated job submission.
type ReportRequest struct {
	Login     string
	RepoLinks []string
	Window    DateWindow
}

type Report struct {
	ID           int64     `db:"id"`
	Author       string    `db:"author"`
	CreationDate time.Time `db:"creation_date"`
	FileData     []byte    `db:"file_data"`
}
