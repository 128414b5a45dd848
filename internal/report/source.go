package report

import (
	"context"
	"math"
)

// ActivityRecord is one developer's issue-tracker activity for one date.
type ActivityRecord struct {
	Date             string          `json:"date"`
	Developer        string          `json:"developer"`
	Issues           []IssueActivity `json:"issues"`
	TotalTimeSeconds int64           `json:"total_time_seconds"`
}

// IssueActivity is an issue with the time the target author logged on it
// for the target date only.
type IssueActivity struct {
	Key              string   `json:"key"`
	Summary          string   `json:"summary"`
	Status           string   `json:"status"`
	TimeSpentSeconds int64    `json:"time_spent_seconds"`
	Comments         []string `json:"comments"`
}

// EmptyRecord is the stand-in used when the tracker could not be reached.
func EmptyRecord(developer, date string) *ActivityRecord {
	return &ActivityRecord{Date: date, Developer: developer, Issues: []IssueActivity{}}
}

// TotalHours converts the record's total time to hours.
func (r *ActivityRecord) TotalHours() float64 {
	return float64(r.TotalTimeSeconds) / 3600
}

type EventKind string

const (
	EventCommit      EventKind = "Commit"
	EventPullRequest EventKind = "PullRequestEvent"
	EventCreate      EventKind = "CreateEvent"
	// EventError marks a fetch that produced no usable data.
	EventError EventKind = "Error"
)

// Event is one piece of source-control activity. Action and URL are set for
// pull requests, Ref and RefType for creations.
type Event struct {
	Kind        EventKind `json:"type"`
	Repo        string    `json:"repo"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Key         string    `json:"key"`
	Action      string    `json:"action,omitempty"`
	URL         string    `json:"url,omitempty"`
	Ref         string    `json:"ref,omitempty"`
	RefType     string    `json:"ref_type,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ErrorEvent builds the error-marker entry.
func ErrorEvent(msg string) Event {
	return Event{Kind: EventError, Error: msg}
}

// HasErrorMarker reports whether events is a failed fetch rather than data.
func HasErrorMarker(events []Event) bool {
	for _, e := range events {
		if e.Kind == EventError {
			return true
		}
	}
	return false
}

// ActivitySummary is the standup narrative returned to callers.
type ActivitySummary struct {
	TotalHours     float64       `json:"total_hours"`
	IssuesWorkedOn []string      `json:"issues_worked_on"`
	Details        []IssueDetail `json:"details,omitempty"`
	Summary        string        `json:"summary"`
	Status         string        `json:"status"`
}

type IssueDetail struct {
	Key       string   `json:"key"`
	Summary   string   `json:"summary"`
	Status    string   `json:"status"`
	TimeSpent float64  `json:"time_spent"`
	Comments  []string `json:"comments"`
}

// TimesheetEntry is one row in the format the timesheet system imports.
type TimesheetEntry struct {
	Date            string `json:"date"`
	Project         string `json:"project"`
	Task            string `json:"task"`
	TaskDescription string `json:"task_description"`
	Status          string `json:"status"`
	Remark          string `json:"remark"`
	Hours           string `json:"hours"`
	Billable        string `json:"billable"`
	Role            string `json:"role"`
	Site            string `json:"site"`
}

// IssueSource fetches issue-tracker activity.
type IssueSource interface {
	Name() string
	FetchActivity(ctx context.Context, email, date string) (*ActivityRecord, error)
	HealthCheck(ctx context.Context) error
}

// EventSource fetches source-control activity.
type EventSource interface {
	Name() string
	FetchActivity(ctx context.Context, username, date string) ([]Event, error)
	HealthCheck(ctx context.Context) error
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
