// Package autum wires the activity sources, the LLM gateway and the report
// generators into the two user-facing operations.
package autum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Afrawles/autum/internal/config"
	"github.com/Afrawles/autum/internal/github"
	"github.com/Afrawles/autum/internal/jira"
	"github.com/Afrawles/autum/internal/llm"
	"github.com/Afrawles/autum/internal/metrics"
	"github.com/Afrawles/autum/internal/report"
)

const (
	dateLayout = "2006-01-02"
	// MaxTimesheetDays bounds a single timesheet request.
	MaxTimesheetDays = 31
)

// ErrInvalidRequest marks caller mistakes as opposed to upstream failures.
var ErrInvalidRequest = errors.New("invalid request")

type SummaryRequest struct {
	DeveloperEmail string `json:"developer_email"`
	Date           string `json:"date"`
	LLMProvider    string `json:"llm_provider,omitempty"`
}

type TimesheetRequest struct {
	JiraEmail       string `json:"jira_email"`
	JiraProjectKey  string `json:"jira_project_key,omitempty"`
	GitHubUsername  string `json:"github_username,omitempty"`
	GitHubToken     string `json:"github_token,omitempty"`
	Days            int    `json:"days,omitempty"`
	EmployeeID      string `json:"employee_id,omitempty"`
	EmployeeName    string `json:"employee_name,omitempty"`
	Billable        string `json:"billable,omitempty"`
	Role            string `json:"role,omitempty"`
	Site            string `json:"site,omitempty"`
	AuthorizedHours string `json:"authorized_hours,omitempty"`
	LLMProvider     string `json:"llm_provider,omitempty"`
}

// ProgressFunc is told about each timesheet day before it is processed.
type ProgressFunc func(date string, index, total int)

type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Issues    report.IssueSource
	Events    func(token string) report.EventSource
	Gateway   *llm.Gateway
	Generator *report.Generator
	Now       func() time.Time
}

func New(cfg *config.Config, logger *slog.Logger) *Application {
	jiraClient := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken, cfg.Server.HTTPTimeout)
	githubClient := github.NewClient(github.Options{
		BaseURL:   cfg.GitHub.APIURL,
		Token:     cfg.GitHub.Token,
		Timeout:   cfg.Server.HTTPTimeout,
		RateLimit: cfg.GitHub.RateLimit,
		MaxPages:  cfg.GitHub.MaxPages,
	})
	gateway := llm.NewGateway(cfg.LLM, logger)

	return &Application{
		Config: cfg,
		Logger: logger,
		Issues: jira.NewJiraSource(jiraClient),
		Events: func(token string) report.EventSource {
			client := githubClient
			if token != "" {
				client = githubClient.WithToken(token)
			}
			return github.NewGitHubSource(client, logger)
		},
		Gateway:   gateway,
		Generator: report.NewGenerator(gateway, logger),
		Now:       time.Now,
	}
}

// Summarize writes the standup summary of one developer for one date. An
// unreachable tracker yields a summary of an empty day.
func (app *Application) Summarize(ctx context.Context, req SummaryRequest) (*report.ActivitySummary, error) {
	req.DeveloperEmail = strings.TrimSpace(req.DeveloperEmail)
	if req.DeveloperEmail == "" {
		return nil, fmt.Errorf("%w: developer_email is required", ErrInvalidRequest)
	}
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}

	app.Logger.Info("generating summary", "developer", req.DeveloperEmail, "date", req.Date, "provider", req.LLMProvider)

	record := app.fetchIssues(ctx, req.DeveloperEmail, req.Date)
	return app.Generator.Summarize(ctx, record, req.LLMProvider), nil
}

// Timesheet builds one entry per day for the trailing req.Days days, oldest
// first and ending today. Days are processed one after another; within a day
// both sources are fetched concurrently. Source failures count as no data.
func (app *Application) Timesheet(ctx context.Context, req TimesheetRequest, progress ProgressFunc) ([]report.TimesheetEntry, error) {
	req = app.withDefaults(req)
	if req.Days < 1 || req.Days > MaxTimesheetDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidRequest, MaxTimesheetDays)
	}
	if req.JiraEmail == "" && req.GitHubUsername == "" {
		return nil, fmt.Errorf("%w: jira_email or github_username is required", ErrInvalidRequest)
	}

	opts := report.TimesheetOptions{
		ProjectKey:      req.JiraProjectKey,
		Billable:        req.Billable,
		Role:            req.Role,
		Site:            req.Site,
		AuthorizedHours: req.AuthorizedHours,
		Provider:        req.LLMProvider,
	}
	events := app.Events(req.GitHubToken)

	dates := TrailingDays(app.Now(), req.Days)
	app.Logger.Info("generating timesheet",
		"jira_email", req.JiraEmail,
		"github_user", req.GitHubUsername,
		"start", dates[0],
		"end", dates[len(dates)-1],
	)

	entries := make([]report.TimesheetEntry, 0, len(dates))
	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		if progress != nil {
			progress(date, i, len(dates))
		}

		day := app.fetchDay(ctx, date, req, events)
		entries = append(entries, app.Generator.TimesheetEntry(ctx, day, opts))
	}

	app.Logger.Info("timesheet complete", "days", len(entries))
	return entries, nil
}

// TrailingDays lists the n dates ending with now, oldest first.
func TrailingDays(now time.Time, n int) []string {
	dates := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, now.AddDate(0, 0, -i).Format(dateLayout))
	}
	return dates
}

func (app *Application) fetchDay(ctx context.Context, date string, req TimesheetRequest, events report.EventSource) report.DayActivity {
	var (
		record *report.ActivityRecord
		feed   []report.Event
		g      errgroup.Group
	)

	g.Go(func() error {
		if req.JiraEmail == "" {
			record = report.EmptyRecord("", date)
			return nil
		}
		record = app.fetchIssues(ctx, req.JiraEmail, date)
		return nil
	})

	g.Go(func() error {
		if req.GitHubUsername == "" {
			return nil
		}
		evs, err := events.FetchActivity(ctx, req.GitHubUsername, date)
		metrics.RecordUpstreamFetch(events.Name(), fetchStatus(err))
		if err != nil {
			app.Logger.Warn("source-control activity unavailable", "source", events.Name(), "date", date, "error", err)
		}
		feed = evs
		return nil
	})

	_ = g.Wait()
	return report.DayActivity{Date: date, Record: record, Events: feed}
}

func (app *Application) fetchIssues(ctx context.Context, email, date string) *report.ActivityRecord {
	record, err := app.Issues.FetchActivity(ctx, email, date)
	metrics.RecordUpstreamFetch(app.Issues.Name(), fetchStatus(err))
	if err != nil {
		app.Logger.Warn("issue activity unavailable", "source", app.Issues.Name(), "date", date, "error", err)
		return report.EmptyRecord(email, date)
	}
	return record
}

func (app *Application) withDefaults(req TimesheetRequest) TimesheetRequest {
	ts := app.Config.Timesheet
	req.JiraEmail = strings.TrimSpace(req.JiraEmail)
	req.GitHubUsername = strings.TrimSpace(req.GitHubUsername)
	if req.Days == 0 {
		req.Days = ts.Days
	}
	req.JiraProjectKey = orDefault(req.JiraProjectKey, ts.ProjectKey)
	req.Billable = orDefault(req.Billable, ts.Billable)
	req.Role = orDefault(req.Role, ts.Role)
	req.Site = orDefault(req.Site, ts.Site)
	req.AuthorizedHours = orDefault(req.AuthorizedHours, ts.AuthorizedHours)
	return req
}

func fetchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, jira.ErrNotConfigured), errors.Is(err, github.ErrNoToken):
		return "unconfigured"
	default:
		return "failed"
	}
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidRequest, date)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
