package autum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/autum/internal/config"
	"github.com/Afrawles/autum/internal/github"
	"github.com/Afrawles/autum/internal/jira"
	"github.com/Afrawles/autum/internal/llm"
	"github.com/Afrawles/autum/internal/logger"
	"github.com/Afrawles/autum/internal/report"
)

type fakeIssues struct {
	mu      sync.Mutex
	records map[string]*report.ActivityRecord
	err     error
	health  error
	dates   []string
}

func (f *fakeIssues) Name() string { return "Jira" }

func (f *fakeIssues) HealthCheck(context.Context) error { return f.health }

func (f *fakeIssues) FetchActivity(_ context.Context, email, date string) (*report.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, date)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[date]; ok {
		return r, nil
	}
	return report.EmptyRecord(email, date), nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[string][]report.Event
	err    error
	token  string
}

func (f *fakeEvents) Name() string { return "GitHub" }

func (f *fakeEvents) HealthCheck(context.Context) error { return nil }

func (f *fakeEvents) FetchActivity(_ context.Context, _, date string) ([]report.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return []report.Event{report.ErrorEvent(f.err.Error())}, f.err
	}
	return f.events[date], nil
}

type fakeLLM struct {
	mu      sync.Mutex
	text    string
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.text, nil
}

func newTestApp(issues *fakeIssues, events *fakeEvents, gen *fakeLLM) *Application {
	cfg := config.Default()
	return &Application{
		Config: cfg,
		Logger: logger.Discard(),
		Issues: issues,
		Events: func(token string) report.EventSource {
			events.token = token
			return events
		},
		Gateway:   llm.NewGateway(cfg.LLM, logger.Discard()),
		Generator: report.NewGenerator(gen, logger.Discard()),
		Now: func() time.Time {
			return time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
		},
	}
}

func keyOneRecord(date string) *report.ActivityRecord {
	return &report.ActivityRecord{
		Date:      date,
		Developer: "dev@example.com",
		Issues: []report.IssueActivity{{
			Key: "KEY-1", Summary: "Fix login", Status: "In Progress",
			TimeSpentSeconds: 3600, Comments: []string{"Fixed bug"},
		}},
		TotalTimeSeconds: 3600,
	}
}

func TestSummarize(t *testing.T) {
	issues := &fakeIssues{records: map[string]*report.ActivityRecord{"2024-01-15": keyOneRecord("2024-01-15")}}
	app := newTestApp(issues, &fakeEvents{}, &fakeLLM{text: "Today I fixed the login bug."})

	summary, err := app.Summarize(context.Background(), SummaryRequest{DeveloperEmail: "dev@example.com", Date: "2024-01-15"})

	require.NoError(t, err)
	assert.Equal(t, 1.0, summary.TotalHours)
	assert.Equal(t, []string{"Fix login"}, summary.IssuesWorkedOn)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, 1.0, summary.Details[0].TimeSpent)
	assert.Equal(t, "On Track", summary.Status)
}

func TestSummarize_TrackerDownYieldsEmptyDay(t *testing.T) {
	issues := &fakeIssues{err: &jira.APIError{StatusCode: 500, Body: "oops"}}
	gen := &fakeLLM{text: "Quiet day."}
	app := newTestApp(issues, &fakeEvents{}, gen)

	summary, err := app.Summarize(context.Background(), SummaryRequest{DeveloperEmail: "dev@example.com", Date: "2024-01-15"})

	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.TotalHours)
	assert.Empty(t, summary.IssuesWorkedOn)
	assert.Equal(t, "Quiet day.", summary.Summary)
	assert.Len(t, gen.prompts, 1)
}

func TestSummarize_InvalidRequest(t *testing.T) {
	app := newTestApp(&fakeIssues{}, &fakeEvents{}, &fakeLLM{})

	_, err := app.Summarize(context.Background(), SummaryRequest{DeveloperEmail: "dev@example.com", Date: "15/01/2024"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = app.Summarize(context.Background(), SummaryRequest{Date: "2024-01-15"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTimesheet_DaysOldestFirst(t *testing.T) {
	issues := &fakeIssues{records: map[string]*report.ActivityRecord{"2024-01-15": keyOneRecord("2024-01-15")}}
	events := &fakeEvents{events: map[string][]report.Event{
		"2024-01-16": {{Kind: report.EventCommit, Repo: "octo/api", Key: "abc", Summary: "Refactor auth"}},
	}}
	gen := &fakeLLM{text: "Worked on the day's tasks."}
	app := newTestApp(issues, events, gen)

	var progress []string
	entries, err := app.Timesheet(context.Background(), TimesheetRequest{
		JiraEmail:      "dev@example.com",
		GitHubUsername: "octo",
		GitHubToken:    "tok",
		Days:           3,
	}, func(date string, i, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, date)
	})

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"2024-01-15", "2024-01-16", "2024-01-17"}, progress)
	assert.Equal(t, "tok", events.token)

	assert.Equal(t, "2024-01-15", entries[0].Date)
	assert.Equal(t, "KEY", entries[0].Project)
	assert.Equal(t, "KEY-1", entries[0].Task)
	assert.Equal(t, "8", entries[0].Hours)
	assert.Equal(t, "Yes", entries[0].Billable)

	assert.Equal(t, "Internal", entries[1].Project)
	assert.Equal(t, "GitHub", entries[1].Task)
	assert.Equal(t, "Refactor auth", entries[1].TaskDescription)

	assert.Equal(t, report.NoActivityTask, entries[2].Task)
	assert.Equal(t, "0", entries[2].Hours)
	assert.Equal(t, "PROJ", entries[2].Project)

	assert.Len(t, gen.prompts, 2)
}

func TestTimesheet_MissingTokenIsNoData(t *testing.T) {
	events := &fakeEvents{err: github.ErrNoToken}
	gen := &fakeLLM{text: "unused"}
	app := newTestApp(&fakeIssues{}, events, gen)

	entries, err := app.Timesheet(context.Background(), TimesheetRequest{
		JiraEmail:      "dev@example.com",
		GitHubUsername: "octo",
		Days:           2,
	}, nil)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, report.NoActivityTask, e.Task)
	}
	assert.Empty(t, gen.prompts)
}

func TestTimesheet_SourceFailureDoesNotAbort(t *testing.T) {
	issues := &fakeIssues{err: errors.New("connection refused")}
	app := newTestApp(issues, &fakeEvents{}, &fakeLLM{})

	entries, err := app.Timesheet(context.Background(), TimesheetRequest{JiraEmail: "dev@example.com", Days: 4}, nil)

	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, []string{"2024-01-14", "2024-01-15", "2024-01-16", "2024-01-17"}, issues.dates)
}

func TestTimesheet_Defaults(t *testing.T) {
	app := newTestApp(&fakeIssues{}, &fakeEvents{}, &fakeLLM{})

	entries, err := app.Timesheet(context.Background(), TimesheetRequest{
		JiraEmail: "dev@example.com",
		Role:      "Lead",
	}, nil)

	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "2024-01-13", entries[0].Date)
	assert.Equal(t, "Lead", entries[0].Role)
	assert.Equal(t, "Offshore", entries[0].Site)
}

func TestTimesheet_InvalidRequest(t *testing.T) {
	app := newTestApp(&fakeIssues{}, &fakeEvents{}, &fakeLLM{})

	_, err := app.Timesheet(context.Background(), TimesheetRequest{JiraEmail: "dev@example.com", Days: 32}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = app.Timesheet(context.Background(), TimesheetRequest{Days: 2}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTimesheet_CancelledContext(t *testing.T) {
	app := newTestApp(&fakeIssues{}, &fakeEvents{}, &fakeLLM{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := app.Timesheet(ctx, TimesheetRequest{JiraEmail: "dev@example.com", Days: 3}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, entries)
}

func TestTrailingDays(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, TrailingDays(now, 3))
	assert.Equal(t, []string{"2024-03-01"}, TrailingDays(now, 1))
}

func TestReadiness_Unconfigured(t *testing.T) {
	app := New(config.Default(), logger.Discard())

	r := app.Readiness(context.Background())

	assert.True(t, r.Ready)
	assert.Equal(t, CheckUnconfigured, r.Checks["Jira"].Status)
	assert.Equal(t, CheckUnconfigured, r.Checks["GitHub"].Status)
	assert.Equal(t, CheckUnconfigured, r.Checks["LLM"].Status)
	assert.Equal(t, "OpenAI API Key not set.", r.Checks["LLM"].Detail)
}

func TestReadiness_Failure(t *testing.T) {
	app := newTestApp(&fakeIssues{health: errors.New("401 unauthorized")}, &fakeEvents{}, &fakeLLM{})

	r := app.Readiness(context.Background())

	assert.False(t, r.Ready)
	assert.Equal(t, CheckFailed, r.Checks["Jira"].Status)
	assert.Equal(t, CheckOK, r.Checks["GitHub"].Status)
}

func TestConnectivity_RejectedKeyFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	app := newTestApp(&fakeIssues{}, &fakeEvents{}, &fakeLLM{})
	llmCfg := app.Config.LLM
	llmCfg.OpenAI.APIKey = "bogus"
	llmCfg.OpenAI.BaseURL = srv.URL + "/"
	app.Gateway = llm.NewGateway(llmCfg, logger.Discard())

	r := app.Readiness(context.Background())
	assert.Equal(t, CheckOK, r.Checks["LLM"].Status)
	assert.Equal(t, int32(0), hits.Load())

	r = app.Connectivity(context.Background())
	assert.False(t, r.Ready)
	assert.Equal(t, CheckFailed, r.Checks["LLM"].Status)
	assert.Equal(t, "Access Denied (401) from openai. Check firewall/network settings.", r.Checks["LLM"].Detail)
	assert.Equal(t, int32(1), hits.Load())
}

func TestConnectivity_Unconfigured(t *testing.T) {
	app := New(config.Default(), logger.Discard())

	r := app.Connectivity(context.Background())

	assert.True(t, r.Ready)
	assert.Equal(t, CheckUnconfigured, r.Checks["LLM"].Status)
	assert.Equal(t, "OpenAI API Key not set.", r.Checks["LLM"].Detail)
}
