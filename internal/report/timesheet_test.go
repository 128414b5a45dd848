package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/autum/internal/logger"
)

var defaultOpts = TimesheetOptions{
	ProjectKey:      "PROJ",
	Billable:        "Yes",
	Role:            "Developer",
	Site:            "Offshore",
	AuthorizedHours: "8",
	Provider:        "openai",
}

func TestSelectIssue(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
		found    bool
	}{
		{name: "done wins", statuses: []string{"Open", "Done", "In Progress"}, want: "Done", found: true},
		{name: "in progress over other", statuses: []string{"To Do", "In Progress"}, want: "In Progress", found: true},
		{name: "case insensitive", statuses: []string{"in progress", "RESOLVED"}, want: "RESOLVED", found: true},
		{name: "stable on ties", statuses: []string{"Review", "Open"}, want: "Review", found: true},
		{name: "empty", statuses: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var issues []IssueActivity
			for i, s := range tt.statuses {
				issues = append(issues, IssueActivity{Key: fmt.Sprintf("K-%d", i), Status: s})
			}

			got, ok := SelectIssue(issues)

			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestTimesheetEntry_NoActivity(t *testing.T) {
	fake := &fakeLLM{text: "unused"}
	g := NewGenerator(fake, logger.Discard())

	entry := g.TimesheetEntry(context.Background(), DayActivity{
		Date:   "2024-01-15",
		Record: EmptyRecord("dev@example.com", "2024-01-15"),
	}, defaultOpts)

	assert.Equal(t, NoActivityTask, entry.Task)
	assert.Equal(t, "0", entry.Hours)
	assert.Equal(t, "PROJ", entry.Project)
	assert.Equal(t, "General Development", entry.TaskDescription)
	assert.Equal(t, "Yes", entry.Billable)
	assert.Empty(t, fake.prompts, "no model call for an empty day")
}

func TestTimesheetEntry_MissingTokenMarkerIsNoData(t *testing.T) {
	fake := &fakeLLM{text: "unused"}
	g := NewGenerator(fake, logger.Discard())

	entry := g.TimesheetEntry(context.Background(), DayActivity{
		Date:   "2024-01-15",
		Events: []Event{ErrorEvent("GitHub token not configured")},
	}, defaultOpts)

	assert.Equal(t, NoActivityTask, entry.Task)
	assert.Empty(t, fake.prompts)
}

func TestTimesheetEntry_FromIssue(t *testing.T) {
	fake := &fakeLLM{text: "  Completed the login fix and merged the related pull request.  "}
	g := NewGenerator(fake, logger.Discard())

	record := sampleRecord()
	record.Issues = append(record.Issues, IssueActivity{Key: "OPS-9", Summary: "Rotate keys", Status: "Done"})

	entry := g.TimesheetEntry(context.Background(), DayActivity{
		Date:   "2024-01-15",
		Record: record,
		Events: []Event{{Kind: EventCommit, Repo: "octo/api", Summary: "Fix login"}},
	}, defaultOpts)

	assert.Equal(t, "2024-01-15", entry.Date)
	assert.Equal(t, "OPS", entry.Project)
	assert.Equal(t, "OPS-9", entry.Task)
	assert.Equal(t, "Rotate keys", entry.TaskDescription)
	assert.Equal(t, "Done", entry.Status)
	assert.Equal(t, "8", entry.Hours)
	assert.Equal(t, "Completed the login fix and merged the related pull request.", entry.Remark)

	require.Len(t, fake.prompts, 1)
	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "Jira task: OPS-9 - Rotate keys (Status: Done")
	assert.Contains(t, prompt, "- Commit in octo/api: Fix login")
	assert.Less(t, strings.Index(prompt, "Jira task"), strings.Index(prompt, "GitHub activity"))
}

func TestTimesheetEntry_OnlyEvents(t *testing.T) {
	g := NewGenerator(&fakeLLM{text: "Worked on repository maintenance."}, logger.Discard())

	entry := g.TimesheetEntry(context.Background(), DayActivity{
		Date: "2024-01-15",
		Events: []Event{
			{Kind: EventPullRequest, Repo: "octo/api", Summary: "PR opened: Add login"},
			{Kind: EventCommit, Repo: "octo/api", Summary: "Fix login"},
		},
	}, TimesheetOptions{ProjectKey: "PROJ"})

	assert.Equal(t, "Internal", entry.Project)
	assert.Equal(t, "GitHub", entry.Task)
	assert.Equal(t, "PR opened: Add login", entry.TaskDescription)
	assert.Equal(t, "In Progress", entry.Status)
	assert.Equal(t, "8", entry.Hours)
}

func TestTimesheetEntry_RemarkFailureTruncated(t *testing.T) {
	fake := &fakeLLM{err: errors.New(strings.Repeat("upstream exploded ", 20))}
	g := NewGenerator(fake, logger.Discard())

	entry := g.TimesheetEntry(context.Background(), DayActivity{Date: "2024-01-15", Record: sampleRecord()}, defaultOpts)

	assert.True(t, strings.HasPrefix(entry.Remark, "Remark generation failed: "), entry.Remark)
	assert.Len(t, []rune(entry.Remark), 100)
	assert.Equal(t, "KEY-1", entry.Task)
}

func TestFormatEvents(t *testing.T) {
	var events []Event
	for i := range 12 {
		events = append(events, Event{Kind: EventCommit, Repo: "octo/api", Summary: fmt.Sprintf("c%d", i)})
	}
	events[1] = Event{Kind: EventCreate, Repo: "octo/web", Summary: "Created branch 'x'"}
	events[2] = Event{Kind: EventPullRequest, Repo: "octo/web", Summary: "PR closed: y"}

	lines := FormatEvents(events)

	require.Len(t, lines, 10)
	assert.Equal(t, "- Commit in octo/api: c0", lines[0])
	assert.Equal(t, "- Created branch 'x' in octo/web", lines[1])
	assert.Equal(t, "- Pull request in octo/web: PR closed: y", lines[2])
	assert.Equal(t, "- Commit in octo/api: c9", lines[9])
}
