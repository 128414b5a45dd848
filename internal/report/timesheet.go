package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/Afrawles/autum/internal/llm"
	"github.com/Afrawles/autum/internal/metrics"
)

const (
	// NoActivityTask is the task name of a day with no recorded work.
	NoActivityTask = "No Activity"

	maxContextEvents = 10
	maxRemarkLength  = 100
)

// TimesheetOptions carries the per-employee columns of a timesheet row.
type TimesheetOptions struct {
	ProjectKey      string
	Billable        string
	Role            string
	Site            string
	AuthorizedHours string
	Provider        string
}

// DayActivity is everything fetched for one day of a timesheet.
type DayActivity struct {
	Date   string
	Record *ActivityRecord
	Events []Event
}

// TimesheetEntry builds the timesheet row for one day. Days without issues
// or events never reach the model.
func (g *Generator) TimesheetEntry(ctx context.Context, day DayActivity, opts TimesheetOptions) TimesheetEntry {
	entry := TimesheetEntry{
		Date:     day.Date,
		Billable: opts.Billable,
		Role:     opts.Role,
		Site:     opts.Site,
	}

	var issues []IssueActivity
	if day.Record != nil {
		issues = day.Record.Issues
	}
	issue, hasIssue := SelectIssue(issues)
	events := usableEvents(day.Events)

	if !hasIssue && len(events) == 0 {
		entry.Project = opts.ProjectKey
		entry.Task = NoActivityTask
		entry.TaskDescription = "General Development"
		entry.Status = "N/A"
		entry.Remark = "No activity recorded for this day."
		entry.Hours = "0"
		return entry
	}

	if hasIssue {
		entry.Project = projectOf(issue.Key)
		entry.Task = issue.Key
		entry.TaskDescription = issue.Summary
		entry.Status = issue.Status
	} else {
		entry.Project = "Internal"
		entry.Task = "GitHub"
		entry.TaskDescription = events[0].Summary
		entry.Status = "In Progress"
	}

	entry.Hours = opts.AuthorizedHours
	if entry.Hours == "" {
		entry.Hours = "8"
	}

	prompt := RemarkPrompt(day.Date, issue, hasIssue, FormatEvents(events))
	text, err := g.LLM.Generate(ctx, opts.Provider, prompt)
	if err != nil {
		metrics.RecordDegraded("remark")
		g.Logger.Warn("remark generation failed", "date", day.Date, "error", err)
		entry.Remark = truncateRunes("Remark generation failed: "+llm.Reason(err), maxRemarkLength)
		return entry
	}
	entry.Remark = strings.TrimSpace(text)
	return entry
}

var statusTiers = map[string]int{
	"done":        0,
	"completed":   0,
	"verified":    0,
	"closed":      0,
	"resolved":    0,
	"in progress": 1,
}

// SelectIssue picks the issue closest to completion: finished states first,
// then "In Progress", then anything else. Ties keep input order.
func SelectIssue(issues []IssueActivity) (IssueActivity, bool) {
	best, bestTier := -1, 3
	for i, issue := range issues {
		tier, ok := statusTiers[strings.ToLower(strings.TrimSpace(issue.Status))]
		if !ok {
			tier = 2
		}
		if tier < bestTier {
			best, bestTier = i, tier
		}
	}
	if best < 0 {
		return IssueActivity{}, false
	}
	return issues[best], true
}

// FormatEvents renders at most the first ten events as prompt lines.
func FormatEvents(events []Event) []string {
	if len(events) > maxContextEvents {
		events = events[:maxContextEvents]
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		switch e.Kind {
		case EventCommit:
			lines = append(lines, fmt.Sprintf("- Commit in %s: %s", e.Repo, e.Summary))
		case EventPullRequest:
			lines = append(lines, fmt.Sprintf("- Pull request in %s: %s", e.Repo, e.Summary))
		case EventCreate:
			lines = append(lines, fmt.Sprintf("- %s in %s", e.Summary, e.Repo))
		}
	}
	return lines
}

// RemarkPrompt renders the timesheet remark prompt. The issue, when present,
// leads and the source-control lines support it.
func RemarkPrompt(date string, issue IssueActivity, hasIssue bool, events []string) string {
	var b strings.Builder
	b.WriteString("You are writing the remark column of a corporate timesheet.\n")
	fmt.Fprintf(&b, "Write a remark of at most 2 sentences, in a concise and professional corporate tone, describing the work done on %s.\n", date)
	if hasIssue {
		b.WriteString("Focus on the Jira task; use the GitHub activity only as supporting detail.\n\n")
		fmt.Fprintf(&b, "Jira task: %s - %s (Status: %s, Time logged: %.2f hours)\n",
			issue.Key, issue.Summary, issue.Status, float64(issue.TimeSpentSeconds)/3600)
		if len(issue.Comments) > 0 {
			fmt.Fprintf(&b, "Work notes: %s\n", strings.Join(issue.Comments, "; "))
		}
	} else {
		b.WriteString("\n")
	}
	if len(events) > 0 {
		b.WriteString("GitHub activity:\n")
		b.WriteString(strings.Join(events, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with the remark text only.")
	return b.String()
}

func usableEvents(events []Event) []Event {
	if !HasErrorMarker(events) {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Kind != EventError {
			out = append(out, e)
		}
	}
	return out
}

func projectOf(key string) string {
	if i := strings.Index(key, "-"); i > 0 {
		return key[:i]
	}
	return key
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
