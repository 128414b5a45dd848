package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Afrawles/autum/internal/llm"
	"github.com/Afrawles/autum/internal/metrics"
)

// TextGenerator runs a prompt through the named LLM provider.
type TextGenerator interface {
	Generate(ctx context.Context, provider, prompt string) (string, error)
}

type Generator struct {
	LLM    TextGenerator
	Logger *slog.Logger
}

func NewGenerator(gen TextGenerator, logger *slog.Logger) *Generator {
	return &Generator{LLM: gen, Logger: logger}
}

// Summarize turns a day of tracker activity into a standup summary. It never
// fails: when the model cannot be reached the summary text carries the
// reason and the status is "Unknown".
func (g *Generator) Summarize(ctx context.Context, record *ActivityRecord, provider string) *ActivitySummary {
	summary := &ActivitySummary{
		TotalHours:     record.TotalHours(),
		IssuesWorkedOn: make([]string, 0, len(record.Issues)),
		Details:        make([]IssueDetail, 0, len(record.Issues)),
	}
	for _, issue := range record.Issues {
		summary.IssuesWorkedOn = append(summary.IssuesWorkedOn, issue.Summary)
		summary.Details = append(summary.Details, IssueDetail{
			Key:       issue.Key,
			Summary:   issue.Summary,
			Status:    issue.Status,
			TimeSpent: round2(float64(issue.TimeSpentSeconds) / 3600),
			Comments:  issue.Comments,
		})
	}

	text, err := g.LLM.Generate(ctx, provider, SummaryPrompt(record))
	if err != nil {
		metrics.RecordDegraded("summary")
		summary.Summary = llm.Reason(err) + " Mock summary."
		summary.Status = "Unknown"
		return summary
	}

	summary.Summary = text
	summary.Status = "On Track"
	if strings.Contains(strings.ToLower(text), "blocked") {
		summary.Status = "Blocked"
	}
	return summary
}

// SummaryPrompt renders the standup prompt for record.
func SummaryPrompt(record *ActivityRecord) string {
	var issues strings.Builder
	for _, issue := range record.Issues {
		fmt.Fprintf(&issues, "- %s: %s (%s)\n", issue.Key, issue.Summary, issue.Status)
		fmt.Fprintf(&issues, "  Time: %.2f hours\n", float64(issue.TimeSpentSeconds)/3600)
		if len(issue.Comments) > 0 {
			fmt.Fprintf(&issues, "  Comments: %s\n", strings.Join(issue.Comments, ", "))
		}
	}

	return fmt.Sprintf(`You are an AI assistant representing a software developer.
Based on the following Jira activity for today, write a daily standup summary.

Total Hours: %.2f

Activity:
%s
Please structure your response as follows:
1.  **Work Log Breakdown**: List each issue/feature we worked on. For each, explicitly state the **Time Spent** and summarize the **Comments/Work Details**.
2.  **Overall Summary**: A concise, first-person narrative paragraph summarizing the day's main achievements and progress (e.g., "Today I focused on...").

Determine the overall status (e.g., On Track, Blocked, Completed) based on the context.
`, record.TotalHours(), issues.String())
}

// Statistics summarizes generated timesheet entries.
func Statistics(entries []TimesheetEntry) map[string]any {
	stats := make(map[string]any)

	byProject := make(map[string]float64)
	byStatus := make(map[string]int)

	active := 0
	total := 0.0
	for _, e := range entries {
		hours, _ := strconv.ParseFloat(e.Hours, 64)
		if e.Task != NoActivityTask {
			active++
		}
		total += hours
		byProject[e.Project] += hours
		byStatus[e.Status]++
	}

	projects := make([]string, 0, len(byProject))
	for p := range byProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	stats["days"] = len(entries)
	stats["active_days"] = active
	stats["total_hours"] = round2(total)
	stats["projects"] = projects
	stats["hours_by_project"] = byProject
	stats["by_status"] = byStatus
	return stats
}
