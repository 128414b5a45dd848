package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/Afrawles/autum/internal/report"
)

type JiraSource struct {
	Client *Client
}

func NewJiraSource(client *Client) *JiraSource {
	return &JiraSource{Client: client}
}

var _ report.IssueSource = (*JiraSource)(nil)

func (s *JiraSource) Name() string {
	return "Jira"
}

func (s *JiraSource) HealthCheck(ctx context.Context) error {
	return s.Client.HealthCheck(ctx)
}

// FetchActivity returns the issues email logged time on for date, counting
// only that author's worklogs started on that date.
func (s *JiraSource) FetchActivity(ctx context.Context, email, date string) (*report.ActivityRecord, error) {
	issues, err := s.Client.SearchWorklogIssues(ctx, email, date)
	if err != nil {
		return nil, err
	}
	return BuildActivity(issues, email, date), nil
}

// BuildActivity applies the author/date worklog filter to search results.
// Issues without matching time are left out of the record.
func BuildActivity(issues []Issue, email, date string) *report.ActivityRecord {
	record := report.EmptyRecord(email, date)

	for _, issue := range issues {
		var spent int64
		comments := []string{}

		for _, wl := range issue.Fields.Worklog.Worklogs {
			if !strings.HasPrefix(wl.Started, date) || wl.Author.EmailAddress != email {
				continue
			}
			spent += wl.TimeSpentSeconds
			if text, ok := worklogComment(wl.Comment); ok {
				comments = append(comments, text)
			}
		}

		if spent <= 0 {
			continue
		}

		record.Issues = append(record.Issues, report.IssueActivity{
			Key:              issue.Key,
			Summary:          issue.Fields.Summary,
			Status:           issue.Fields.Status.Name,
			TimeSpentSeconds: spent,
			Comments:         comments,
		})
		record.TotalTimeSeconds += spent
	}

	return record
}

func worklogComment(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case '{', '[':
		var node any
		if err := json.Unmarshal(raw, &node); err != nil {
			return "", false
		}
		text := ExtractText(node)
		if strings.TrimSpace(text) == "" {
			return "", false
		}
		return text, true
	}
	return "", false
}
