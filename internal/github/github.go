package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Afrawles/autum/internal/report"
)

type GitHubSource struct {
	Client *Client
	Logger *slog.Logger
}

func NewGitHubSource(client *Client, logger *slog.Logger) *GitHubSource {
	return &GitHubSource{Client: client, Logger: logger}
}

var _ report.EventSource = (*GitHubSource)(nil)

func (s *GitHubSource) Name() string {
	return "GitHub"
}

func (s *GitHubSource) HealthCheck(ctx context.Context) error {
	return s.Client.HealthCheck(ctx)
}

// FetchActivity collects pull request and ref creation events of username
// for date, then the commits username authored that day in every repository
// pushed to or created in. Without a token the result is a single error
// marker together with ErrNoToken.
func (s *GitHubSource) FetchActivity(ctx context.Context, username, date string) ([]report.Event, error) {
	if !s.Client.HasToken() {
		return []report.Event{report.ErrorEvent(ErrNoToken.Error())}, ErrNoToken
	}

	activity := []report.Event{}
	var repos []string
	seen := make(map[string]bool)
	touch := func(repo string) {
		if repo != "" && !seen[repo] {
			seen[repo] = true
			repos = append(repos, repo)
		}
	}

	for ev, err := range s.Client.Events(ctx, username) {
		if err != nil {
			s.Logger.Warn("event feed scan stopped", "user", username, "date", date, "error", err)
			break
		}

		day := ev.Date()
		if day < date {
			break
		}
		if day != date {
			continue
		}

		switch ev.Type {
		case "PushEvent":
			touch(ev.Repo.Name)
		case "CreateEvent":
			touch(ev.Repo.Name)
			activity = append(activity, createEvent(ev, date))
		case "PullRequestEvent":
			activity = append(activity, pullRequestEvent(ev))
		}
	}

	for _, repo := range repos {
		commits, err := s.Client.Commits(ctx, repo, username, date)
		if err != nil {
			s.Logger.Warn("skipping repository commits", "repo", repo, "error", err)
			continue
		}
		for _, c := range commits {
			msg := c.Commit.Message
			activity = append(activity, report.Event{
				Kind:        report.EventCommit,
				Repo:        repo,
				Key:         c.SHA,
				Summary:     strings.SplitN(msg, "\n", 2)[0],
				Description: msg,
			})
		}
	}

	s.Logger.Debug("github activity fetched", "user", username, "date", date, "events", len(activity), "repos", len(repos))
	return activity, nil
}

func createEvent(ev FeedEvent, date string) report.Event {
	ref := ev.Payload.Ref
	if ref == "" {
		ref = "unknown"
	}
	refType := ev.Payload.RefType
	return report.Event{
		Kind:        report.EventCreate,
		Repo:        ev.Repo.Name,
		Ref:         ref,
		RefType:     refType,
		Summary:     fmt.Sprintf("Created %s '%s'", refType, ref),
		Key:         fmt.Sprintf("create-%s-%s", ref, date),
		Description: fmt.Sprintf("Created %s '%s' in %s", refType, ref, ev.Repo.Name),
	}
}

func pullRequestEvent(ev FeedEvent) report.Event {
	repo := ev.Repo.Name
	if repo == "" {
		repo = "unknown"
	}
	action := ev.Payload.Action
	title := ev.Payload.PullRequest.Title
	return report.Event{
		Kind:        report.EventPullRequest,
		Repo:        repo,
		Action:      action,
		URL:         ev.Payload.PullRequest.HTMLURL,
		Summary:     fmt.Sprintf("PR %s: %s", action, title),
		Key:         ev.Payload.PullRequest.HTMLURL,
		Description: fmt.Sprintf("Pull Request: %s (%s)", title, action),
	}
}
