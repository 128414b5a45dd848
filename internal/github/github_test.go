package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/autum/internal/logger"
	"github.com/Afrawles/autum/internal/report"
)

func feedEvent(typ, created, repo string, payload map[string]any) map[string]any {
	return map[string]any{
		"type":       typ,
		"created_at": created,
		"repo":       map[string]any{"name": repo},
		"payload":    payload,
	}
}

func newSource(srvURL, token string, maxPages int) *GitHubSource {
	client := NewClient(Options{BaseURL: srvURL, Token: token, RateLimit: 1000, MaxPages: maxPages})
	return NewGitHubSource(client, logger.Discard())
}

func TestFetchActivity_NoToken(t *testing.T) {
	src := newSource("http://127.0.0.1:1", "", 0)

	events, err := src.FetchActivity(context.Background(), "octo", "2024-01-15")

	assert.ErrorIs(t, err, ErrNoToken)
	require.Len(t, events, 1)
	assert.Equal(t, report.EventError, events[0].Kind)
	assert.Contains(t, events[0].Error, "token")
	assert.True(t, report.HasErrorMarker(events))
}

func TestFetchActivity_ClassifiesEventsAndCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octo/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		json.NewEncoder(w).Encode([]map[string]any{
			feedEvent("PushEvent", "2024-01-15T18:00:00Z", "octo/api", nil),
			feedEvent("WatchEvent", "2024-01-15T17:00:00Z", "octo/other", nil),
			feedEvent("PullRequestEvent", "2024-01-15T16:00:00Z", "octo/api", map[string]any{
				"action": "opened",
				"pull_request": map[string]any{
					"title":    "Add login",
					"html_url": "https://github.com/octo/api/pull/7",
				},
			}),
			feedEvent("CreateEvent", "2024-01-15T15:00:00Z", "octo/web", map[string]any{
				"ref": "feature-x", "ref_type": "branch",
			}),
			feedEvent("PushEvent", "2024-01-15T14:00:00Z", "octo/api", nil),
			feedEvent("PushEvent", "2024-01-14T23:00:00Z", "octo/old", nil),
		})
	})
	mux.HandleFunc("/repos/octo/api/commits", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "octo", q.Get("author"))
		assert.Equal(t, "2024-01-15T00:00:00Z", q.Get("since"))
		assert.Equal(t, "2024-01-15T23:59:59Z", q.Get("until"))
		fmt.Fprint(w, `[{"sha":"abc123","commit":{"message":"Fix login\n\nLonger body"}}]`)
	})
	mux.HandleFunc("/repos/octo/web/commits", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"Git Repository is empty."}`)
	})
	mux.HandleFunc("/repos/octo/old/commits", func(w http.ResponseWriter, r *http.Request) {
		t.Error("older repository must not be queried")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	events, err := newSource(srv.URL, "tok", 3).FetchActivity(context.Background(), "octo", "2024-01-15")
	require.NoError(t, err)
	require.Len(t, events, 3)

	pr := events[0]
	assert.Equal(t, report.EventPullRequest, pr.Kind)
	assert.Equal(t, "PR opened: Add login", pr.Summary)
	assert.Equal(t, "Pull Request: Add login (opened)", pr.Description)
	assert.Equal(t, "https://github.com/octo/api/pull/7", pr.Key)
	assert.Equal(t, "opened", pr.Action)

	create := events[1]
	assert.Equal(t, report.EventCreate, create.Kind)
	assert.Equal(t, "Created branch 'feature-x'", create.Summary)
	assert.Equal(t, "Created branch 'feature-x' in octo/web", create.Description)
	assert.Equal(t, "create-feature-x-2024-01-15", create.Key)

	commit := events[2]
	assert.Equal(t, report.EventCommit, commit.Kind)
	assert.Equal(t, "octo/api", commit.Repo)
	assert.Equal(t, "abc123", commit.Key)
	assert.Equal(t, "Fix login", commit.Summary)
	assert.Equal(t, "Fix login\n\nLonger body", commit.Description)
}

func TestFetchActivity_PaginationStopsAtCap(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode([]map[string]any{
			feedEvent("PullRequestEvent", "2024-01-15T10:00:00Z", "octo/api", map[string]any{
				"action":       "closed",
				"pull_request": map[string]any{"title": fmt.Sprintf("p%d", page)},
			}),
		})
	}))
	defer srv.Close()

	events, err := newSource(srv.URL, "tok", 2).FetchActivity(context.Background(), "octo", "2024-01-15")

	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, int32(2), pages.Load())
}

func TestFetchActivity_OlderEventEndsScan(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		json.NewEncoder(w).Encode([]map[string]any{
			feedEvent("PushEvent", "2024-01-16T10:00:00Z", "octo/future", nil),
			feedEvent("PushEvent", "2024-01-10T10:00:00Z", "octo/old", nil),
		})
	}))
	defer srv.Close()

	events, err := newSource(srv.URL, "tok", 3).FetchActivity(context.Background(), "octo", "2024-01-15")

	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int32(1), pages.Load())
}

func TestFetchActivity_FeedFailureKeepsNothingButDoesNotFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	events, err := newSource(srv.URL, "tok", 3).FetchActivity(context.Background(), "octo", "2024-01-15")

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvents_Restartable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 2 {
			fmt.Fprint(w, `[]`)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			feedEvent("PushEvent", fmt.Sprintf("2024-01-1%dT00:00:00Z", page), "octo/api", nil),
		})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Token: "tok", RateLimit: 1000, MaxPages: 10})
	seq := client.Events(context.Background(), "octo")

	collect := func() []string {
		var dates []string
		for ev, err := range seq {
			require.NoError(t, err)
			dates = append(dates, ev.Date())
		}
		return dates
	}

	assert.Equal(t, []string{"2024-01-11", "2024-01-12"}, collect())
	assert.Equal(t, collect(), collect())
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		fmt.Fprint(w, `{"login":"octo"}`)
	}))
	defer srv.Close()

	src := newSource(srv.URL, "tok", 0)
	assert.NoError(t, src.HealthCheck(context.Background()))

	noToken := NewGitHubSource(src.Client.WithToken(""), logger.Discard())
	assert.ErrorIs(t, noToken.HealthCheck(context.Background()), ErrNoToken)
}
