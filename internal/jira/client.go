package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no Jira base URL is set.
var ErrNotConfigured = errors.New("JIRA_URL not set")

// APIError carries a non-success response verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Failed to fetch Jira data: %s", e.Body)
}

type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
}

func NewClient(baseURL, username, apiToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	JQL    string   `json:"jql"`
	Fields []string `json:"fields"`
}

type searchResponse struct {
	Issues []Issue `json:"issues"`
}

type Issue struct {
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

type IssueFields struct {
	Summary string       `json:"summary"`
	Status  IssueStatus  `json:"status"`
	Worklog WorklogField `json:"worklog"`
}

type IssueStatus struct {
	Name string `json:"name"`
}

type WorklogField struct {
	Worklogs []Worklog `json:"worklogs"`
}

// Worklog comments are ADF documents on API v3 and plain strings on older
// servers, so Comment stays raw until extraction.
type Worklog struct {
	Author           Author          `json:"author"`
	Started          string          `json:"started"`
	TimeSpentSeconds int64           `json:"timeSpentSeconds"`
	Comment          json.RawMessage `json:"comment"`
}

type Author struct {
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

// WorklogQuery selects issues carrying worklogs by author on date.
func WorklogQuery(email, date string) string {
	return fmt.Sprintf("worklogAuthor = '%s' AND worklogDate = '%s'", email, date)
}

// SearchWorklogIssues runs the worklog JQL and returns the matching issues
// with summary, status and worklog fields.
func (c *Client) SearchWorklogIssues(ctx context.Context, email, date string) ([]Issue, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(searchRequest{
		JQL:    WorklogQuery(email, date),
		Fields: []string{"summary", "status", "worklog"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/search/jql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Issues, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/api/3/myself", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API health check failed with status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}
