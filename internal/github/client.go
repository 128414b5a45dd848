package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.github.com"
	pageSize       = 100
	// DefaultMaxPages bounds how far back the event feed is scanned.
	DefaultMaxPages = 3
)

// ErrNoToken is returned when no access token is configured.
var ErrNoToken = errors.New("GitHub token not configured")

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	MaxPages  int
}

type Client struct {
	baseURL    string
	token      string
	maxPages   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		maxPages:   opts.MaxPages,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// WithToken returns a copy of c authenticating with token. The copy shares
// the rate limiter and transport.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) HasToken() bool {
	return c.token != ""
}

type FeedEvent struct {
	Type      string      `json:"type"`
	CreatedAt string      `json:"created_at"`
	Repo      FeedRepo    `json:"repo"`
	Payload   FeedPayload `json:"payload"`
}

type FeedRepo struct {
	Name string `json:"name"`
}

type FeedPayload struct {
	Action      string          `json:"action"`
	Ref         string          `json:"ref"`
	RefType     string          `json:"ref_type"`
	PullRequest FeedPullRequest `json:"pull_request"`
}

type FeedPullRequest struct {
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// Date returns the YYYY-MM-DD prefix of the event timestamp.
func (e FeedEvent) Date() string {
	if len(e.CreatedAt) < 10 {
		return e.CreatedAt
	}
	return e.CreatedAt[:10]
}

type Commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

// Events walks the public event feed of username, newest first, one page
// at a time and never past the configured page cap. Pages are fetched only
// as the caller consumes them; each range starts again at page one. A
// failed page is yielded as an error and ends the sequence.
func (c *Client) Events(ctx context.Context, username string) iter.Seq2[FeedEvent, error] {
	return func(yield func(FeedEvent, error) bool) {
		for page := 1; page <= c.maxPages; page++ {
			q := url.Values{}
			q.Set("per_page", strconv.Itoa(pageSize))
			q.Set("page", strconv.Itoa(page))

			var events []FeedEvent
			if err := c.get(ctx, "/users/"+url.PathEscape(username)+"/events", q, &events); err != nil {
				yield(FeedEvent{}, err)
				return
			}
			if len(events) == 0 {
				return
			}

			for _, ev := range events {
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

// Commits lists commits authored by username in repo during date, from
// 00:00:00 to 23:59:59 UTC inclusive.
func (c *Client) Commits(ctx context.Context, repo, username, date string) ([]Commit, error) {
	q := url.Values{}
	q.Set("author", username)
	q.Set("since", date+"T00:00:00Z")
	q.Set("until", date+"T23:59:59Z")
	q.Set("per_page", strconv.Itoa(pageSize))

	var commits []Commit
	if err := c.get(ctx, "/repos/"+repo+"/commits", q, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	if c.token == "" {
		return ErrNoToken
	}
	var me struct {
		Login string `json:"login"`
	}
	return c.get(ctx, "/user", nil, &me)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
