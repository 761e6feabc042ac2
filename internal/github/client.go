// Package github posts check results to pull requests through the GitHub
// REST API.
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/models"
)

const (
	// StatusContext labels the commit status
	StatusContext = "perfbudget"

	defaultAPIURL     = "https://api.github.com"
	httpClientTimeout = 30 * time.Second
	maxRetries        = 3
	commentsPerPage   = 100
	maxDescriptionLen = 140
)

// Commit status states
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to one repository
type Client struct {
	baseURL    string
	token      string
	owner      string
	repo       string
	httpClient *http.Client
	log        *logger.Logger
	newBackOff func() backoff.BackOff
}

// NewClient creates a client for "owner/repo". An empty apiURL uses
// api.github.com.
func NewClient(token, repository, apiURL string, log *logger.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("repository must be owner/repo, got %q", repository)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/"),
		token:      token,
		owner:      parts[0],
		repo:       parts[1],
		httpClient: &http.Client{Timeout: httpClientTimeout},
		log:        log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}, nil
}

// UpsertComment edits the existing report comment on the pull request or
// creates one. The body always carries the report marker.
func (c *Client) UpsertComment(ctx context.Context, pr int, body string) (*models.GitHubComment, error) {
	if !strings.Contains(body, models.CommentMarker) {
		body = models.CommentMarker + "\n" + body
	}

	existing, err := c.findComment(ctx, pr)
	if err != nil {
		return nil, err
	}

	req := models.GitHubCommentRequest{Body: body}
	var comment models.GitHubComment

	if existing != nil {
		path := fmt.Sprintf("/repos/%s/%s/issues/comments/%d", c.owner, c.repo, existing.ID)
		if err := c.do(ctx, http.MethodPatch, path, req, &comment); err != nil {
			return nil, fmt.Errorf("failed to update comment: %w", err)
		}
		c.log.Infof("Updated report comment %d on PR #%d", comment.ID, pr)
		return &comment, nil
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", c.owner, c.repo, pr)
	if err := c.do(ctx, http.MethodPost, path, req, &comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	c.log.Infof("Created report comment %d on PR #%d", comment.ID, pr)
	return &comment, nil
}

func (c *Client) findComment(ctx context.Context, pr int) (*models.GitHubComment, error) {
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments?per_page=%d&page=%d", c.owner, c.repo, pr, commentsPerPage, page)
		var comments []models.GitHubComment
		if err := c.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
		for i := range comments {
			if strings.Contains(comments[i].Body, models.CommentMarker) {
				return &comments[i], nil
			}
		}
		if len(comments) < commentsPerPage {
			return nil, nil
		}
	}
}

// SetStatus creates a commit status with the perfbudget context
func (c *Client) SetStatus(ctx context.Context, sha, state, description, targetURL string) error {
	if sha == "" {
		return fmt.Errorf("commit sha is required")
	}
	if len(description) > maxDescriptionLen {
		description = description[:maxDescriptionLen-3] + "..."
	}

	req := models.GitHubStatusRequest{
		State:       state,
		TargetURL:   targetURL,
		Description: description,
		Context:     StatusContext,
	}
	path := fmt.Sprintf("/repos/%s/%s/statuses/%s", c.owner, c.repo, sha)
	if err := c.do(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("failed to set commit status: %w", err)
	}
	c.log.Infof("Set %s status on %s", state, sha)
	return nil
}

// do sends one request with retries and decodes the response into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return c.withRetry(ctx, func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			var ghErr models.GitHubErrorResponse
			if json.Unmarshal(data, &ghErr) == nil && ghErr.Message != "" {
				apiErr.Message = ghErr.Message
			}
			if retryable(resp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	})
}

// withRetry retries op on network errors, 5xx and 429 with exponential backoff
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), maxRetries), ctx)
	return backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, b, func(err error, wait time.Duration) {
		c.log.Warnf("GitHub request attempt %d failed, retrying in %s: %v", attempt, wait, err)
	})
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// ReadEvent reads the pull request event payload GitHub Actions provides
func ReadEvent(path string) (*models.GitHubPullRequestEvent, error) {
	if path == "" {
		return nil, errors.New("event path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	var event models.GitHubPullRequestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event file: %w", err)
	}
	return &event, nil
}
