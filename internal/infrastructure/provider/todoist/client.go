package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
)

const providerName = "todoist"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// Client talks to the Todoist REST API v1.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	retry   config.RetryConfig
	logger  *zap.Logger
}

// NewClient creates a new Todoist client
func NewClient(cfg *config.TodoistConfig, retry *config.RetryConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		retry:  *retry,
		logger: logger.With(zap.String("provider", providerName)),
	}
}

var _ provider.TaskProvider = (*Client)(nil)

// GetProviderName returns the provider name
func (c *Client) GetProviderName() string {
	return providerName
}

type taskResponse struct {
	ID string `json:"id"`
}

// CreateTask creates a task
// POST /tasks
func (c *Client) CreateTask(ctx context.Context, req *provider.CreateTaskRequest) (string, error) {
	var task taskResponse
	if err := c.do(ctx, "create task", http.MethodPost, "/tasks", req, &task); err != nil {
		return "", err
	}
	if task.ID == "" {
		return "", &provider.APIError{Op: "create task", StatusCode: http.StatusOK, Body: "response has no task id"}
	}

	c.logger.Debug("Task created",
		zap.String("external_id", task.ID),
		zap.String("content", req.Content))
	return task.ID, nil
}

// MoveTask moves a task to a section
// POST /tasks/{id}/move
func (c *Client) MoveTask(ctx context.Context, externalID, sectionID string) error {
	body := map[string]string{"section_id": sectionID}
	return c.do(ctx, "move task", http.MethodPost, "/tasks/"+url.PathEscape(externalID)+"/move", body, nil)
}

// UpdateTask updates a task
// POST /tasks/{id}
func (c *Client) UpdateTask(ctx context.Context, externalID string, req *provider.UpdateTaskRequest) error {
	return c.do(ctx, "update task", http.MethodPost, "/tasks/"+url.PathEscape(externalID), req, nil)
}

type sectionsPage struct {
	Results    []provider.Section `json:"results"`
	NextCursor *string            `json:"next_cursor"`
}

// ListSections returns every section, following the pagination cursor
// GET /sections
func (c *Client) ListSections(ctx context.Context, projectID string) ([]provider.Section, error) {
	var sections []provider.Section
	cursor := ""

	for {
		path := "/sections"
		query := url.Values{}
		if projectID != "" {
			query.Set("project_id", projectID)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var page sectionsPage
		if err := c.do(ctx, "list sections", http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		sections = append(sections, page.Results...)

		if page.NextCursor == nil || *page.NextCursor == "" {
			break
		}
		cursor = *page.NextCursor
	}

	c.logger.Debug("Sections fetched",
		zap.String("project_id", projectID),
		zap.Int("count", len(sections)))
	return sections, nil
}

// do sends one request with retries. Fatal errors stop immediately; a 429
// whose Retry-After exceeds the backoff ceiling is returned at once so the
// caller can defer the work.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	attempt := 0
	operation := func() error {
		attempt++
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		err := c.send(ctx, op, method, path, payload, out)
		if err == nil {
			return nil
		}
		if !provider.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if provider.RetryAfter(err) > c.retry.MaxInterval {
			return backoff.Permanent(err)
		}

		c.logger.Warn("Todoist request failed; retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("status", provider.StatusCode(err)),
			zap.Error(err))
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retry.InitialInterval
	policy.MaxInterval = c.retry.MaxInterval
	policy.MaxElapsedTime = 0

	maxRetries := c.retry.MaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	withLimits := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx)

	if err := backoff.Retry(operation, withLimits); err != nil {
		c.logger.Error("Todoist request failed",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, op, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return &provider.APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.APIError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return &provider.APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       text,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// parseRetryAfter reads delta seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
