// Package tracker implements the HTTP client for the task tracker API the
// rollout board is synchronized from.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/infrastructure/config"
)

// maxResponseSize bounds how much of a tracker response is read (10MB).
const maxResponseSize = 10 * 1024 * 1024

// defaultRateLimitWait is how long to back off after a 429 when the server
// does not send a Retry-After header.
const defaultRateLimitWait = 5 * time.Second

var (
	// ErrTrackerUnavailable indicates the tracker could not be reached.
	ErrTrackerUnavailable = errors.New("tracker: service unavailable")
	// ErrTrackerRequestFailed indicates the tracker rejected the request.
	ErrTrackerRequestFailed = errors.New("tracker: request failed")
	// ErrFieldNotFound indicates a custom field is not defined on the list.
	ErrFieldNotFound = errors.New("tracker: custom field not found")
)

// Client is a typed client for the tracker REST API. All calls are bounded
// by the request timeout and retried on rate limiting and transport errors.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	maxRetries int
	retryDelay time.Duration

	// rateLimitWait is the fallback backoff for 429 responses.
	rateLimitWait time.Duration

	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a tracker client from configuration.
func NewClient(cfg config.TrackerConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		token:         cfg.Token,
		pageSize:      pageSize,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryBaseDelay,
		rateLimitWait: defaultRateLimitWait,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

// ListTasksOptions narrows a list-tasks query.
type ListTasksOptions struct {
	// IncludeClosed asks the tracker to return closed tasks as well.
	IncludeClosed bool
	// UpdatedSince limits results to tasks updated after this instant.
	UpdatedSince time.Time
}

// listTasksResponse is the envelope of the list-tasks endpoint.
type listTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// ListTasks fetches every task of a list, following pagination until the
// server returns a short page. Subtasks are always included; archived tasks
// never are.
func (c *Client) ListTasks(ctx context.Context, listID string, opts ListTasksOptions) ([]Task, error) {
	var all []Task
	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("subtasks", "true")
		params.Set("archived", "false")
		params.Set("include_closed", strconv.FormatBool(opts.IncludeClosed))
		if !opts.UpdatedSince.IsZero() {
			params.Set("date_updated_gt", strconv.FormatInt(opts.UpdatedSince.UnixMilli(), 10))
		}

		body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/list/%s/task", listID), params)
		if err != nil {
			return nil, err
		}

		var resp listTasksResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("tracker: failed to decode task page: %w", err)
		}

		all = append(all, resp.Tasks...)
		if len(resp.Tasks) < c.pageSize {
			return all, nil
		}
	}
}

// GetTask fetches a single task with its subtasks.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	params := url.Values{}
	params.Set("include_subtasks", "true")

	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/task/%s", taskID), params)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("tracker: failed to decode task: %w", err)
	}
	return &task, nil
}

// listFieldsResponse is the envelope of the list-fields endpoint.
type listFieldsResponse struct {
	Fields []FieldDef `json:"fields"`
}

// ListFields fetches the custom field definitions of a list.
func (c *Client) ListFields(ctx context.Context, listID string) ([]FieldDef, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/list/%s/field", listID), nil)
	if err != nil {
		return nil, err
	}

	var resp listFieldsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tracker: failed to decode fields: %w", err)
	}
	return resp.Fields, nil
}

// FindFieldID resolves a custom field name to its ID on the given list.
func (c *Client) FindFieldID(ctx context.Context, listID, fieldName string) (string, error) {
	fields, err := c.ListFields(ctx, listID)
	if err != nil {
		return "", err
	}
	for _, f := range fields {
		if f.Name == fieldName {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s on list %s", ErrFieldNotFound, fieldName, listID)
}

// GetTimeInStatus fetches the per-status time breakdown of a task.
func (c *Client) GetTimeInStatus(ctx context.Context, taskID string) (*TimeInStatus, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/task/%s/time_in_status", taskID), nil)
	if err != nil {
		return nil, err
	}

	var tis TimeInStatus
	if err := json.Unmarshal(body, &tis); err != nil {
		return nil, fmt.Errorf("tracker: failed to decode time in status: %w", err)
	}
	return &tis, nil
}

// listCommentsResponse is the envelope of the list-comments endpoint.
type listCommentsResponse struct {
	Comments []Comment `json:"comments"`
}

// ListComments fetches the comments of a task, newest first as the tracker
// returns them.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/task/%s/comment", taskID), nil)
	if err != nil {
		return nil, err
	}

	var resp listCommentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tracker: failed to decode comments: %w", err)
	}
	return resp.Comments, nil
}

// doRequest performs one API call with bounded retries. Rate-limited (429)
// responses back off for the Retry-After duration when the server sends one,
// and transport errors back off for the base retry delay.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("tracker: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
			c.logger.Warn("tracker request failed, retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("tracker: failed to read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := c.rateLimitWait
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
					wait = time.Duration(secs) * time.Second
				}
			}
			lastErr = fmt.Errorf("%w: HTTP 429", ErrTrackerRequestFailed)
			c.logger.Warn("tracker rate limited, backing off",
				zap.String("path", path),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			var errResp struct {
				Err string `json:"err"`
			}
			if err := json.Unmarshal(body, &errResp); err == nil && errResp.Err != "" {
				return nil, fmt.Errorf("%w: HTTP %d - %s", ErrTrackerRequestFailed, resp.StatusCode, errResp.Err)
			}
			return nil, fmt.Errorf("%w: HTTP %d", ErrTrackerRequestFailed, resp.StatusCode)
		}

		return body, nil
	}

	return nil, fmt.Errorf("tracker: retries exhausted: %w", lastErr)
}

// sleep waits for d or until the context is cancelled.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
