package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/septivank/meter-resolution-console/internal/domain"
	"go.uber.org/zap"
)

// TokenSource supplies the bearer token for the current session, if any
type TokenSource interface {
	Token() string
}

// Options configures a Client
type Options struct {
	BaseURL string
	// Timeout of zero means requests are bounded only by their context.
	Timeout time.Duration
	Jar     http.CookieJar
	Tokens  TokenSource
	Logger  *zap.Logger
}

// Client talks to the remote billing API. Requests are credentialed: the cookie jar
// carries the server session and a bearer token is attached when one is known.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// New creates a billing API client
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api base url is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: opts.Timeout,
			Jar:     opts.Jar,
		},
		tokens: opts.Tokens,
		logger: logger,
	}, nil
}

// BaseURL returns the API root the client was configured with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetAbnormalReading fetches a reading with its nested relations and moving average
func (c *Client) GetAbnormalReading(ctx context.Context, id int64) (*domain.Reading, error) {
	var resp readingEnvelope
	path := "/get-abnormal-reading/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, "get_abnormal_reading", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("reading %d: empty response", id)
	}
	return resp.Data, nil
}

// UpdateMeterReading commits a manual correction. The server recomputes exception and
// status fields and bills automatically.
func (c *Client) UpdateMeterReading(ctx context.Context, id int64, req CorrectionRequest) error {
	path := "/update-meter-reading/" + strconv.FormatInt(id, 10)
	return c.doJSON(ctx, "update_meter_reading", http.MethodPatch, path, req, nil)
}

// BillOnAverage bills the connection using the reading's moving average
func (c *Client) BillOnAverage(ctx context.Context, req AverageBillRequest) error {
	return c.doJSON(ctx, "bill_on_average", http.MethodPost, "/bill-on-average", req, nil)
}

// ListTaskTypes returns the task-type taxonomy
func (c *Client) ListTaskTypes(ctx context.Context) ([]domain.TaskType, error) {
	var types []domain.TaskType
	if err := c.doJSON(ctx, "list_task_types", http.MethodGet, "/get-tasks-types", nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// ListUsers returns the users tasks can be assigned to
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var resp usersEnvelope
	if err := c.doJSON(ctx, "list_users", http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateTaskForConnection creates a follow-up task
func (c *Client) CreateTaskForConnection(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	var task domain.Task
	if err := c.doJSON(ctx, "create_task_for_connection", http.MethodPost, "/create-task-for-connection", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Login authenticates and returns the token (if the server issues one) and the user
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the server session
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "logout", http.MethodPost, "/logout", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, operation, method, path string, body any, out any) error {
	start := time.Now()
	code := "error"
	defer func() {
		observeAPICall(operation, code, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		code = "transport_error"
		c.logger.Warn("api request failed",
			zap.String("operation", operation),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	code = strconv.Itoa(resp.StatusCode)
	c.logger.Debug("api request completed",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}
