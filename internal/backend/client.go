// Package backend is the REST client for the scenario server.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vk/tensorscope/internal/ctxlog"
	"github.com/vk/tensorscope/internal/model"
)

// DefaultMaxSize is the element cap the server applies to full data fetches.
const DefaultMaxSize = 10000

var codec = sonic.ConfigStd

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the /api endpoints of one server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a client for baseURL ("http://host:port").
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must use http or https", baseURL)
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// ListScenarios fetches the scenario catalog.
func (c *Client) ListScenarios(ctx context.Context) ([]model.ScenarioInfo, error) {
	var out []model.ScenarioInfo
	if err := c.do(ctx, http.MethodGet, "/api/scenarios", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetScenario fetches one scenario with its parameters, probes and graph.
func (c *Client) GetScenario(ctx context.Context, id string) (*model.ScenarioDetail, error) {
	var out model.ScenarioDetail
	if err := c.do(ctx, http.MethodGet, "/api/scenarios/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type runRequest struct {
	Parameters map[string]any `json:"parameters"`
}

// RunScenario runs a scenario. Nil parameters run with the server defaults.
func (c *Client) RunScenario(ctx context.Context, id string, params map[string]any) (*model.RunResult, error) {
	if params == nil {
		params = map[string]any{}
	}
	var out model.RunResult
	path := "/api/scenarios/" + url.PathEscape(id) + "/run"
	if err := c.do(ctx, http.MethodPost, path, nil, runRequest{Parameters: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TensorSummary fetches the summary of one tensor.
func (c *Client) TensorSummary(ctx context.Context, id string) (*model.TensorSummary, error) {
	var out model.TensorSummary
	if err := c.do(ctx, http.MethodGet, "/api/tensors/"+url.PathEscape(id)+"/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TensorData fetches the full data of a tensor with at most maxSize
// elements. A non-positive maxSize uses DefaultMaxSize.
func (c *Client) TensorData(ctx context.Context, id string, maxSize int) (*model.TensorData, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	q := url.Values{"max_size": {strconv.Itoa(maxSize)}}
	var out model.TensorData
	if err := c.do(ctx, http.MethodGet, "/api/tensors/"+url.PathEscape(id)+"/data", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TensorSlice fetches a window of a 1D or 2D tensor.
func (c *Client) TensorSlice(ctx context.Context, id string, req model.SliceRequest) (*model.TensorSlice, error) {
	q := url.Values{
		"row_start": {strconv.Itoa(req.RowStart)},
		"col_start": {strconv.Itoa(req.ColStart)},
	}
	if req.RowEnd != nil {
		q.Set("row_end", strconv.Itoa(*req.RowEnd))
	}
	if req.ColEnd != nil {
		q.Set("col_end", strconv.Itoa(*req.ColEnd))
	}
	var out model.TensorSlice
	if err := c.do(ctx, http.MethodGet, "/api/tensors/"+url.PathEscape(id)+"/slice", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("server reported status %q", out.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := codec.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Making HTTP request", "method", method, "url", target)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("Received HTTP response", "status", resp.Status, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail(data)}
	}
	if err := codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// detail extracts FastAPI's {"detail": ...} message, falling back to the
// raw body.
func detail(body []byte) string {
	var env struct {
		Detail any `json:"detail"`
	}
	if err := codec.Unmarshal(body, &env); err != nil || env.Detail == nil {
		return strings.TrimSpace(string(body))
	}
	if s, ok := env.Detail.(string); ok {
		return s
	}
	data, err := codec.Marshal(env.Detail)
	if err != nil {
		return fmt.Sprint(env.Detail)
	}
	return string(data)
}
