package daemon

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

	"github.com/google/uuid"

	"github.com/devicelab-dev/maestro-ios-core/pkg/config"
	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// Routes served by the on-device XCTest runner.
const (
	routeStatus            = "/status"
	routeActiveApps        = "/activeApps"
	routeElementForProcess = "/element/process"
	routeElementAtPoint    = "/element/point"
	routeElementPayload    = "/element/payload"
	routeIsIdle            = "/isIdle"
	routeDefaultParameters = "/defaultParameters"
	routeSynthesize        = "/synthesize"
)

// HTTPClient is a Session speaking JSON over HTTP to the XCTest runner.
type HTTPClient struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

var _ Session = (*HTTPClient)(nil)

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithRequestTimeout sets the per-request HTTP timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewHTTPClient creates a client for the runner at baseURL. It does not connect.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.DefaultRequestTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPDialer returns a DialFunc that connects to the runner at baseURL and
// succeeds only once the runner reports ready.
func HTTPDialer(baseURL string, opts ...ClientOption) DialFunc {
	return func(ctx context.Context) (Session, error) {
		c := NewHTTPClient(baseURL, opts...)
		status, err := c.Status(ctx)
		if err != nil {
			return nil, err
		}
		if !status.Ready {
			return nil, fmt.Errorf("daemon at %s not ready: %s", c.baseURL, status.Message)
		}
		c.sessionID = status.SessionID
		return c, nil
	}
}

// SessionID returns the runner session reported at dial time.
func (c *HTTPClient) SessionID() string {
	return c.sessionID
}

// Status returns runner readiness.
func (c *HTTPClient) Status(ctx context.Context) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, routeStatus, nil, &status)
	return status, err
}

// ActiveApplications lists running applications.
func (c *HTTPClient) ActiveApplications(ctx context.Context) ([]Application, error) {
	var apps []Application
	if err := c.do(ctx, http.MethodGet, routeActiveApps, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// ElementForProcess resolves the topmost element of pid.
func (c *HTTPClient) ElementForProcess(ctx context.Context, pid int32) (element.Ref, error) {
	var resp struct {
		Element string `json:"element"`
	}
	err := c.do(ctx, http.MethodPost, routeElementForProcess, map[string]interface{}{"pid": pid}, &resp)
	if err != nil {
		return element.Ref{}, err
	}
	if resp.Element == "" {
		return element.Ref{}, core.ErrElementNotFound.WithDetails(map[string]interface{}{"pid": pid})
	}
	return element.Ref{PID: pid, Token: resp.Element}, nil
}

// ElementAtPoint resolves the element under (x, y).
func (c *HTTPClient) ElementAtPoint(ctx context.Context, x, y float64) (element.Ref, error) {
	var resp struct {
		PID     int32  `json:"pid"`
		Element string `json:"element"`
	}
	err := c.do(ctx, http.MethodPost, routeElementAtPoint, map[string]interface{}{"x": x, "y": y}, &resp)
	if err != nil {
		return element.Ref{}, err
	}
	if resp.Element == "" {
		return element.Ref{}, core.ErrElementNotFound.WithDetails(map[string]interface{}{"x": x, "y": y})
	}
	return element.Ref{PID: resp.PID, Token: resp.Element}, nil
}

// ElementPayload reads the attributes of ref.
func (c *HTTPClient) ElementPayload(ctx context.Context, ref element.Ref) (map[string]interface{}, error) {
	var payload map[string]interface{}
	body := map[string]interface{}{"pid": ref.PID, "element": ref.Token}
	if err := c.do(ctx, http.MethodPost, routeElementPayload, body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// IsIdle queries the busy/idle signal.
func (c *HTTPClient) IsIdle(ctx context.Context, pid int32) (bool, error) {
	var resp struct {
		Idle bool `json:"idle"`
	}
	if err := c.do(ctx, http.MethodPost, routeIsIdle, map[string]interface{}{"pid": pid}, &resp); err != nil {
		return false, err
	}
	return resp.Idle, nil
}

// DefaultParameters returns the runner's default synthesis parameters.
func (c *HTTPClient) DefaultParameters(ctx context.Context) (map[string]interface{}, error) {
	var params map[string]interface{}
	if err := c.do(ctx, http.MethodGet, routeDefaultParameters, nil, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// Synthesize delivers ev.
func (c *HTTPClient) Synthesize(ctx context.Context, ev Event) error {
	return c.do(ctx, http.MethodPost, routeSynthesize, ev, nil)
}

// Close drops idle connections. The runner keeps no per-client state.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// HTTP helpers

// response is the runner's envelope: {"value": ...} on success,
// {"value": {"error": ..., "message": ...}} on failure.
type response struct {
	Value json.RawMessage `json:"value"`
}

type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	requestID := uuid.New().String()
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Debug("%s %s [%v] id=%s ERROR: %v", method, path, elapsed, requestID, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return core.ErrDaemonDisconnected.WithCause(err).WithDetails(map[string]interface{}{"route": path})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.ErrDaemonDisconnected.WithCause(fmt.Errorf("read response: %w", err))
	}
	logger.Debug("%s %s [%v] id=%s status=%d", method, path, elapsed, requestID, resp.StatusCode)

	var env response
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("failed to parse response: %w (body: %s)", err, truncate(string(data), 200))
		}
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, path, env.Value)
	}

	if out == nil || len(env.Value) == 0 || string(env.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func statusError(code int, path string, raw json.RawMessage) error {
	var ev errorValue
	_ = json.Unmarshal(raw, &ev)
	msg := ev.Message
	if msg == "" {
		msg = ev.Error
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusNotFound && strings.HasPrefix(path, "/element"):
		return core.ErrElementNotFound.WithMessage(msg)
	case code == http.StatusServiceUnavailable:
		// The runner is up but its XCTest connection to testmanagerd dropped.
		return core.ErrDaemonDisconnected.WithCause(errors.New(msg))
	default:
		return fmt.Errorf("daemon error %d on %s: %s", code, path, msg)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
