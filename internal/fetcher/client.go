package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/html"
	"uocsclub.net/cpstats/internal/config"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/types"
)

const userAgent = "cpstats/1.0 (+https://uocsclub.net)"

// FetchError ties an upstream failure to the platform and call that
// produced it. Match the cause with errors.Is against the types.Err* values.
type FetchError struct {
	Platform types.Platform
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchErr(platform types.Platform, op string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Platform: platform, Op: op, Err: err}
}

// Client is the HTTP plumbing shared by every adapter.
type Client struct {
	http      *http.Client
	endpoints config.EndpointsConfig
	timeouts  config.TimeoutConfig
	logger    *slog.Logger
}

func NewClient(endpoints config.EndpointsConfig, timeouts config.TimeoutConfig, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		http:      &http.Client{},
		endpoints: endpoints,
		timeouts:  timeouts,
		logger:    log,
	}
}

// get issues a GET and returns the body with the status code. Transport
// failures are mapped to ErrTimeout or ErrUpstreamUnavailable.
func (c *Client) get(ctx context.Context, platform types.Platform, op string, target string, query url.Values) ([]byte, int, error) {
	if len(query) > 0 {
		target = target + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fetchErr(platform, op, fmt.Errorf("%w: failed to create request: %v", types.ErrUpstreamUnavailable, err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fetchErr(platform, op, fmt.Errorf("%w: %v", types.ErrTimeout, err))
		}
		return nil, 0, fetchErr(platform, op, fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fetchErr(platform, op, fmt.Errorf("%w: failed to read body: %v", types.ErrUpstreamUnavailable, err))
	}

	c.logger.Debug("upstream call",
		"platform", platform,
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(body),
	)
	return body, resp.StatusCode, nil
}

// getJSON decodes a 200 response into out. 404 means the handle does not
// exist; any other status is an upstream failure.
func (c *Client) getJSON(ctx context.Context, platform types.Platform, op string, target string, query url.Values, out any) error {
	body, status, err := c.get(ctx, platform, op, target, query)
	if err != nil {
		return err
	}
	if err := checkStatus(status, body); err != nil {
		return fetchErr(platform, op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fetchErr(platform, op, fmt.Errorf("%w: %v", types.ErrParse, err))
	}
	return nil
}

func (c *Client) getHTML(ctx context.Context, platform types.Platform, op string, target string, query url.Values) (*html.Node, error) {
	body, status, err := c.get(ctx, platform, op, target, query)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, fetchErr(platform, op, err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fetchErr(platform, op, fmt.Errorf("%w: %v", types.ErrParse, err))
	}
	return doc, nil
}

func checkStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return types.ErrUserNotFound
	default:
		return fmt.Errorf("%w: status %d: %s", types.ErrUpstreamUnavailable, status, snippet(body))
	}
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
