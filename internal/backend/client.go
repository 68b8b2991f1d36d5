// Package backend is the REST and WebSocket client of the face-recognition
// attendance backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
)

// Client talks to the attendance backend. The zero value is not usable; use New.
type Client struct {
	URL       string
	parsedURL *url.URL
	wsURL     string
	http      *http.Client
	metrics   *metrics.Metrics
}

// New creates a client for the backend at baseURL. wsURL is the WebSocket base
// (ws:// or wss://) used for AI result channels.
func New(baseURL, wsURL string) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	return &Client{
		URL:       baseURL,
		parsedURL: parsed,
		wsURL:     strings.TrimRight(wsURL, "/"),
		http:      &http.Client{},
	}, nil
}

// SetMetrics attaches a metrics sink for failed requests.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http = hc
}

// APIError is a non-2xx response from the backend. Detail holds the backend's
// "detail" message when the body carried one, otherwise the raw body.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Detail)
}

// IsNotFoundError returns true if the error is a 404 from the backend.
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ErrorDetail returns the backend detail message of err, or err.Error() for
// transport errors.
func ErrorDetail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

// resolveURL builds a full URL from the base URL and the given path segments.
// A query string in the last segment is preserved.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// withQuery appends encoded query values to endpoint.
func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

// readErrorBody extracts the backend "detail" message from an error body.
// Falls back to the trimmed raw body.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil {
			return detail
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) fail(op string, err error) error {
	c.metrics.BackendError(op)
	return err
}

// do sends the request and checks the status against expected. The caller owns
// the returned response body.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body io.Reader, contentType string, expected ...int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), body)
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("could not create request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req) //nolint:gosec // URL constructed from configured base URL via resolveURL
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("could not send request: %w", err))
	}

	if !slices.Contains(expected, resp.StatusCode) {
		defer resp.Body.Close()
		return nil, c.fail(op, &APIError{Status: resp.StatusCode, Detail: readErrorBody(resp.Body)})
	}
	return resp, nil
}

// doGetJSON performs a GET request and unmarshals the JSON response into T.
func doGetJSON[T any](ctx context.Context, c *Client, op, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, op, http.MethodGet, endpoint, nil, http.StatusOK)
}

// doRequestJSON performs a request with an optional JSON body and unmarshals
// the JSON response into T.
func doRequestJSON[T any](ctx context.Context, c *Client, op, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	var bodyReader io.Reader
	contentType := ""
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, method, endpoint, bodyReader, contentType, expectedStatuses...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("could not read response body: %w", err))
	}

	var result T
	if len(bytes.TrimSpace(body)) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, c.fail(op, fmt.Errorf("could not unmarshal response: %w", err))
	}
	return &result, nil
}

// doRequestRaw performs a request and discards the response body.
func doRequestRaw(ctx context.Context, c *Client, op, method, endpoint string, requestBody any) error {
	var bodyReader io.Reader
	contentType := ""
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, method, endpoint, bodyReader, contentType, http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// doGetBytes performs a GET request and returns the raw response body.
func doGetBytes(ctx context.Context, c *Client, op, endpoint string) ([]byte, error) {
	resp, err := c.do(ctx, op, http.MethodGet, endpoint, nil, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("could not read response body: %w", err))
	}
	return body, nil
}

// Stream is an open streaming response from the backend.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
}

// openStream performs a GET request and hands back the open body.
func (c *Client) openStream(ctx context.Context, op, endpoint string) (*Stream, error) {
	resp, err := c.do(ctx, op, http.MethodGet, endpoint, nil, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &Stream{Body: resp.Body, ContentType: resp.Header.Get("Content-Type")}, nil
}
