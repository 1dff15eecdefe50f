// Package httpclient performs the HTTP exchange for a test. It knows nothing
// about expectations: it turns a request description into a status code and
// a response body, or into a transport or timeout failure.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/argus-api/argus/internal/failure"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 10 << 20
)

var (
	// ErrTimeout marks a request that exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrBodyTooLarge marks a response body longer than MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")
)

// TransportError reports a request that could not be completed.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	// HTTPClient is used for the exchange; a default client is created when nil.
	HTTPClient *http.Client
	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response body is read. Zero means 10MiB.
	MaxBodyBytes int64
	// UserAgent is sent unless the request sets its own.
	UserAgent string
}

// Client executes test requests.
type Client struct {
	http         *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		http:         opts.HTTPClient,
		timeout:      opts.Timeout,
		maxBodyBytes: opts.MaxBodyBytes,
		userAgent:    opts.UserAgent,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = defaultMaxBodyBytes
	}
	return c
}

// Request describes one exchange. Body strings are sent as-is; any other
// non-nil body is JSON-encoded.
type Request struct {
	Method  string
	URL     string
	Params  map[string]any
	Headers map[string]string
	Body    any
}

// Response is the result of a completed exchange.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
}

// Do performs the exchange. Failures are *failure.Error values of kind
// KindTransport or KindTimeout.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.build(ctx, r)
	if err != nil {
		return nil, &failure.Error{Kind: failure.KindTransport, Msg: "building request", Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(r, err, time.Since(start))
	}
	defer resp.Body.Close()

	body, truncated, err := readBounded(resp.Body, c.maxBodyBytes)
	elapsed := time.Since(start)
	if err != nil {
		return nil, c.classify(r, fmt.Errorf("reading response body: %w", err), elapsed)
	}
	if truncated {
		return nil, &failure.Error{
			Kind: failure.KindTransport,
			Msg:  fmt.Sprintf("%s %s: response body exceeds %d bytes", r.Method, r.URL, c.maxBodyBytes),
			Err:  ErrBodyTooLarge,
		}
	}

	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     body,
		Duration: elapsed,
	}, nil
}

// readBounded reads at most maxBytes and reports whether more was available.
func readBounded(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}

func (c *Client) classify(r Request, err error, elapsed time.Duration) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &failure.Error{
			Kind: failure.KindTimeout,
			Msg:  fmt.Sprintf("%s %s: no response after %s", r.Method, r.URL, elapsed.Round(time.Millisecond)),
			Err:  ErrTimeout,
		}
	}
	return &failure.Error{
		Kind: failure.KindTransport,
		Msg:  "request failed",
		Err:  &TransportError{Method: r.Method, URL: r.URL, Err: err},
	}
}

func (c *Client) build(ctx context.Context, r Request) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", r.URL, err)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, v := range r.Params {
			if list, ok := v.([]any); ok {
				for _, item := range list {
					q.Add(k, stringify(item))
				}
				continue
			}
			q.Add(k, stringify(v))
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	contentType := ""
	switch b := r.Body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// stringify renders a scalar for use as a query parameter value.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}
