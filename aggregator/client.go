// Package aggregator is the HTTP transport shared by the Classic and Fusion clients.
//
// Every request carries the static API key as a bearer token. Failures are reported as
// *errors.RouteError values:
//   - no response (network error, timeout, cancellation): KindTransport
//   - non-2xx response: KindTransport with StatusCode set
//   - undecodable 2xx body: KindQuoteParse
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// defaultTimeout bounds a single upstream round trip.
	defaultTimeout = 30 * time.Second
	// maxErrorBody bounds the response body kept in status errors.
	maxErrorBody = 512
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithAPIKey sets the key sent in the Authorization header.
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option { return func(c *Client) { c.logger = l } }

// Client executes JSON requests against one aggregator base URL.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
	logger    *logrus.Logger
}

// NewClient creates a client for base, e.g. "https://api.1inch.dev/swap/v6.0".
//
// Parameters:
// - base: the base URL all request paths are joined to.
// - opts: functional options.
//
// Returns:
// - *Client: the client.
// - error: an error if base is not a valid absolute URL.
func NewClient(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid base url %q", base)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "swap-router/1.0",
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes one upstream call.
//
// Fields:
// - Protocol: the protocol the call belongs to, used for error classification.
// - Step: the pipeline step, used for error classification.
// - Method: the HTTP method.
// - Path: the path joined to the base URL.
// - Query: the query parameters.
// - Body: a value encoded as JSON, or nil.
type Request struct {
	Protocol types.Protocol
	Step     string
	Method   string
	Path     string
	Query    url.Values
	Body     interface{}
}

// Do executes req and decodes a successful JSON response into out. out may be nil;
// an empty success body leaves out untouched.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the request description.
// - out: the destination of the decoded response body.
//
// Returns:
// - error: a *errors.RouteError describing the failure.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	u := *c.baseURL
	u.Path = path.Join(u.Path, req.Path)
	u.RawQuery = req.Query.Encode()

	logger := c.logger.WithFields(logrus.Fields{
		"protocol": req.Protocol,
		"step":     req.Step,
		"method":   req.Method,
		"path":     u.Path,
	})

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return commonerrors.NewTransportError(req.Protocol, req.Step, errors.Wrap(err, "failed to encode request body"))
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return commonerrors.NewTransportError(req.Protocol, req.Step, errors.Wrap(err, "failed to create request"))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.WithError(err).Warn("Aggregator request failed")
		return commonerrors.NewTransportError(req.Protocol, req.Step, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Warn("Failed to read aggregator response")
		return commonerrors.NewTransportError(req.Protocol, req.Step, errors.Wrap(err, "failed to read response body"))
	}

	logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Aggregator response")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return commonerrors.NewStatusError(req.Protocol, req.Step, resp.StatusCode, truncate(raw, maxErrorBody))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return commonerrors.NewQuoteParseError(req.Protocol, req.Step, "body", err)
	}
	return nil
}

func truncate(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max]
	}
	return s
}
