// Package apisvc is the client of the school platform REST API.
//
// Every request carries the bearer token of the injected session Manager. A 401 from
// any endpoint signs the admin out; a 403 is returned to the caller untouched.
package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/session"
)

const (
	DefaultThemeCacheTTL = 5 * time.Minute
	defaultUserAgent     = "schooladmin"

	// responses above this size are truncated
	maxBodySize = 10 << 20
)

type (
	Options struct {
		// BaseURL of the backend, without the /api prefix
		BaseURL string

		// Timeout bounds each request; 0 means no timeout.
		Timeout   time.Duration
		UserAgent string

		// HTTPClient replaces the default client; Timeout is ignored then.
		HTTPClient *http.Client

		Logger core.Logger

		// Registerer receives the request metrics; nil skips registration.
		Registerer prometheus.Registerer

		// ThemeCacheTTL bounds how long a school theme is reused; negative disables the cache.
		ThemeCacheTTL time.Duration

		// OnUnauthorized runs after an authenticated request got a 401 and the session was cleared.
		OnUnauthorized func()
	}

	Client struct {
		baseURL        string
		http           *http.Client
		sess           *session.Manager
		userAgent      string
		logger         core.Logger
		onUnauthorized func()
		themes         *cache.Cache
		metrics        *metrics
	}

	// request describes one call. endpoint is the route template used as metrics label.
	request struct {
		method   string
		endpoint string
		path     string
		query    url.Values
		form     url.Values
		json     interface{}
		body     io.Reader
		ctype    string
	}
)

func New(sess *session.Manager, opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(err, "invalid API URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("invalid API URL %q: expected http(s)://host[:port]", opts.BaseURL)
	}
	if sess == nil {
		return nil, errors.New("a session manager is required")
	}

	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.ThemeCacheTTL == 0 {
		opts.ThemeCacheTTL = DefaultThemeCacheTTL
	}

	c := &Client{
		baseURL:        base,
		http:           opts.HTTPClient,
		sess:           sess,
		userAgent:      opts.UserAgent,
		logger:         opts.Logger,
		onUnauthorized: opts.OnUnauthorized,
		metrics:        newMetrics(opts.Registerer, opts.Logger),
	}
	if opts.ThemeCacheTTL > 0 {
		c.themes = cache.New(opts.ThemeCacheTTL, 2*opts.ThemeCacheTTL)
	}
	return c, nil
}

// BaseURL is the backend the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	body, ctype := req.body, req.ctype
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		ctype = "application/x-www-form-urlencoded"
	case req.json != nil:
		data, err := json.Marshal(req.json)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
		ctype = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if ctype != "" {
		httpReq.Header.Set("Content-Type", ctype)
	}
	if token := c.sess.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

// do sends req and returns the body of a 2xx response.
// Any other outcome is a *core.NetworkError or a *core.APIError.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	reqID := httpReq.Header.Get("X-Request-ID")
	authenticated := httpReq.Header.Get("Authorization") != ""

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observe(req.method, req.endpoint, "error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &core.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.observe(req.method, req.endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, &core.NetworkError{Err: err}
	}

	c.logger.Debug("api request", map[string]interface{}{
		"method":     req.method,
		"path":       req.path,
		"status":     resp.StatusCode,
		"request_id": reqID,
	})

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	apiErr := newAPIError(resp.StatusCode, body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.unauthorized(authenticated)
	case http.StatusForbidden:
		// left to the caller: access denied never signs out
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Error("api server error", apiErr, c.sess.Current(), map[string]interface{}{
				"method":     req.method,
				"path":       req.path,
				"request_id": reqID,
			})
		}
	}
	return nil, apiErr
}

// unauthorized applies the 401 policy: forget the session and everything cached for it.
// A 401 on a request sent without a token (a failed sign-in) leaves both untouched.
func (c *Client) unauthorized(authenticated bool) {
	if !authenticated {
		return
	}
	if err := c.sess.SignOut(); err != nil {
		c.logger.Error("clearing session after 401", err)
	}
	if c.themes != nil {
		c.themes.Flush()
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// decodeOne reads an entity that may come bare or wrapped as {"<key>": {...}}.
func decodeOne(body []byte, key string, out interface{}) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err == nil {
		if raw, ok := env[key]; ok && len(raw) > 0 && raw[0] == '{' {
			body = raw
		}
	}
	return errors.Wrap(json.Unmarshal(body, out), "decoding response")
}

// decodeList reads a listing that may come bare or wrapped as {"<key>": [...]}.
func decodeList(body []byte, key string, out interface{}) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if body[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(body, &env); err != nil {
			return errors.Wrap(err, "decoding response")
		}
		raw, ok := env[key]
		if !ok || string(raw) == "null" {
			return nil
		}
		body = raw
	}
	return errors.Wrap(json.Unmarshal(body, out), "decoding response")
}

func schoolPath(schoolID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/api/schools/")
	b.WriteString(url.PathEscape(schoolID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
