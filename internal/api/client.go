// Package api issues HTTP requests to the chat backend. The wire speaks
// snake_case JSON, the application speaks camelCase; pkg/casemap translates
// at the boundary. Request middleware is composed around the base transport,
// the refresh coordinator being one named middleware stage.
package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/pechorka/chatik/pkg/casemap"
)

const defaultTimeout = 10 * time.Second

// Request describes one outbound call. The same descriptor instance is
// resubmitted after a successful token refresh, so it carries the one-shot
// retried flag bounding refresh depth.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{} // JSON body, keys converted to snake_case on send
	Form   url.Values  // form-encoded body, takes precedence over Body
	Bearer string      // per-request bearer override, used by the refresh call

	retried bool
}

type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v, converting wire keys to
// camelCase first.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return errors.Wrap(casemap.UnmarshalCamel(r.Body, v), "failed to decode response")
}

type doFunc func(ctx context.Context, req *Request) (*Response, error)

// Middleware decorates the request path.
type Middleware func(next doFunc) doFunc

// Client is the authenticated HTTP client. The bearer credential is shared
// mutable state with lifecycle = application session; it is read at send
// time, so requests built earlier still pick up a refreshed token.
type Client struct {
	baseURL string
	httpCli *http.Client

	mu    sync.RWMutex
	token string

	mws []Middleware
	do  doFunc
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpCli: &http.Client{Timeout: cfg.Timeout},
	}
	c.do = c.send
	return c
}

// Use appends middleware to the request path. Middleware added first is
// outermost.
func (c *Client) Use(mws ...Middleware) {
	c.mws = append(c.mws, mws...)
	do := c.send
	for i := len(c.mws) - 1; i >= 0; i-- {
		do = c.mws[i](do)
	}
	c.do = do
}

// SetCredential replaces the bearer token attached to subsequent requests.
// An empty token clears the credential.
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.do(ctx, req)
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	u := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	var contentType string
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		raw, err := casemap.MarshalSnake(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	token := req.Bearer
	if token == "" {
		token = c.credential()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "%s %s: %v", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "%s %s: reading body: %v", req.Method, req.Path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.Wrapf(ErrAuth, "%s %s", req.Method, req.Path)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, &APIError{Status: resp.StatusCode, Body: respBody}
	}

	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}
