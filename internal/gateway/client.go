// Package gateway is the single HTTP client for the monitoring API. It attaches
// the session credential to every request and handles authentication failures
// in one place, whichever call group issued the request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"iotmon/internal/logging"
)

// LoginRoute is the login entry point reported with every unauthenticated event.
const LoginRoute = "/login"

// Credentials is the part of the session store the gateway needs.
type Credentials interface {
	Get() (string, bool)
	Clear()
}

// Request describes one API call. Call groups build these; nothing else should.
// Path is in escaped form, relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  []Param
	Body   any
}

// Param is one query parameter. Order is preserved on the wire.
type Param struct {
	Key   string
	Value string
}

// UnauthenticatedEvent is emitted once per 401 response after the credential
// has been cleared. Redirect is the route the application should navigate to.
type UnauthenticatedEvent struct {
	Method   string
	Path     string
	Redirect string
	At       time.Time
}

// Client dispatches Requests against the API base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	creds   Credentials
	logger  *logging.Logger

	mu          sync.RWMutex
	subscribers []func(UnauthenticatedEvent)

	Auth          *AuthAPI
	Devices       *DevicesAPI
	Heartbeat     *HeartbeatAPI
	Notifications *NotificationsAPI
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client for baseURL. There is no request timeout; calls are
// bounded by ctx and the transport defaults.
func New(baseURL string, creds Credentials, logger *logging.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		creds:   creds,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Auth = &AuthAPI{c: c}
	c.Devices = &DevicesAPI{c: c}
	c.Heartbeat = &HeartbeatAPI{c: c}
	c.Notifications = &NotificationsAPI{c: c}
	return c, nil
}

// OnUnauthenticated registers fn to be called for every 401 response. The
// owning application translates the event into navigation.
func (c *Client) OnUnauthenticated(fn func(UnauthenticatedEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Do sends req and decodes a successful JSON response into out (which may be
// nil, or a *json.RawMessage to receive the body untouched). Every failure is
// returned as *Error.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	requestID := uuid.NewString()
	log := c.logger.WithRequestID(requestID)

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return &Error{Method: req.Method, Path: req.Path, Err: err}
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	// The credential is captured now; a concurrent Clear only affects later requests.
	if token, ok := c.creds.Get(); ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Errorf("Request %s %s failed: %v", req.Method, req.Path, err)
		return &Error{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	log.Debugf("Request: %s %s, Status: %d, Latency: %v", req.Method, req.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthenticated(req)
		return &Error{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warnf("Request %s %s returned status %d", req.Method, req.Path, resp.StatusCode)
		return &Error{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.baseURL
	rawPath := c.baseURL.EscapedPath() + req.Path
	p, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", req.Path, err)
	}
	u.Path, u.RawPath = p, rawPath
	u.RawQuery = encodeQuery(req.Query)

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// handleUnauthenticated clears the credential, then notifies every subscriber once.
func (c *Client) handleUnauthenticated(req Request) {
	c.creds.Clear()
	c.logger.Warnf("Request %s %s was rejected as unauthenticated; session cleared", req.Method, req.Path)

	ev := UnauthenticatedEvent{
		Method:   req.Method,
		Path:     req.Path,
		Redirect: LoginRoute,
		At:       time.Now(),
	}
	c.mu.RLock()
	subs := append([]func(UnauthenticatedEvent){}, c.subscribers...)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// encodeQuery drops empty values, matching how undefined params are omitted.
// Colons are left unescaped.
func encodeQuery(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		if p.Value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(queryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(queryEscape(p.Value))
	}
	return b.String()
}

func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%3A", ":")
}

func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
