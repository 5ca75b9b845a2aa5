// Package gateway sends every backend request on behalf of the session.
//
// Outbound, it attaches the held access credential as a bearer token.
// Inbound, a 401 on an ordinary endpoint triggers one refresh of the access
// credential followed by exactly one replay of the original request. When
// the refresh itself fails the session is cleared and the user is sent to
// the login location.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"fincli/internal/log"
	"fincli/internal/session"
)

// RefreshPath is the endpoint that exchanges a refresh credential for a new
// access credential.
const RefreshPath = "/auth/refresh/"

// authEndpoint matches calls that must never trigger recovery: a 401 from
// them is an answer, not an expired session.
var authEndpoint = regexp.MustCompile(`/auth/(login|register|refresh|logout)/`)

// Request describes one backend call. Body is encoded as JSON once and
// reused if the request is replayed.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// Access, when set, is sent instead of the session's credential and the
	// request is never recovered.
	Access string
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// pending is a request in flight together with how many times it has been
// sent and the access credential it was last sent with.
type pending struct {
	req      *Request
	body     []byte
	attempts int
	token    string
}

// Config holds gateway configuration
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshTimeout time.Duration
	Transport      http.RoundTripper
	Navigator      Navigator
	Logger         *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000/api",
		Timeout:        30 * time.Second,
		RefreshTimeout: 15 * time.Second,
	}
}

type Gateway struct {
	baseURL        string
	client         *http.Client
	refreshClient  *http.Client
	refreshTimeout time.Duration
	session        *session.Session
	nav            Navigator
	logger         *log.Logger
	flights        singleflight.Group
}

// New creates a gateway for the backend at cfg.BaseURL acting for sess.
func New(cfg Config, sess *session.Session) (*Gateway, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = def.RefreshTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if sess == nil {
		sess = session.New(nil)
	}

	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		// The refresh call shares the transport but never goes through Do,
		// so it carries no bearer token and is never recovered.
		refreshClient:  &http.Client{Timeout: cfg.RefreshTimeout, Transport: cfg.Transport},
		refreshTimeout: cfg.RefreshTimeout,
		session:        sess,
		nav:            cfg.Navigator,
		logger:         cfg.Logger.WithComponent(log.ComponentGateway),
	}, nil
}

// Session returns the session the gateway acts for.
func (g *Gateway) Session() *session.Session { return g.session }

// BaseURL returns the backend base URL without a trailing slash.
func (g *Gateway) BaseURL() string { return g.baseURL }

// Do sends req and returns the response. Non-2xx responses are returned as
// *HTTPError. A 401 is recovered at most once per call.
func (g *Gateway) Do(ctx context.Context, req *Request) (*Response, error) {
	p := &pending{req: req}
	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		p.body = body
	}

	resp, err := g.send(ctx, p)
	if err == nil {
		return resp, nil
	}
	return g.recover(ctx, p, err)
}

// recover decides what to do with a failed attempt.
func (g *Gateway) recover(ctx context.Context, p *pending, err error) (*Response, error) {
	if !IsStatus(err, http.StatusUnauthorized) {
		return nil, err
	}
	if IsAuthEndpoint(p.req.Path) || p.req.Access != "" || p.attempts > 1 {
		return nil, err
	}

	// Another caller refreshed while this request was in flight.
	if current := g.session.Access(); current != "" && current != p.token {
		g.logger.DebugContext(ctx, "Replaying with newer access credential",
			log.FieldOperation, log.OpReplay,
			log.FieldPath, p.req.Path)
		return g.send(ctx, p)
	}

	refresh := g.session.RefreshToken()
	if refresh == "" {
		return nil, err
	}

	if _, rerr := g.refresh(ctx, refresh); rerr != nil {
		return nil, rerr
	}

	g.logger.DebugContext(ctx, "Replaying after refresh",
		log.FieldOperation, log.OpReplay,
		log.FieldPath, p.req.Path,
		log.FieldAttempt, p.attempts+1)
	return g.send(ctx, p)
}

// send performs one attempt with the access credential held right now.
func (g *Gateway) send(ctx context.Context, p *pending) (*Response, error) {
	p.attempts++
	p.token = p.req.Access
	if p.token == "" {
		p.token = g.session.Access()
	}

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, p.req.Method, g.url(p.req.Path, p.req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", p.req.Method, p.req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if p.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range p.req.Header {
		// Authorization belongs to the session
		if http.CanonicalHeaderKey(k) == "Authorization" {
			continue
		}
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	return g.roundTrip(g.client, httpReq, p.req.Path)
}

func (g *Gateway) roundTrip(client *http.Client, req *http.Request, path string) (*Response, error) {
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.Method, path, err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     req.Method,
			Path:       path,
			StatusCode: httpResp.StatusCode,
			Body:       data,
		}
	}
	return resp, nil
}

// refresh exchanges the refresh credential for a new access credential.
// Concurrent callers holding the same refresh credential share one call.
// The shared call is detached from any single caller's cancellation.
func (g *Gateway) refresh(ctx context.Context, refreshToken string) (string, error) {
	ch := g.flights.DoChan(refreshToken, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
		defer cancel()

		access, err := g.requestRefresh(rctx, refreshToken)
		if err != nil {
			g.expire(rctx, err)
			return "", &RefreshError{Err: err}
		}

		if err := g.session.SetAccess(rctx, access); err != nil {
			// The in-memory credential is already replaced
			g.logger.WarnContext(rctx, "Failed to persist refreshed credential",
				log.FieldOperation, log.OpRefresh,
				log.FieldError, err)
		}
		g.logger.InfoContext(rctx, "Access credential refreshed",
			log.FieldOperation, log.OpRefresh)
		return access, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Gateway) requestRefresh(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(RefreshPath, nil), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.roundTrip(g.refreshClient, req, RefreshPath)
	if err != nil {
		return "", err
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", errors.New("refresh response carried no access credential")
	}
	return out.Access, nil
}

// expire clears the session after an irrecoverable refresh failure and
// sends the user to the login location unless already there.
func (g *Gateway) expire(ctx context.Context, cause error) {
	g.logger.WarnContext(ctx, "Refresh failed, clearing session",
		log.FieldOperation, log.OpRefresh,
		log.FieldError, cause)

	if err := g.session.Clear(ctx); err != nil {
		g.logger.ErrorContext(ctx, "Failed to clear stored credentials",
			log.FieldOperation, log.OpLogout,
			log.FieldError, err)
	}
	if g.nav != nil && g.nav.Location() != LoginLocation {
		g.nav.Navigate(LoginLocation)
	}
}

func (g *Gateway) url(path string, query url.Values) string {
	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// IsAuthEndpoint reports whether path is one of the authentication calls
// that are never recovered.
func IsAuthEndpoint(path string) bool {
	return authEndpoint.MatchString(path)
}
