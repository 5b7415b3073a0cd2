package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000/api/v1"

	// RefreshCookieName is the cookie carrying the refresh credential.
	RefreshCookieName = "refresh_token"

	// NotificationsPath is the push channel path, served from the backend host root.
	NotificationsPath = "/notifications/ws"

	maxErrorBody = 1 << 20
)

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL           string
	WebSocketURL      string // defaults to the scheme and host of BaseURL
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Transport         http.RoundTripper
	Logger            *log.Logger
	Middleware        []Middleware
}

// Client talks to the backend REST API. All requests pass through its [Pipeline].
type Client struct {
	baseURL    string
	wsURL      *url.URL
	httpClient *http.Client
	pipeline   *Pipeline
	logger     *log.Logger

	mu      sync.Mutex
	refresh string

	Users *UserService
	Media *MediaService
	Files *FileService
}

// NewClient creates a client for opts.BaseURL.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", shared.ErrInvalidConfig, opts.BaseURL)
	}

	wsURL, err := webSocketBase(base, opts.WebSocketURL)
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	pipeline := NewPipeline(opts.Transport, opts.Logger, NewLimiter(opts.RequestsPerSecond, opts.Burst), opts.Middleware...)

	c := &Client{
		baseURL:    strings.TrimRight(base.String(), "/"),
		wsURL:      wsURL,
		httpClient: &http.Client{Transport: pipeline, Timeout: opts.Timeout},
		pipeline:   pipeline,
		logger:     opts.Logger,
	}
	c.Users = &UserService{client: c}
	c.Media = &MediaService{client: c}
	c.Files = &FileService{client: c}

	return c, nil
}

// BaseURL returns the REST base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Pipeline returns the middleware pipeline requests pass through.
func (c *Client) Pipeline() *Pipeline { return c.pipeline }

// Sign installs token on every subsequent request.
func (c *Client) Sign(token *oauth2.Token) { c.pipeline.Sign(token) }

// Unsign removes the installed credential.
func (c *Client) Unsign() { c.pipeline.Unsign() }

// Token returns the installed credential, or nil.
func (c *Client) Token() *oauth2.Token { return c.pipeline.Token() }

// OnUnauthorized registers the handler for 401 responses to signed requests.
func (c *Client) OnUnauthorized(fn UnauthorizedHandler) { c.pipeline.OnUnauthorized(fn) }

// RefreshToken returns the captured refresh credential, or "".
func (c *Client) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh
}

// SetRefreshToken installs a refresh credential, e.g. one restored from storage.
func (c *Client) SetRefreshToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = token
}

// WebSocketURL returns the push channel URL for path with token as the query credential.
func (c *Client) WebSocketURL(path, token string) string {
	u := *c.wsURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	anonymous   bool
	refresh     bool
	bearer      string
}

func formRequest(method, path string, form url.Values) request {
	return request{
		method:      method,
		path:        path,
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
}

func jsonRequest(method, path string, payload any) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("failed to encode request: %w", err)
	}
	return request{method: method, path: path, body: bytes.NewReader(data), contentType: "application/json"}, nil
}

// do performs r and decodes a successful JSON response into out. A *[]byte out receives the raw body.
func (c *Client) do(ctx context.Context, r request, out any) error {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	if r.anonymous || r.bearer != "" {
		ctx = Anonymous(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}
	if r.refresh {
		if token := c.RefreshToken(); token != "" {
			req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: token})
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.captureRefresh(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := parseAPIError(resp.StatusCode, body)
		if apiErr.Message() == "" && len(body) > 0 {
			c.logger.Debug("unstructured error response", "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
		}
		return apiErr
	}

	switch dst := out.(type) {
	case nil:
		io.Copy(io.Discard, resp.Body)
		return nil
	case *[]byte:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		*dst = body
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

// captureRefresh stores or clears the refresh credential from Set-Cookie headers.
func (c *Client) captureRefresh(resp *http.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name != RefreshCookieName {
			continue
		}

		expired := cookie.MaxAge < 0 || cookie.Value == "" ||
			(!cookie.Expires.IsZero() && cookie.Expires.Before(time.Now()))

		c.mu.Lock()
		if expired {
			c.refresh = ""
		} else {
			c.refresh = cookie.Value
		}
		c.mu.Unlock()
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (t tokenResponse) token() (*oauth2.Token, error) {
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", shared.ErrAuthFailed)
	}
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Expiry:      TokenExpiry(t.AccessToken),
	}, nil
}

// TokenExpiry reads the exp claim of a JWT access token without verifying it. Opaque tokens return the zero time.
func TokenExpiry(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func webSocketBase(base *url.URL, override string) (*url.URL, error) {
	if override != "" {
		u, err := url.Parse(override)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return nil, fmt.Errorf("%w: invalid websocket URL %q", shared.ErrInvalidConfig, override)
		}
		return u, nil
	}

	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	return &url.URL{Scheme: scheme, Host: base.Host}, nil
}

// IsCanceled reports whether err came from a cancelled or superseded context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
