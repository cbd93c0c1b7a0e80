package core

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	headerAccessToken = "access-token"
	headerSignupToken = "signup-token"
)

// Client talks to the AppKey backend and owns every session state transition.
// Ceremony calls may overlap, but session replacement is serialized so a
// stale concurrent response cannot clobber a newer login.
type Client struct {
	config        *Config
	httpClient    *http.Client
	store         SessionStore
	authenticator Authenticator

	// mu is the single-writer guard for session replacement.
	mu sync.Mutex
}

type Option func(*Client)

// WithHTTPClient replaces the transport used for ceremony calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithSessionStore installs a session store; without one the session lives
// only in process memory.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) { c.store = store }
}

// WithAuthenticator installs the credential-producing capability used by the
// Perform* ceremony helpers.
func WithAuthenticator(authenticator Authenticator) Option {
	return func(c *Client) { c.authenticator = authenticator }
}

func NewClient(config *Config, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	c := &Client{
		config: config,
		store:  &memoryStore{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		timeout := config.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// Session returns the current session. It is never nil on a nil error.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	return c.store.Current(ctx)
}

func (c *Client) endpoint(path string) (string, error) {
	base := c.config.baseURL()
	if base == "" {
		return "", ErrConfiguration
	}
	return base + path, nil
}

// postForm executes a form-encoded POST and classifies the response before
// returning the raw payload. url.Values.Encode percent-escapes reserved
// characters, so identity handles like "a+b@example.com" survive the body
// intact.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, headers map[string]string) ([]byte, error) {
	target, err := c.endpoint(path)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, target, strings.NewReader(form.Encode()), headers)
}

// postFormAuthed is postForm with the access-token header, failing before any
// network traffic when no session is established.
func (c *Client) postFormAuthed(ctx context.Context, path string, form url.Values) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.postForm(ctx, path, form, map[string]string{headerAccessToken: token})
}

// getAuthed executes an authenticated GET against a fully formed URL.
func (c *Client) getAuthed(ctx context.Context, target string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, target, nil, map[string]string{headerAccessToken: token})
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(payload, resp.StatusCode); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	session, err := c.store.Current(ctx)
	if err != nil {
		return "", err
	}
	if !session.Authenticated() {
		return "", ErrUnauthenticated
	}
	return session.AccessToken, nil
}
