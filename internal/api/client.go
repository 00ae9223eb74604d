package api

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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/five82/roster/internal/logging"
)

// UsersAPI defines the users resource operations.
// This interface is implemented by *Client and can be used for testing.
type UsersAPI interface {
	ListUsers(ctx context.Context, page int) (UserPage, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, fields UserFields) (User, error)
	UpdateUser(ctx context.Context, id int64, fields UserFields) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Authenticator exchanges credentials for a session token.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (LoginResponse, error)
}

// Ensure Client implements both interfaces at compile time.
var (
	_ UsersAPI      = (*Client)(nil)
	_ Authenticator = (*Client)(nil)
)

// Client talks to a reqres-style HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	apiKey    string
	token     string
	resource  string
	log       *slog.Logger
}

const (
	DefaultBaseURL   = "https://reqres.in/api"
	DefaultResource  = "users"
	defaultUserAgent = "roster/0.1"
	requestTimeout   = 10 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithToken sends token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithResource changes the collection path (default "users").
func WithResource(name string) Option {
	return func(c *Client) {
		if name = strings.Trim(strings.TrimSpace(name), "/"); name != "" {
			c.resource = name
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient builds a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		resource:  DefaultResource,
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListUsers retrieves one page of users.
func (c *Client) ListUsers(ctx context.Context, page int) (UserPage, error) {
	if c == nil {
		return UserPage{}, fmt.Errorf("client is nil")
	}
	if page < 1 {
		page = 1
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	rel := &url.URL{Path: c.resource, RawQuery: values.Encode()}
	var payload UserPage
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return UserPage{}, err
	}
	if payload.Page == 0 {
		payload.Page = page
	}
	return payload, nil
}

// GetUser retrieves a single user.
func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return User{}, fmt.Errorf("user id required")
	}
	var raw json.RawMessage
	if err := c.doURL(ctx, http.MethodGet, c.itemURL(id), nil, &raw); err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

// CreateUser posts a new user and returns the created record.
func (c *Client) CreateUser(ctx context.Context, fields UserFields) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var raw json.RawMessage
	rel := &url.URL{Path: c.resource}
	if err := c.doURL(ctx, http.MethodPost, rel, fields, &raw); err != nil {
		return User{}, err
	}
	created, err := decodeUser(raw)
	if err != nil {
		return User{}, err
	}
	return fields.Merge(created), nil
}

// UpdateUser sends a partial update and returns the server's view of the
// changed fields. The returned ID is always id.
func (c *Client) UpdateUser(ctx context.Context, id int64, fields UserFields) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return User{}, fmt.Errorf("user id required")
	}
	var raw json.RawMessage
	if err := c.doURL(ctx, http.MethodPut, c.itemURL(id), fields, &raw); err != nil {
		return User{}, err
	}
	updated, err := decodeUser(raw)
	if err != nil {
		return User{}, err
	}
	updated.ID = id
	return updated, nil
}

// DeleteUser removes a user. Any response body is ignored.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return fmt.Errorf("user id required")
	}
	return c.doURL(ctx, http.MethodDelete, c.itemURL(id), nil, nil)
}

// Login exchanges credentials for a token. A 400 response maps to
// ErrInvalidCredentials; everything else wraps ErrLoginFailed.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	if c == nil {
		return LoginResponse{}, fmt.Errorf("client is nil")
	}
	var payload LoginResponse
	err := c.doURL(ctx, http.MethodPost, &url.URL{Path: "login"}, creds, &payload)
	switch {
	case err == nil && payload.Token != "":
		return payload, nil
	case err == nil:
		return LoginResponse{}, fmt.Errorf("%w: response carried no token", ErrLoginFailed)
	case StatusCode(err) == http.StatusBadRequest:
		return LoginResponse{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	default:
		return LoginResponse{}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
}

func (c *Client) itemURL(id int64) *url.URL {
	return &url.URL{Path: c.resource + "/" + strconv.FormatInt(id, 10)}
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	op := method + " " + rel.String()
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return &Error{Op: op, Message: "create request", Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "op", op, "request_id", requestID, "error", err)
		return &Error{Op: op, Message: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug("api request",
		"op", op,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return &Error{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if dest == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Message: "read response", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &Error{Op: op, Message: "decode response", Err: err}
	}
	return nil
}

// maxErrorRunes bounds a plain-text error body kept in Error.Message.
const maxErrorRunes = 200

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
		return ""
	}
	text := strings.TrimSpace(string(data))
	if runes := []rune(text); len(runes) > maxErrorRunes {
		text = string(runes[:maxErrorRunes])
	}
	return text
}

// decodeUser accepts both {"data": {...}} and a bare user object.
func decodeUser(raw json.RawMessage) (User, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return User{}, nil
	}
	var env userEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		return *env.Data, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, errors.New("api url has no host")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
