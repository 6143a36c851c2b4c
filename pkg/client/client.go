package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/terra-clan/impact-portal/internal/models"
)

// ErrMissingToken is returned by authenticated calls made without a token
var ErrMissingToken = errors.New("missing bearer token")

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// CallHook observes every backend call; op names the gateway operation
type CallHook func(op string, elapsed time.Duration, err error)

// Client is a Go SDK for the impact backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	hook       CallHook
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCallHook registers an observer for backend calls
func WithCallHook(hook CallHook) Option {
	return func(c *Client) {
		c.hook = hook
	}
}

// NewClient creates a new backend client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token issued by the backend
type LoginResponse struct {
	Token string `json:"token"`
}

// CreateAccountRequest is the account form as the user filled it in
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type createUserDTO struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Profile  string `json:"profile"`
}

// UserRecord is the raw user document returned by the backend
type UserRecord struct {
	ID         models.ID          `json:"id"`
	Name       string             `json:"name"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	Phone      string             `json:"phone"`
	Avatar     string             `json:"avatar"`
	Bio        string             `json:"bio"`
	Points     int                `json:"points"`
	Challenges []models.Challenge `json:"challenges"`
	Solutions  []models.Solution  `json:"solutions"`
}

// CreateChallengeRequest is a new challenge proposal
type CreateChallengeRequest struct {
	Title           string
	Description     string
	Location        string
	DetailedAddress string
	Category        string
	ImageName       string
	Image           io.Reader
}

// DeriveUsername lower-cases name and strips all whitespace
func DeriveUsername(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToLower(name))
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.call(ctx, "login", http.MethodPost, "/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAccount registers a new user
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (*UserRecord, error) {
	dto := createUserDTO{
		Name:     req.Name,
		Username: DeriveUsername(req.Name),
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}

	var out UserRecord
	if err := c.call(ctx, "create_account", http.MethodPost, "/user/create", "", dto, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser retrieves a user document
func (c *Client) GetUser(ctx context.Context, token, id string) (*UserRecord, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var out UserRecord
	path := "/user/" + url.PathEscape(id)
	if err := c.call(ctx, "get_user", http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserChallenges retrieves the challenges nested in a user document.
// Locations are already resolved by the time they are returned.
func (c *Client) GetUserChallenges(ctx context.Context, token, id string) ([]models.Challenge, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var out struct {
		Challenges []models.Challenge `json:"challenges"`
	}
	path := "/user/" + url.PathEscape(id)
	if err := c.call(ctx, "get_user_challenges", http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	if out.Challenges == nil {
		return []models.Challenge{}, nil
	}
	return out.Challenges, nil
}

// CreateChallenge submits a challenge as a multipart form
func (c *Client) CreateChallenge(ctx context.Context, token string, req CreateChallengeRequest) (*models.Challenge, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
		{"location", req.Location},
		{"detailedAddress", req.DetailedAddress},
		{"category", req.Category},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}
	if req.Image != nil {
		name := req.ImageName
		if name == "" {
			name = "image"
		}
		part, err := mw.CreateFormFile("image", name)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := io.Copy(part, req.Image); err != nil {
			return nil, fmt.Errorf("failed to write image part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodPost, "/challenge/create", token, mw.FormDataContentType(), &buf)
	c.observe("create_challenge", start, err)
	if err != nil {
		return nil, err
	}

	var out models.Challenge
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &out, nil
}

// Ping checks that the backend answers at all
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) call(ctx context.Context, op, method, path, token string, in, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, token, in, out)
	c.observe(op, start, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, token, "application/json", body)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	if c.hook != nil {
		c.hook(op, time.Since(start), err)
	}
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path, token, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	return respBody, nil
}

// errorMessage extracts a readable message from an error body. The backend
// sends either {"message": "..."} or {"message": ["...", "..."]}.
func errorMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	var single string
	if json.Unmarshal(payload.Message, &single) == nil && single != "" {
		return single
	}
	var many []string
	if json.Unmarshal(payload.Message, &many) == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return payload.Error
}
