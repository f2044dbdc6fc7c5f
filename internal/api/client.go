// Package api is the REST transport client for the task service. Every
// response travels in a {success, data, message} envelope; success=false is
// an application error and never mutates caller state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskdeck/internal/domain"
)

// TransportError wraps network failures and non-2xx responses.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AppError carries the server's message when the envelope reports failure.
type AppError struct {
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return "request failed"
	}
	return e.Message
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Client is the task service HTTP client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Tokens is the access/refresh pair issued at signin or OTP verification.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SignInResult is the payload of auth/signin and auth/verify-otp.
type SignInResult struct {
	Tokens     Tokens         `json:"tokens"`
	User       domain.UserRef `json:"user"`
	UserRole   string         `json:"user_role"`
	IsVerified bool           `json:"is_verified"`
}

// SignUpParams are the fields submitted at registration.
type SignUpParams struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	body := map[string]any{"email": email, "password": password}
	var resp SignInResult
	err := c.do(ctx, http.MethodPost, "auth/signin", body, &resp)
	return resp, err
}

func (c *Client) SignUp(ctx context.Context, p SignUpParams) error {
	return c.do(ctx, http.MethodPost, "auth/signup", p, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (SignInResult, error) {
	body := map[string]any{"email": email, "otp": otp}
	var resp SignInResult
	err := c.do(ctx, http.MethodPost, "auth/verify-otp", body, &resp)
	return resp, err
}

func (c *Client) SendOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "auth/send-otp", map[string]any{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "auth/reset-password", map[string]any{"email": email}, nil)
}

func (c *Client) ConfirmResetPassword(ctx context.Context, newPassword, uid, token string) error {
	endpoint := fmt.Sprintf("auth/confirm-reset-password?uid=%s&token=%s", url.QueryEscape(uid), url.QueryEscape(token))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{"new_password": newPassword}, nil)
}

// Permissions fetches the capability grants for a user, consumed once per
// login to seed the resolver.
func (c *Client) Permissions(ctx context.Context, userID int64) ([]domain.Permission, error) {
	var resp []domain.Permission
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("permissions?user_id=%d", userID), nil, &resp)
	return resp, err
}

// Users returns {id, name} pairs for assignee selectors.
func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var resp []domain.User
	err := c.do(ctx, http.MethodGet, "users", nil, &resp)
	return resp, err
}

// ListTasks returns the authoritative snapshot for the given criteria, in
// server order. Empty filter fields are not sent at all.
func (c *Client) ListTasks(ctx context.Context, f domain.Filter) ([]domain.Task, error) {
	endpoint := "tasks"
	if q := f.Values().Encode(); q != "" {
		endpoint += "?" + q
	}
	var resp []domain.Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, form domain.TaskForm) (domain.Task, error) {
	var resp domain.Task
	err := c.do(ctx, http.MethodPost, "tasks", TaskFields(form), &resp)
	return resp, err
}

// UpdateTask sends the given field subset; the caller decides what to send.
func (c *Client) UpdateTask(ctx context.Context, id int64, fields map[string]any) (domain.Task, error) {
	var resp domain.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("tasks/%d", id), fields, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d", id), nil, nil)
}

// TaskFields flattens a form into the full wire shape. The mutation gateway
// narrows this down for status-only callers.
func TaskFields(f domain.TaskForm) map[string]any {
	body := map[string]any{
		"title":       f.Title,
		"description": f.Description,
		"status":      f.Status,
		"priority":    f.Priority,
	}
	if f.DueDate != "" {
		body["due_date"] = f.DueDate
	}
	if f.AssignedToID != 0 {
		body["assigned_to_id"] = f.AssignedToID
	}
	return body
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	op := method + " " + endpoint
	reqURL := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode >= 300 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if !env.Success {
		return &AppError{Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
