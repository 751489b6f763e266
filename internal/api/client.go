// Package api is the typed HTTP client for the taskdeck backend.
//
// Every call is single-shot: no retries, no backoff, no deadline beyond the
// http.Client timeout set at construction. Failures come back in three
// shapes: transport errors wrap the underlying net error, non-2xx responses
// become *Error carrying the server's detail message, and a 401 on an
// authenticated call invalidates the session and wraps ErrUnauthorized.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for authenticated calls.
// Invalidate is called when the backend rejects the token, giving the
// session layer the chance to drop its persisted credentials.
type TokenSource interface {
	Token() string
	Invalidate()
}

// Client talks to one taskdeck backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New returns a Client for the backend at baseURL. tokens may be nil when
// only unauthenticated calls (Login, Signup, Health) will be made.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// BaseURL returns the backend address the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// ── Health ───────────────────────────────────────────────────────────────────

// Health probes the root endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.send(ctx, http.MethodGet, "/", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Auth ─────────────────────────────────────────────────────────────────────

// Login exchanges credentials for a bearer token. A 401 here means the
// credentials were wrong; it does not touch the token source.
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	var out Credentials
	body := authRequest{Email: email, Password: password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates an account and returns its first bearer token.
func (c *Client) Signup(ctx context.Context, email, password string) (*Credentials, error) {
	var out Credentials
	body := authRequest{Email: email, Password: password}
	if err := c.send(ctx, http.MethodPost, "/auth/signup", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Tasks ────────────────────────────────────────────────────────────────────

// Tasks lists every task owned by the authenticated user.
func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.send(ctx, http.MethodGet, "/tasks", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskByID fetches a single task.
func (c *Client) TaskByID(ctx context.Context, id int64) (*Task, error) {
	var out Task
	if err := c.send(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask stores a new task and returns the server's representation,
// id included.
func (c *Client) CreateTask(ctx context.Context, draft TaskDraft) (*Task, error) {
	var out Task
	if err := c.send(ctx, http.MethodPost, "/tasks", draft, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies patch to a task and returns the updated representation.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*Task, error) {
	var out Task
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), patch, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleTask flips a task's completion state and returns the updated
// representation.
func (c *Client) ToggleTask(ctx context.Context, id int64) (*Task, error) {
	var out Task
	if err := c.send(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/toggle", id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask removes a task and returns the server's confirmation message.
func (c *Client) DeleteTask(ctx context.Context, id int64) (string, error) {
	var out messageResponse
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, &out, true); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ── Chat ─────────────────────────────────────────────────────────────────────

// Chat sends one message to the assistant. conversationID 0 starts a new
// thread; the reply carries the id to use from then on.
func (c *Client) Chat(ctx context.Context, userID, message string, conversationID int64) (*ChatReply, error) {
	var out ChatReply
	body := chatRequest{Message: message, ConversationID: conversationID}
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/%s/chat", userID), body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations lists the user's stored chat threads.
func (c *Client) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	var out []Conversation
	if err := c.send(ctx, http.MethodGet, fmt.Sprintf("/api/%s/conversations", userID), nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ConversationMessages fetches the stored transcript of one thread.
func (c *Client) ConversationMessages(ctx context.Context, userID string, id int64) ([]ConversationMessage, error) {
	var out []ConversationMessage
	path := fmt.Sprintf("/api/%s/conversations/%d/messages", userID, id)
	if err := c.send(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Transport ────────────────────────────────────────────────────────────────

// send performs one round trip. withToken controls whether the bearer token
// is attached and whether a 401 invalidates the session; auth endpoints run
// without it so a failed login never clears stored credentials.
func (c *Client) send(ctx context.Context, method, path string, body, out any, withToken bool) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	authed := false
	if withToken && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
			authed = true
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		c.tokens.Invalidate()
		return fmt.Errorf("%s: %w", errorMessage(resp.StatusCode, data), ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
