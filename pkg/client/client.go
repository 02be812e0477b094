// Package client is a typed HTTP client for the helpdesk API.
//
// A Client holds the bearer token returned by Login and sends it on every
// later call. Mutations return the authoritative ticket; callers replace
// their local copy with it. Failed calls are never retried.
package client

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
)

const defaultTimeout = 15 * time.Second

// Client talks to the helpdesk API.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login signs in with email and password and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return c.login(ctx, map[string]string{"email": email, "password": password})
}

// LoginAsRole signs in as the first user holding role. The server only
// accepts this when role login is enabled.
func (c *Client) LoginAsRole(ctx context.Context, role string) (*LoginResult, error) {
	return c.login(ctx, map[string]string{"role": role})
}

func (c *Client) login(ctx context.Context, body map[string]string) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.setToken(out.Token)
	return &out, nil
}

// Logout revokes the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

// Session returns the user behind the current token.
func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTickets returns the visible tickets, newest first.
func (c *Client) ListTickets(ctx context.Context, opts ListOptions) ([]Ticket, error) {
	query := url.Values{}
	if opts.UserID != "" {
		query.Set("userId", opts.UserID)
	}
	if opts.Query != "" {
		query.Set("q", opts.Query)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	var out []Ticket
	if err := c.do(ctx, http.MethodGet, "/api/tickets", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTicket fetches one ticket.
func (c *Client) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	return c.ticketCall(ctx, http.MethodGet, ticketPath(id, ""), nil)
}

// CreateTicket opens a ticket for the logged in user.
func (c *Client) CreateTicket(ctx context.Context, in NewTicket) (*Ticket, error) {
	return c.ticketCall(ctx, http.MethodPost, "/api/tickets", in)
}

// AssignTicket assigns the ticket to an admin. adminName may be empty.
func (c *Client) AssignTicket(ctx context.Context, id, adminID, adminName string) (*Ticket, error) {
	return c.ticketCall(ctx, http.MethodPatch, ticketPath(id, "assign"), map[string]string{
		"adminId":   adminID,
		"adminName": adminName,
	})
}

// SetTicketStatus changes the ticket status.
func (c *Client) SetTicketStatus(ctx context.Context, id, status string) (*Ticket, error) {
	return c.ticketCall(ctx, http.MethodPatch, ticketPath(id, "status"), map[string]string{"status": status})
}

// AppendReply posts a public reply or, for admins, an internal note.
func (c *Client) AppendReply(ctx context.Context, id, message string, internal bool) (*Ticket, error) {
	return c.ticketCall(ctx, http.MethodPost, ticketPath(id, "reply"), map[string]any{
		"message":    message,
		"isInternal": internal,
	})
}

func (c *Client) ticketCall(ctx context.Context, method, path string, body any) (*Ticket, error) {
	var out Ticket
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func ticketPath(id, action string) string {
	p := "/api/tickets/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, payload []byte) error {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}
