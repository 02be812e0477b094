package client

import (
	"encoding/json"
	"time"
)

// User is a directory entry as returned by the API.
type User struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == "admin" }

// LoginResult is returned by Login.
type LoginResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionInfo describes the session behind the current token.
type SessionInfo struct {
	User      User   `json:"user"`
	SessionID string `json:"sessionId"`
}

// Attachment is a file reference carried by a ticket.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Assignee names the admin working a ticket.
type Assignee struct {
	AdminID string `json:"adminId"`
	Name    string `json:"name"`
}

// Actor identifies who produced a timeline event.
type Actor struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// TimelineEvent is one entry of a ticket history.
type TimelineEvent struct {
	ID      string          `json:"id"`
	At      time.Time       `json:"at"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Actor   Actor           `json:"actor"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// Ticket is the authoritative ticket state returned after every call.
type Ticket struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CreatedBy   User            `json:"createdBy"`
	AssignedTo  *Assignee       `json:"assignedTo"`
	Attachments []Attachment    `json:"attachments"`
	Timeline    []TimelineEvent `json:"timeline"`
}

// NewTicket is the payload for CreateTicket.
type NewTicket struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Priority    string       `json:"priority"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ListOptions narrows ListTickets. Empty fields are not sent.
type ListOptions struct {
	UserID string
	Query  string
	Status string
}
