// Package session keeps track of issued login sessions so tokens can be revoked.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrSessionNotFound is returned when a session does not exist, expired or was revoked.
var ErrSessionNotFound = errors.New("session not found or expired")

const keyPrefix = "session:"

// Session is the server side record of a login.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s Session) error
	Lookup(ctx context.Context, id string) (Session, error)
	Revoke(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
