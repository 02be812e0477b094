package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload. Role alone is accepted only when role login is enabled.
type LoginRequest struct {
	Role     domain.Role `json:"role"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
}

// UserResponse mirrors the user object the UI keeps in its session.
type UserResponse struct {
	UserID     string      `json:"userId"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Department string      `json:"department"`
	Role       domain.Role `json:"role"`
}

// LoginResponse returns the user and the bearer token for later calls.
type LoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	User      UserResponse `json:"user"`
	SessionID string       `json:"sessionId"`
}

// FromUser converts a domain user, dropping credentials.
func FromUser(u *domain.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	return UserResponse{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
		Role:       u.Role,
	}
}
