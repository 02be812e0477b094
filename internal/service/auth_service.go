package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/ids"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/session"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates login, session resolution and sign-out.
type AuthService struct {
	users          repository.UserRepository
	sessions       session.Store
	tokens         *auth.TokenManager
	hasher         *auth.PasswordHasher
	allowRoleLogin bool
	logger         *zap.Logger
	now            func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	Sessions       session.Store
	Tokens         *auth.TokenManager
	Hasher         *auth.PasswordHasher
	AllowRoleLogin bool
	Logger         *zap.Logger
	Clock          func() time.Time
}

// LoginInput carries either credentials or, when enabled, a bare role.
type LoginInput struct {
	Role     domain.Role
	Email    string
	Password string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:          deps.UserRepo,
		sessions:       deps.Sessions,
		tokens:         deps.Tokens,
		hasher:         deps.Hasher,
		allowRoleLogin: deps.AllowRoleLogin,
		logger:         deps.Logger,
		now:            deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.hasher == nil {
		s.hasher = auth.NewPasswordHasher(0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Login authenticates the caller and opens a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.resolveLogin(ctx, input)
	if err != nil {
		return nil, err
	}

	sessionID := ids.SessionID()
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role, sessionID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Save(ctx, session.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) resolveLogin(ctx context.Context, input LoginInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	switch {
	case email != "":
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewUnauthorized("invalid credentials")
			}
			return nil, apperrors.MapError(err)
		}
		if !s.hasher.Matches(user.PasswordHash, input.Password) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return user, nil
	case input.Role != "":
		if !s.allowRoleLogin {
			return nil, apperrors.NewForbidden("role login is disabled")
		}
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
		}
		user, err := s.users.FirstByRole(ctx, input.Role)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewUnauthorized("no user found for this role")
			}
			return nil, apperrors.MapError(err)
		}
		return user, nil
	default:
		return nil, apperrors.NewValidationError("email and password or role required", nil)
	}
}

// Authenticate resolves a bearer token into the current user. The role is
// always taken from the directory, never from the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	sess, err := s.sessions.Lookup(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, apperrors.NewUnauthorized("session expired or revoked")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if sess.UserID != claims.UserID() {
		return nil, apperrors.NewUnauthorized("session does not match token")
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.MapError(err)
	}
	return &auth.Principal{User: user, SessionID: sess.ID, Token: token}, nil
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return apperrors.NewUnauthorized("no active session")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
