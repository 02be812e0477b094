package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/session"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T, allowRoleLogin bool) (*AuthService, *repository.MemoryUserRepository) {
	t.Helper()
	hasher := auth.NewPasswordHasher(4)
	hash, err := hasher.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	withPassword := *charlie
	withPassword.PasswordHash = hash
	users := repository.NewMemoryUserRepository(*alice, *bob, withPassword, *diana)

	return NewAuthService(AuthDependencies{
		UserRepo:       users,
		Sessions:       session.NewMemoryStore(),
		Tokens:         auth.NewTokenManager("test-secret", time.Hour),
		Hasher:         hasher,
		AllowRoleLogin: allowRoleLogin,
	}), users
}

func TestRoleLoginReturnsFirstUserWithRole(t *testing.T) {
	svc, _ := newAuthService(t, true)
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginInput{Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != charlie.ID || result.Token == "" || result.SessionID == "" {
		t.Fatalf("unexpected login result %+v", result)
	}

	principal, err := svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.User.ID != charlie.ID || !principal.User.IsAdmin() || principal.SessionID != result.SessionID {
		t.Fatalf("unexpected principal %+v", principal)
	}

	if _, err := svc.Login(ctx, LoginInput{Role: "superuser"}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRoleLoginDisabled(t *testing.T) {
	svc, _ := newAuthService(t, false)
	if _, err := svc.Login(context.Background(), LoginInput{Role: domain.RoleUser}); !apperrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestPasswordLogin(t *testing.T) {
	svc, _ := newAuthService(t, false)
	ctx := context.Background()

	if _, err := svc.Login(ctx, LoginInput{Email: "charlie@corp.com", Password: "nope"}); !apperrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "alice@corp.com", Password: ""}); !apperrors.IsUnauthorized(err) {
		t.Fatalf("users without a password must not log in, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@corp.com", Password: "x"}); !apperrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	result, err := svc.Login(ctx, LoginInput{Email: "Charlie@corp.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != charlie.ID {
		t.Fatalf("logged in as %s", result.User.ID)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newAuthService(t, true)
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginInput{Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, result.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, result.Token); !apperrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestAuthenticateUsesDirectoryRole(t *testing.T) {
	svc, users := newAuthService(t, true)
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginInput{Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	demoted := *charlie
	demoted.Role = domain.RoleUser
	if err := users.Upsert(ctx, &demoted); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	principal, err := svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.User.IsAdmin() {
		t.Fatal("role must come from the directory, not the token")
	}
	if _, err := svc.Authenticate(ctx, "garbage"); !apperrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
