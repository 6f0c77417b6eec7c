package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmartov/miniblog/internal/store"
	"github.com/dmartov/miniblog/internal/store/sqlite"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, []byte("test-secret"), ttl)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t, time.Hour)

	user, token, err := svc.Register(context.Background(), "alice", "hunter2", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected username: %s", user.Username)
	}
	if user.PasswordHash == "hunter2" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token: %+v", token)
	}

	got, err := svc.Authenticate(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService(t, time.Hour)

	if _, _, err := svc.Register(context.Background(), "alice", "pw1", false); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, err := svc.Register(context.Background(), "alice", "pw2", false)
	if !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	svc := newTestService(t, time.Hour)

	if _, _, err := svc.Register(context.Background(), "alice", "hunter2", false); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Wrong password and unknown user must return the same generic error.
	_, errWrongPass := svc.Authenticate(context.Background(), "alice", "nope")
	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", errWrongPass)
	}
	_, errNoUser := svc.Authenticate(context.Background(), "nobody", "hunter2")
	if !errors.Is(errNoUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", errNoUser)
	}
	if errWrongPass.Error() != errNoUser.Error() {
		t.Fatalf("credential errors must be indistinguishable")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, time.Hour)

	user, token, err := svc.Register(context.Background(), "alice", "hunter2", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.VerifyToken(context.Background(), token.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestTokenExpired(t *testing.T) {
	svc := newTestService(t, -1*time.Minute)

	_, token, err := svc.Register(context.Background(), "alice", "hunter2", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = svc.VerifyToken(context.Background(), token.AccessToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenTampered(t *testing.T) {
	svc := newTestService(t, time.Hour)

	_, token, err := svc.Register(context.Background(), "alice", "hunter2", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Flip the signature segment.
	parts := strings.Split(token.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three-part JWT, got %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	_, err = svc.VerifyToken(context.Background(), tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := svc.VerifyToken(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage input, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	svc := newTestService(t, time.Hour)

	_, token, err := svc.Register(context.Background(), "alice", "hunter2", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	other := NewService(nil, []byte("different-secret"), time.Hour)
	if _, err := other.VerifyToken(context.Background(), token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken under a different secret, got %v", err)
	}
}

func TestTokenForDeletedUser(t *testing.T) {
	svc := newTestService(t, time.Hour)

	// A syntactically valid token whose subject was never registered.
	token, err := svc.IssueToken("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyToken(context.Background(), token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown subject, got %v", err)
	}
}
