package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmartov/miniblog/internal/model"
	"github.com/dmartov/miniblog/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a password
	// mismatch so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

type Service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
}

func NewService(store store.Store, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// Register hashes the password, persists the user, and issues a token for it.
// Returns store.ErrDuplicateUsername when the username is taken.
func (s *Service) Register(ctx context.Context, username, password string, maintainer bool) (model.User, model.Token, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, model.Token{}, err
	}

	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		IsMaintainer: maintainer,
		CreatedAt:    time.Now(),
	}
	id, err := s.store.CreateUser(ctx, &user)
	if err != nil {
		return model.User{}, model.Token{}, err
	}
	user.ID = id

	token, err := s.IssueToken(username)
	if err != nil {
		return model.User{}, model.Token{}, err
	}
	return user, token, nil
}

// Authenticate verifies a username/password pair against the stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	user, err := s.store.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs an HS256 JWT carrying the username as subject and a fixed
// expiry. Tokens are self-contained; nothing is written to the store.
func (s *Service) IssueToken(username string) (model.Token, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return model.Token{}, err
	}
	return model.Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// VerifyToken parses and validates a bearer token, then resolves its subject
// back to a stored user. A subject that no longer exists is treated the same
// as a malformed token.
func (s *Service) VerifyToken(ctx context.Context, bearer string) (model.User, error) {
	parsed, err := jwt.ParseWithClaims(bearer, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.User{}, ErrTokenExpired
		}
		return model.User{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return model.User{}, ErrInvalidToken
	}

	user, err := s.store.GetUserByName(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidToken
		}
		return model.User{}, err
	}
	return user, nil
}
