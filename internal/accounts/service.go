// Package accounts provides email/password credential storage and
// verification. Secrets are bcrypt-hashed before they reach the store and
// are never logged or returned in plaintext.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tienda/api/internal/rbac"
	"tienda/api/internal/store"
	"tienda/api/internal/util"
)

// ErrInvalidCredentials is returned for unknown emails and bad passwords
// alike, so a caller cannot probe which emails are registered.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError carries a per-field message map for the caller to
// highlight specific inputs.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// AccountStore defines the storage interface for accounts
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (store.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (store.Account, error)
	CreateAccount(ctx context.Context, account store.Account) error
}

type Service struct {
	store AccountStore
}

func NewService(store AccountStore) *Service {
	return &Service{store: store}
}

// RegisterRequest contains registration parameters
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Role        rbac.Role
}

// Register creates a new account with a hashed secret.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.Account, error) {
	fields := map[string]string{}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		fields["email"] = "email is required"
	}
	if req.Password == "" {
		fields["password"] = "password is required"
	} else if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		fields["displayName"] = "display name is required"
	}
	if len(fields) > 0 {
		return store.Account{}, &ValidationError{Fields: fields}
	}

	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		return store.Account{}, store.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.Account{}, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if !rbac.Valid(role) {
		role = rbac.RoleClient
	}

	account := store.Account{
		ID:           util.NewID("acc"),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
		Role:         string(role),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return store.Account{}, store.ErrDuplicateEmail
		}
		return store.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// Login verifies a credential pair and returns the matching account.
func (s *Service) Login(ctx context.Context, email, password string) (store.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return store.Account{}, ErrInvalidCredentials
	}

	account, err := s.store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return store.Account{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return store.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// GetByID resolves an account by id, for bearer-token subjects.
func (s *Service) GetByID(ctx context.Context, accountID string) (store.Account, error) {
	return s.store.GetAccountByID(ctx, accountID)
}
