package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrHandleExists       = errors.New("member handle already taken")
	ErrHandleMerged       = errors.New("member handle already merged into another account")
)

// AccountStorage defines the interface for account persistence operations.
// This allows the authenticator to be independent of the storage
// implementation.
type AccountStorage interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByMemberID(ctx context.Context, canonicalMemberID string) (*models.Account, error)

	// CanonicalOf reports whether the identifier carries an outgoing alias
	// edge, meaning it was already merged into some account.
	CanonicalOf(ctx context.Context, aliasID string) (string, bool, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage AccountStorage
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage AccountStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new account with a hashed password. The member handle
// is normalized and becomes the canonical member identifier.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, memberHandle, credential string) (*models.Account, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	handle, err := identity.Normalize(memberHandle)
	if err != nil {
		return nil, err
	}

	existing, err := a.storage.GetAccountByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}
	existing, err = a.storage.GetAccountByMemberID(ctx, handle)
	if err == nil && existing != nil {
		return nil, ErrHandleExists
	}

	// A handle that was merged into an account resolves to that account's
	// canonical identifier. An account registered under it could never be
	// referenced: every mention would resolve elsewhere.
	if _, merged, err := a.storage.CanonicalOf(ctx, handle); err != nil {
		return nil, fmt.Errorf("failed to check alias graph: %w", err)
	} else if merged {
		return nil, ErrHandleMerged
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Email:             email,
		DisplayName:       displayName,
		PasswordHash:      string(hashedPassword),
		CanonicalMemberID: handle,
	}
	if err := a.storage.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// Authenticate verifies the email and password, returning the account if
// valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.Account, error) {
	account, err := a.storage.GetAccountByEmail(ctx, email)
	if err != nil || account == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}
