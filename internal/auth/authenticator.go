package auth

import (
	"context"

	"github.com/arvhn/tally/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password,
// passkeys, OAuth, etc.) without changing the service layer code.
type Authenticator interface {
	// Register creates a new account with the given email, display name,
	// member handle, and credential. The member handle becomes the
	// account's canonical member identifier and never changes afterwards.
	Register(ctx context.Context, email, displayName, memberHandle, credential string) (*models.Account, error)

	// Authenticate verifies the credentials and returns the account if
	// successful.
	Authenticate(ctx context.Context, email, credential string) (*models.Account, error)

	// ValidateCredential checks if the credential meets the
	// implementation's requirements.
	ValidateCredential(credential string) error
}
