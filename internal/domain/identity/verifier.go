package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/medichat/medichat/internal/platform/auth"
)

// ErrInvalidCredentials is returned when the submitted credentials do not
// check out. Handlers map it to 401 without detail.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier checks submitted credentials before a session is issued.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string, role auth.Role) error
}

// AllowAll accepts any credentials. The development and test verifier.
type AllowAll struct{}

func (AllowAll) Verify(context.Context, string, string, auth.Role) error { return nil }

// PasswordHashSource looks up the stored bcrypt hash for an email. The
// patient service implements it over patient profiles.
type PasswordHashSource interface {
	PasswordHashByEmail(ctx context.Context, email string) (string, error)
}

// BcryptVerifier is the production verifier. Patients authenticate with the
// password generated when a doctor created their profile; the verifier
// compares it against the stored hash. Doctor credentials have no server-side
// store yet and are rejected outside development mode.
type BcryptVerifier struct {
	hashes PasswordHashSource
}

func NewBcryptVerifier(hashes PasswordHashSource) *BcryptVerifier {
	return &BcryptVerifier{hashes: hashes}
}

func (v *BcryptVerifier) Verify(ctx context.Context, email, password string, role auth.Role) error {
	if role != auth.RolePatient {
		return fmt.Errorf("%w: no credential store for role %s", ErrInvalidCredentials, role)
	}
	hash, err := v.hashes.PasswordHashByEmail(ctx, email)
	if err != nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
