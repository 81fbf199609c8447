package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medichat/medichat/internal/platform/auth"
)

// ProfileDirectory resolves a patient login to their patient record, so the
// session identity carries the record's ID and the ownership guards line up.
type ProfileDirectory interface {
	ProfileIdentity(ctx context.Context, email string) (id, name string, err error)
}

// Sessions issues and resolves login sessions.
type Sessions struct {
	users    UserRepository
	profiles ProfileDirectory
	codec    *auth.TokenCodec
	verify   CredentialVerifier
	logger   zerolog.Logger
}

func NewSessions(users UserRepository, codec *auth.TokenCodec, verify CredentialVerifier, logger zerolog.Logger) *Sessions {
	return &Sessions{users: users, codec: codec, verify: verify, logger: logger}
}

// WithProfileDirectory routes patient logins through the patient record
// lookup.
func (s *Sessions) WithProfileDirectory(profiles ProfileDirectory) *Sessions {
	s.profiles = profiles
	return s
}

// Login verifies credentials, resolves or registers the user, and issues a
// session token. An unknown (email, role) pair registers on the spot: with a
// submitted name when the login doubles as signup, otherwise under the
// email's local part.
func (s *Sessions) Login(ctx context.Context, email, name, password string, role auth.Role) (auth.Principal, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return auth.Principal{}, "", fmt.Errorf("email is required")
	}
	if !auth.ValidRole(role) {
		return auth.Principal{}, "", fmt.Errorf("unknown role %q", role)
	}

	if err := s.verify.Verify(ctx, email, password, role); err != nil {
		s.logger.Warn().Str("email", email).Str("role", string(role)).Msg("login rejected")
		return auth.Principal{}, "", err
	}

	// A patient with a record on file logs in as that record: the session ID
	// is the profile ID, which is what the ownership checks compare against.
	if role == auth.RolePatient && s.profiles != nil {
		if id, profileName, err := s.profiles.ProfileIdentity(ctx, email); err == nil {
			p := auth.Principal{ID: id, Email: email, DisplayName: profileName, Role: auth.RolePatient}
			token, err := s.codec.Issue(p)
			if err != nil {
				return auth.Principal{}, "", err
			}
			return p, token, nil
		}
	}

	u, err := s.users.GetByEmailAndRole(ctx, email, role)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if name == "" {
			name = email
			if i := strings.Index(email, "@"); i > 0 {
				name = email[:i]
			}
		}
		u = &User{Email: email, Name: name, Role: role}
		if err := s.users.Create(ctx, u); err != nil {
			return auth.Principal{}, "", fmt.Errorf("register user: %w", err)
		}
		s.logger.Info().Str("email", email).Str("role", string(role)).Msg("registered new user")
	case err != nil:
		return auth.Principal{}, "", err
	}

	p := u.Principal()
	token, err := s.codec.Issue(p)
	if err != nil {
		return auth.Principal{}, "", err
	}
	return p, token, nil
}

// Current resolves a token to its identity. Absent, expired, or malformed
// tokens mean logged-out, never an error.
func (s *Sessions) Current(token string) (auth.Principal, bool) {
	return s.codec.Parse(token)
}

// Seed registers the demo doctor and patient accounts if they are not
// already present.
func (s *Sessions) Seed(ctx context.Context) error {
	for _, u := range []User{
		{Email: "doctor@medichat.com", Name: "Dr. Ada Lovelace", Role: auth.RoleDoctor},
		{Email: "patient@medichat.com", Name: "Charles Babbage", Role: auth.RolePatient},
	} {
		if _, err := s.users.GetByEmailAndRole(ctx, u.Email, u.Role); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		user := u
		if err := s.users.Create(ctx, &user); err != nil {
			return err
		}
	}
	return nil
}
