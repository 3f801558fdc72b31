package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Role is the kind of principal a login resolved to.
type Role string

const (
	RolePatient Role = "Patient"
	RoleDoctor  Role = "Doctor"
	RoleAdmin   Role = "Admin"
)

// InvalidCredentials is the only failure message a caller ever sees.
const InvalidCredentials = "Invalid email or password."

// Principal is an account that can log in.
type Principal struct {
	ID           int64
	Email        string
	PasswordHash string
}

// PrincipalSource looks up active principals of one role by email.
// FindByEmail returns nil, nil when no active account has that email.
type PrincipalSource interface {
	Role() Role
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type LoginResult struct {
	Success bool   `json:"success"`
	Role    Role   `json:"role,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

func failedLogin() LoginResult {
	return LoginResult{Success: false, Message: InvalidCredentials}
}

// Authenticator resolves an email to a principal across sources in the order
// given. The first source holding an active account with the email decides
// the outcome; later sources are never consulted for that call.
type Authenticator struct {
	sources []PrincipalSource
	hasher  Hasher
	logger  zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthenticator(hasher Hasher, logger zerolog.Logger, sources ...PrincipalSource) *Authenticator {
	return &Authenticator{sources: sources, hasher: hasher, logger: logger}
}

// ValidateLogin checks credentials. Every credential failure returns the same
// result; only persistence failures come back as an error.
func (a *Authenticator) ValidateLogin(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return failedLogin(), nil
	}

	for _, src := range a.sources {
		p, err := src.FindByEmail(ctx, email)
		if err != nil {
			return LoginResult{}, fmt.Errorf("look up %s by email: %w", src.Role(), err)
		}
		if p == nil {
			continue
		}

		ok, rehash, err := a.hasher.Verify(password, p.PasswordHash)
		if err != nil {
			a.logger.Warn().Err(err).Str("role", string(src.Role())).Int64("user_id", p.ID).
				Msg("stored password hash could not be verified")
			return failedLogin(), nil
		}
		if !ok {
			return failedLogin(), nil
		}

		if rehash {
			a.upgradeHash(ctx, src, p.ID, password)
		}
		return LoginResult{
			Success: true,
			Role:    src.Role(),
			UserID:  p.ID,
			Message: "Login successful.",
		}, nil
	}

	a.burnVerify(password)
	return failedLogin(), nil
}

func (a *Authenticator) upgradeHash(ctx context.Context, src PrincipalSource, id int64, password string) {
	hash, err := a.hasher.Hash(password)
	if err == nil {
		err = src.UpdatePasswordHash(ctx, id, hash)
	}
	if err != nil {
		a.logger.Warn().Err(err).Str("role", string(src.Role())).Int64("user_id", id).
			Msg("password hash upgrade failed")
		return
	}
	a.logger.Info().Str("role", string(src.Role())).Int64("user_id", id).Msg("password hash upgraded")
}

// burnVerify spends one hash verification so an unknown email costs about as
// much as a wrong password.
func (a *Authenticator) burnVerify(password string) {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash("not-a-real-password")
	})
	if a.dummyHash != "" {
		_, _, _ = a.hasher.Verify(password, a.dummyHash)
	}
}
