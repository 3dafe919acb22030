package auth

import (
	"errors"
	"unicode"

	"github.com/rs/zerolog"
)

type Role string

const (
	RoleManager Role = "manager"
	RoleDriver  Role = "driver"
)

var (
	ErrMissingCredential = errors.New("missing credential header")
	ErrRoleMismatch      = errors.New("role mismatch")
)

// Authorizer validates that a bearer token may act in a given role.
// It is an interface so the token-prefix convention below can be
// replaced by a real credential check without touching the dispatch
// service.
type Authorizer interface {
	// Authorize returns the token unchanged when it may act in the
	// required role, ErrMissingCredential when no token is presented
	// and ErrRoleMismatch otherwise.
	Authorize(token string, role Role) (string, error)

	// Identify classifies a token into a role for operations open to
	// any authenticated caller.
	Identify(token string) (Role, error)
}

// tokenPrefixAuthorizer matches the first character of the token
// against the first letter of the role, case-insensitively: managers'
// tokens start with 'M' and drivers' with 'D'.
//
// The token is never verified against an issuer, so any token starting
// with the right letter passes. This is deliberately preserved legacy
// behavior, not recommended practice.
type tokenPrefixAuthorizer struct {
	logger zerolog.Logger
}

func NewTokenPrefixAuthorizer(logger zerolog.Logger) Authorizer {
	return &tokenPrefixAuthorizer{logger: logger}
}

func (a *tokenPrefixAuthorizer) Authorize(token string, role Role) (string, error) {
	identified, err := a.Identify(token)
	if err != nil {
		return "", err
	}

	if identified != role {
		a.logger.Warn().
			Str("required_role", string(role)).
			Str("token_role", string(identified)).
			Msg("role mismatch")
		return "", ErrRoleMismatch
	}
	return token, nil
}

func (a *tokenPrefixAuthorizer) Identify(token string) (Role, error) {
	if token == "" {
		a.logger.Warn().Msg("no credential presented")
		return "", ErrMissingCredential
	}

	switch unicode.ToLower(rune(token[0])) {
	case 'm':
		return RoleManager, nil
	case 'd':
		return RoleDriver, nil
	default:
		a.logger.Warn().Msg("token matches no known role")
		return "", ErrRoleMismatch
	}
}
