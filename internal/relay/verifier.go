package relay

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means the handshake carried no token at all.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential means the token failed signature, expiry, or
	// format checks.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUnknownUser means the token was valid but its subject no longer
	// exists in the user directory (revoked after issuance).
	ErrUnknownUser = errors.New("unknown user")
)

// TokenValidator checks a bearer credential and returns the user id it
// was issued for. Implemented by the user service.
type TokenValidator interface {
	ValidateToken(tokenString string) (int, error)
}

// UserDirectory resolves current display attributes for a user id.
// Implemented by the user service; the lookup is what guarantees a
// session starts with fresh username/color instead of token-payload
// values.
type UserDirectory interface {
	LookupUser(ctx context.Context, id int) (username, color string, err error)
}

// Verifier authenticates connection handshakes. All failures are fatal
// to the connection attempt; there is no partial identity.
type Verifier struct {
	tokens    TokenValidator
	directory UserDirectory
}

func NewVerifier(tokens TokenValidator, directory UserDirectory) *Verifier {
	return &Verifier{tokens: tokens, directory: directory}
}

func (v *Verifier) Verify(ctx context.Context, credential string) (User, error) {
	if credential == "" {
		return User{}, ErrMissingCredential
	}

	id, err := v.tokens.ValidateToken(credential)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	username, color, err := v.directory.LookupUser(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("%w: id %d: %v", ErrUnknownUser, id, err)
	}

	return User{UserID: id, Username: username, Color: color}, nil
}
