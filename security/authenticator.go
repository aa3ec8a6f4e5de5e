package security

import (
	"context"

	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/security/token"
)

// Subject is the authenticated principal a token is issued for.
type Subject struct {
	// ID becomes the token's sub claim.
	ID string
	// Attributes carries application-defined principal data (role, email).
	Attributes map[string]string
}

// Credentials is a username/password pair presented at login.
type Credentials struct {
	Username string
	Password string
}

// Authenticator is the narrow capability interface concrete systems supply.
// fastcore does not ship user management; it only consumes this contract.
type Authenticator interface {
	// Authenticate resolves credentials to a subject, or returns an error
	// (typically errors.InvalidCredentials) on mismatch.
	Authenticate(ctx context.Context, creds Credentials) (Subject, error)
	// LoadSubject resolves a subject by its identifier.
	LoadSubject(ctx context.Context, id string) (Subject, error)
}

// Login authenticates credentials and issues an access/refresh token pair
// for the resolved subject. A credential mismatch surfaces as
// invalid-credentials regardless of the authenticator's internal error.
func Login(ctx context.Context, auth Authenticator, tokens *token.Service, creds Credentials) (token.Pair, error) {
	subject, err := auth.Authenticate(ctx, creds)
	if err != nil {
		if errors.IsCode(err, errors.CodeInvalidCredentials) {
			return token.Pair{}, err
		}
		return token.Pair{}, errors.InvalidCredentials()
	}
	return tokens.CreatePair(ctx, subject.ID)
}
