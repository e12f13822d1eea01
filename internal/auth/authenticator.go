package auth

import "context"

// Authenticator turns a bearer token into the caller's Principal. The
// principal's Subject owns the sessions the caller creates.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}
