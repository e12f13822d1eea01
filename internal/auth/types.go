package auth

import "errors"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type Config struct {
	Enabled  bool
	Issuer   string
	JWKSURL  string
	Audience string
}

type Principal struct {
	Issuer   string
	Subject  string
	Audience any
	Claims   map[string]any
}
