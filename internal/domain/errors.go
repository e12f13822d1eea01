package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrSubnetNotFound  = fmt.Errorf("subnet %w", ErrNotFound)
)
