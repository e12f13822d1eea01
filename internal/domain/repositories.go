package domain

import "context"

// SessionRepository stores sessions. Update must run fn with exclusive
// access to the session and persist the result only when fn returns nil.
type SessionRepository interface {
	Create(ctx context.Context, session Session) (Session, error)
	Get(ctx context.Context, id SessionID) (Session, error)
	Update(ctx context.Context, id SessionID, fn func(*Session) error) (Session, error)
	Delete(ctx context.Context, id SessionID) (bool, error)
}
