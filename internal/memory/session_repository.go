// Package memory keeps sessions in process memory. It is the default store
// when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Flarenzy/subnet-calculator/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	session domain.Session
}

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*entry
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: map[domain.SessionID]*entry{}}
}

func (r *SessionRepository) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	if session.Tree == nil {
		return domain.Session{}, fmt.Errorf("%w: session without tree", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return domain.Session{}, fmt.Errorf("%w: session %s exists", domain.ErrConflict, session.ID)
	}
	r.sessions[session.ID] = &entry{session: cloneSession(session)}
	return cloneSession(session), nil
}

func (r *SessionRepository) Get(_ context.Context, id domain.SessionID) (domain.Session, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSession(e.session), nil
}

// Update hands fn a copy of the session; the stored session is swapped only
// when fn succeeds, so a failed operation leaves no partial change behind.
func (r *SessionRepository) Update(ctx context.Context, id domain.SessionID, fn func(*domain.Session) error) (domain.Session, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	working := cloneSession(e.session)
	if err := fn(&working); err != nil {
		return domain.Session{}, err
	}
	e.session = working
	return cloneSession(working), nil
}

func (r *SessionRepository) Delete(_ context.Context, id domain.SessionID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false, nil
	}
	delete(r.sessions, id)
	return true, nil
}

// Ping satisfies the readiness check; memory is always available.
func (r *SessionRepository) Ping(context.Context) error {
	return nil
}

func (r *SessionRepository) lookup(id domain.SessionID) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

func cloneSession(s domain.Session) domain.Session {
	if s.Tree != nil {
		s.Tree = s.Tree.Clone()
	}
	return s
}
