package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Flarenzy/subnet-calculator/internal/domain"
)

const testSessionID = domain.SessionID("550e8400-e29b-41d4-a716-446655440000")

func newStoredSession(t *testing.T, repo *SessionRepository) domain.Session {
	t.Helper()

	session, err := repo.Create(context.Background(), domain.Session{ID: testSessionID, Tree: domain.NewTree()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return session
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	repo := NewSessionRepository()
	newStoredSession(t, repo)

	_, err := repo.Create(context.Background(), domain.Session{ID: testSessionID, Tree: domain.NewTree()})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	repo := NewSessionRepository()
	newStoredSession(t, repo)

	session, err := repo.Get(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := session.Tree.Divide(session.Tree.Subnets()[0].ID); err != nil {
		t.Fatalf("divide: %v", err)
	}

	again, err := repo.Get(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(again.Tree.Subnets()) != 1 {
		t.Fatalf("expected stored tree untouched, got %d subnets", len(again.Tree.Subnets()))
	}
}

func TestUpdateDiscardsChangesOnError(t *testing.T) {
	repo := NewSessionRepository()
	newStoredSession(t, repo)

	_, err := repo.Update(context.Background(), testSessionID, func(s *domain.Session) error {
		if _, err := s.Tree.Divide(s.Tree.Subnets()[0].ID); err != nil {
			return err
		}
		return domain.ErrInvalidInput
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	session, err := repo.Get(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(session.Tree.Subnets()) != 1 {
		t.Fatalf("expected partial change to be discarded, got %d subnets", len(session.Tree.Subnets()))
	}
}

func TestUpdateSerializesWriters(t *testing.T) {
	repo := NewSessionRepository()
	newStoredSession(t, repo)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(context.Background(), testSessionID, func(s *domain.Session) error {
				widest := s.Tree.Subnets()[0]
				for _, rec := range s.Tree.Subnets() {
					if rec.Prefix < widest.Prefix {
						widest = rec
					}
				}
				_, err := s.Tree.Divide(widest.ID)
				return err
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	session, err := repo.Get(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := len(session.Tree.Subnets()); got != 17 {
		t.Fatalf("expected 17 subnets after 16 divides, got %d", got)
	}
	if err := session.Tree.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestMissingSession(t *testing.T) {
	repo := NewSessionRepository()

	if _, err := repo.Get(context.Background(), testSessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("get: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := repo.Update(context.Background(), testSessionID, func(*domain.Session) error { return nil }); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("update: expected ErrSessionNotFound, got %v", err)
	}
	deleted, err := repo.Delete(context.Background(), testSessionID)
	if err != nil || deleted {
		t.Fatalf("delete: expected false, nil; got %v, %v", deleted, err)
	}
}
