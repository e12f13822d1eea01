package domain

import (
	"context"
	"errors"
	"testing"
)

type stubSessionRepository struct {
	createFn func(context.Context, Session) (Session, error)
	getFn    func(context.Context, SessionID) (Session, error)
	updateFn func(context.Context, SessionID, func(*Session) error) (Session, error)
	deleteFn func(context.Context, SessionID) (bool, error)
}

func (s stubSessionRepository) Create(ctx context.Context, session Session) (Session, error) {
	if s.createFn == nil {
		return session, nil
	}
	return s.createFn(ctx, session)
}

func (s stubSessionRepository) Get(ctx context.Context, id SessionID) (Session, error) {
	if s.getFn == nil {
		return Session{}, ErrSessionNotFound
	}
	return s.getFn(ctx, id)
}

func (s stubSessionRepository) Update(ctx context.Context, id SessionID, fn func(*Session) error) (Session, error) {
	if s.updateFn == nil {
		return Session{}, ErrSessionNotFound
	}
	return s.updateFn(ctx, id, fn)
}

func (s stubSessionRepository) Delete(ctx context.Context, id SessionID) (bool, error) {
	if s.deleteFn == nil {
		return false, nil
	}
	return s.deleteFn(ctx, id)
}

// singleSession serves one session and applies updates to a copy, the way a
// real repository would.
func singleSession(session *Session) stubSessionRepository {
	return stubSessionRepository{
		getFn: func(_ context.Context, id SessionID) (Session, error) {
			if id != session.ID {
				return Session{}, ErrSessionNotFound
			}
			return *session, nil
		},
		updateFn: func(_ context.Context, id SessionID, fn func(*Session) error) (Session, error) {
			if id != session.ID {
				return Session{}, ErrSessionNotFound
			}
			working := *session
			working.Tree = session.Tree.Clone()
			if err := fn(&working); err != nil {
				return Session{}, err
			}
			*session = working
			return working, nil
		},
	}
}

const testSessionID = SessionID("550e8400-e29b-41d4-a716-446655440000")

func newTestSession(owner string) *Session {
	return &Session{ID: testSessionID, Owner: owner, Tree: NewTree(sequentialIDs())}
}

func TestCreateSessionStartsFromDefault(t *testing.T) {
	var stored Session
	svc := NewPlannerService(stubSessionRepository{
		createFn: func(_ context.Context, session Session) (Session, error) {
			stored = session
			return session, nil
		},
	})

	plan, err := svc.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stored.Owner != "user-1" || stored.ID != plan.SessionID {
		t.Fatalf("unexpected stored session: %+v", stored)
	}
	if len(plan.Subnets) != 1 || plan.Subnets[0].CIDR() != "192.168.0.0/24" {
		t.Fatalf("unexpected subnets: %v", cidrs(plan.Subnets))
	}
}

func TestInitializeRejectsInvalidPrefix(t *testing.T) {
	session := newTestSession("")
	before := session.Tree.Subnets()
	svc := NewPlannerService(singleSession(session))

	for _, prefix := range []string{"abc", "33", "-1", ""} {
		_, err := svc.Initialize(context.Background(), "", testSessionID, InitializeInput{Network: "10.0.0.0", Prefix: prefix})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("prefix %q: expected ErrInvalidInput, got %v", prefix, err)
		}
	}
	if got := session.Tree.Subnets(); len(got) != 1 || got[0] != before[0] {
		t.Fatalf("expected session to be unchanged, got %v", cidrs(got))
	}
}

func TestInitializeRejectsInvalidNetwork(t *testing.T) {
	svc := NewPlannerService(singleSession(newTestSession("")))

	_, err := svc.Initialize(context.Background(), "", testSessionID, InitializeInput{Network: "10.0.0", Prefix: "8"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDivideAndJoinThroughService(t *testing.T) {
	session := newTestSession("user-1")
	svc := NewPlannerService(singleSession(session))
	ctx := context.Background()

	plan, err := svc.Initialize(ctx, "user-1", testSessionID, InitializeInput{Network: "192.168.0.0", Prefix: "24"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	root := plan.Subnets[0]

	plan, err = svc.Divide(ctx, "user-1", testSessionID, root.ID)
	if err != nil {
		t.Fatalf("divide: %v", err)
	}
	if !plan.Outcome.OK() || len(plan.Subnets) != 2 {
		t.Fatalf("unexpected divide plan: %+v", plan)
	}

	plan, err = svc.Join(ctx, "user-1", testSessionID, plan.Subnets[0].ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !plan.Outcome.OK() || len(plan.Subnets) != 1 || !sameNumbers(plan.Subnets[0], root) {
		t.Fatalf("unexpected join plan: %+v", plan)
	}
}

func TestDivideRejectionIsReported(t *testing.T) {
	session := newTestSession("")
	svc := NewPlannerService(singleSession(session))
	ctx := context.Background()

	plan, err := svc.Initialize(ctx, "", testSessionID, InitializeInput{Network: "10.0.0.1", Prefix: "32"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	plan, err = svc.Divide(ctx, "", testSessionID, plan.Subnets[0].ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if plan.Outcome.Status != OutcomeRejected || plan.Outcome.Reason == "" {
		t.Fatalf("expected rejected outcome with reason, got %+v", plan.Outcome)
	}
	if len(plan.Subnets) != 1 {
		t.Fatalf("expected unchanged collection, got %v", cidrs(plan.Subnets))
	}
}

func TestOtherOwnersCannotSeeSession(t *testing.T) {
	svc := NewPlannerService(singleSession(newTestSession("user-1")))
	ctx := context.Background()

	if _, err := svc.ListSubnets(ctx, "user-2", testSessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("list: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Reset(ctx, "user-2", testSessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("reset: expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.DeleteSession(ctx, "user-2", testSessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("delete: expected ErrSessionNotFound, got %v", err)
	}
}

func TestMalformedSessionIDIsInvalidInput(t *testing.T) {
	svc := NewPlannerService(stubSessionRepository{})

	if _, err := svc.ListSubnets(context.Background(), "", "nope"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Divide(context.Background(), "", "nope", "rec-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteSessionReturnsNotFoundWhenRepositoryReportsNoDelete(t *testing.T) {
	session := newTestSession("")
	repo := singleSession(session)
	repo.deleteFn = func(context.Context, SessionID) (bool, error) {
		return false, nil
	}
	svc := NewPlannerService(repo)

	err := svc.DeleteSession(context.Background(), "", testSessionID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLocate(t *testing.T) {
	svc := NewPlannerService(singleSession(newTestSession("")))
	ctx := context.Background()

	rec, err := svc.Locate(ctx, "", testSessionID, "192.168.0.77")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.CIDR() != "192.168.0.0/24" {
		t.Fatalf("unexpected subnet: %s", rec.CIDR())
	}

	if _, err := svc.Locate(ctx, "", testSessionID, "10.9.9.9"); !errors.Is(err, ErrSubnetNotFound) {
		t.Fatalf("expected ErrSubnetNotFound, got %v", err)
	}
	if _, err := svc.Locate(ctx, "", testSessionID, "bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
