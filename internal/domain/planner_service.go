package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/Flarenzy/subnet-calculator/internal/ipv4"
	"github.com/google/uuid"
)

type plannerService struct {
	sessions SessionRepository
	treeOpts []TreeOption
	now      func() time.Time
}

func NewPlannerService(sessions SessionRepository, treeOpts ...TreeOption) PlannerService {
	return &plannerService{
		sessions: sessions,
		treeOpts: treeOpts,
		now:      time.Now,
	}
}

func (s *plannerService) CreateSession(ctx context.Context, owner string) (Plan, error) {
	now := s.now().UTC()
	session, err := s.sessions.Create(ctx, Session{
		ID:        SessionID(uuid.NewString()),
		Owner:     owner,
		Tree:      NewTree(s.treeOpts...),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Plan{}, err
	}
	return planOf(session, applied()), nil
}

func (s *plannerService) DeleteSession(ctx context.Context, owner string, id SessionID) error {
	if _, err := s.load(ctx, owner, id); err != nil {
		return err
	}
	deleted, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}

func (s *plannerService) ListSubnets(ctx context.Context, owner string, id SessionID) (Plan, error) {
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return Plan{}, err
	}
	return planOf(session, applied()), nil
}

func (s *plannerService) Initialize(ctx context.Context, owner string, id SessionID, input InitializeInput) (Plan, error) {
	network, err := ipv4.ParseAddr(input.Network)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	prefix, err := ipv4.ParsePrefix(input.Prefix)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return s.mutate(ctx, owner, id, func(t *Tree) (Outcome, error) {
		if _, err := t.Initialize(network, prefix); err != nil {
			return Outcome{}, err
		}
		return applied(), nil
	})
}

func (s *plannerService) Reset(ctx context.Context, owner string, id SessionID) (Plan, error) {
	return s.mutate(ctx, owner, id, func(t *Tree) (Outcome, error) {
		t.Reset()
		return applied(), nil
	})
}

func (s *plannerService) Divide(ctx context.Context, owner string, id SessionID, subnet RecordID) (Plan, error) {
	return s.mutate(ctx, owner, id, func(t *Tree) (Outcome, error) {
		return t.Divide(subnet)
	})
}

func (s *plannerService) Join(ctx context.Context, owner string, id SessionID, subnet RecordID) (Plan, error) {
	return s.mutate(ctx, owner, id, func(t *Tree) (Outcome, error) {
		return t.Join(subnet)
	})
}

func (s *plannerService) Locate(ctx context.Context, owner string, id SessionID, ip string) (SubnetRecord, error) {
	addr, err := ipv4.ParseAddr(ip)
	if err != nil {
		return SubnetRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return SubnetRecord{}, err
	}
	rec, ok := session.Tree.Locate(addr)
	if !ok {
		return SubnetRecord{}, fmt.Errorf("%w: no subnet holds %s", ErrSubnetNotFound, addr)
	}
	return rec, nil
}

func (s *plannerService) load(ctx context.Context, owner string, id SessionID) (Session, error) {
	if err := validateSessionID(id); err != nil {
		return Session{}, err
	}
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if session.Owner != owner {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *plannerService) mutate(ctx context.Context, owner string, id SessionID, op func(*Tree) (Outcome, error)) (Plan, error) {
	if err := validateSessionID(id); err != nil {
		return Plan{}, err
	}

	var outcome Outcome
	session, err := s.sessions.Update(ctx, id, func(session *Session) error {
		if session.Owner != owner {
			return ErrSessionNotFound
		}
		o, err := op(session.Tree)
		if err != nil {
			return err
		}
		outcome = o
		if o.OK() {
			session.UpdatedAt = s.now().UTC()
		}
		return nil
	})
	if err != nil {
		return Plan{}, err
	}
	return planOf(session, outcome), nil
}

func validateSessionID(id SessionID) error {
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("%w: invalid session id", ErrInvalidInput)
	}
	return nil
}

func planOf(session Session, outcome Outcome) Plan {
	return Plan{
		SessionID: session.ID,
		Outcome:   outcome,
		Subnets:   session.Tree.Subnets(),
	}
}
