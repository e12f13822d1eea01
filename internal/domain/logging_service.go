package domain

import (
	"context"
	"log/slog"
)

type loggingPlannerService struct {
	logger *slog.Logger
	next   PlannerService
}

func NewLoggingPlannerService(logger *slog.Logger, next PlannerService) PlannerService {
	if logger == nil || next == nil {
		return next
	}

	return &loggingPlannerService{
		logger: logger,
		next:   next,
	}
}

func (s *loggingPlannerService) CreateSession(ctx context.Context, owner string) (Plan, error) {
	plan, err := s.next.CreateSession(ctx, owner)
	if err != nil {
		s.logger.ErrorContext(ctx, "create session failed", "owner", owner, "err", err.Error())
		return Plan{}, err
	}

	s.logger.InfoContext(ctx, "session created", "session_id", string(plan.SessionID), "owner", owner)
	return plan, nil
}

func (s *loggingPlannerService) DeleteSession(ctx context.Context, owner string, id SessionID) error {
	err := s.next.DeleteSession(ctx, owner, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "delete session failed", "session_id", string(id), "err", err.Error())
		return err
	}

	s.logger.InfoContext(ctx, "session deleted", "session_id", string(id))
	return nil
}

func (s *loggingPlannerService) ListSubnets(ctx context.Context, owner string, id SessionID) (Plan, error) {
	plan, err := s.next.ListSubnets(ctx, owner, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "list subnets failed", "session_id", string(id), "err", err.Error())
	}
	return plan, err
}

func (s *loggingPlannerService) Initialize(ctx context.Context, owner string, id SessionID, input InitializeInput) (Plan, error) {
	plan, err := s.next.Initialize(ctx, owner, id, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "initialize failed", "session_id", string(id), "network", input.Network, "prefix", input.Prefix, "err", err.Error())
		return Plan{}, err
	}

	s.logger.InfoContext(ctx, "session initialized", "session_id", string(id), "network", input.Network, "prefix", input.Prefix)
	return plan, nil
}

func (s *loggingPlannerService) Reset(ctx context.Context, owner string, id SessionID) (Plan, error) {
	plan, err := s.next.Reset(ctx, owner, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "reset failed", "session_id", string(id), "err", err.Error())
		return Plan{}, err
	}

	s.logger.InfoContext(ctx, "session reset", "session_id", string(id))
	return plan, nil
}

func (s *loggingPlannerService) Divide(ctx context.Context, owner string, id SessionID, subnet RecordID) (Plan, error) {
	plan, err := s.next.Divide(ctx, owner, id, subnet)
	s.logMutation(ctx, "divide", id, subnet, plan, err)
	return plan, err
}

func (s *loggingPlannerService) Join(ctx context.Context, owner string, id SessionID, subnet RecordID) (Plan, error) {
	plan, err := s.next.Join(ctx, owner, id, subnet)
	s.logMutation(ctx, "join", id, subnet, plan, err)
	return plan, err
}

func (s *loggingPlannerService) Locate(ctx context.Context, owner string, id SessionID, ip string) (SubnetRecord, error) {
	rec, err := s.next.Locate(ctx, owner, id, ip)
	if err != nil {
		s.logger.DebugContext(ctx, "locate failed", "session_id", string(id), "ip", ip, "err", err.Error())
	}
	return rec, err
}

func (s *loggingPlannerService) logMutation(ctx context.Context, op string, id SessionID, subnet RecordID, plan Plan, err error) {
	switch {
	case err != nil:
		s.logger.ErrorContext(ctx, op+" failed", "session_id", string(id), "subnet_id", string(subnet), "err", err.Error())
	case !plan.Outcome.OK():
		s.logger.DebugContext(ctx, op+" rejected", "session_id", string(id), "subnet_id", string(subnet), "reason", plan.Outcome.Reason)
	default:
		s.logger.InfoContext(ctx, op+" applied", "session_id", string(id), "subnet_id", string(subnet), "subnets", len(plan.Subnets))
	}
}
