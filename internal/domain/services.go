package domain

import "context"

// PlannerService drives per-session subnet trees. owner is the subject of the
// authenticated caller, or empty when authentication is off.
type PlannerService interface {
	CreateSession(ctx context.Context, owner string) (Plan, error)
	DeleteSession(ctx context.Context, owner string, id SessionID) error
	ListSubnets(ctx context.Context, owner string, id SessionID) (Plan, error)
	Initialize(ctx context.Context, owner string, id SessionID, input InitializeInput) (Plan, error)
	Reset(ctx context.Context, owner string, id SessionID) (Plan, error)
	Divide(ctx context.Context, owner string, id SessionID, subnet RecordID) (Plan, error)
	Join(ctx context.Context, owner string, id SessionID, subnet RecordID) (Plan, error)
	Locate(ctx context.Context, owner string, id SessionID, ip string) (SubnetRecord, error)
}
