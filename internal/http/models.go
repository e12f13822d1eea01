package http

import (
	"github.com/Flarenzy/subnet-calculator/internal/domain"
)

// SubnetResponse is one row of the subnet table as shown to clients.
type SubnetResponse struct {
	ID       string `json:"id" example:"6f1c2d4e-8a8b-4c55-9f39-3f0f5d0b7e21"`
	ParentID string `json:"parent_id,omitempty" example:"0b3e6a3c-7f4c-4f0e-8a1e-5a0d2f9c1b11"`
	Subnet   string `json:"subnet" example:"192.168.0.0/25"`
	Netmask  string `json:"netmask" example:"255.255.255.128"`
	Range    string `json:"range" example:"192.168.0.0 - 192.168.0.127"`
	Usable   string `json:"usable" example:"192.168.0.1 - 192.168.0.126"`
	Hosts    int64  `json:"hosts" example:"126"`
}

// OutcomeResponse reports whether a mutation was applied.
type OutcomeResponse struct {
	Status string `json:"status" example:"applied" enums:"applied,rejected"`
	Reason string `json:"reason,omitempty" example:"subnet /32 cannot be divided"`
}

// PlanResponse is returned by every session operation.
type PlanResponse struct {
	SessionID string           `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Outcome   OutcomeResponse  `json:"outcome"`
	Subnets   []SubnetResponse `json:"subnets"`
}

// InitializeRequest is the payload accepted when starting a new partition.
// prefix accepts either a JSON string or number.
type InitializeRequest struct {
	Network string      `json:"network" example:"10.0.0.0"`
	Prefix  prefixValue `json:"prefix" swaggertype:"string" example:"16"`
}

// ErrorResponse is a simple envelope for error messages.
type ErrorResponse struct {
	Error string `json:"error" example:"subnet not found"`
}

func subnetToResponse(rec domain.SubnetRecord) SubnetResponse {
	return SubnetResponse{
		ID:       string(rec.ID),
		ParentID: string(rec.ParentID),
		Subnet:   rec.CIDR(),
		Netmask:  rec.Netmask.String(),
		Range:    rec.RangeString(),
		Usable:   rec.UsableString(),
		Hosts:    rec.Hosts,
	}
}

func planToResponse(plan domain.Plan) PlanResponse {
	subnets := make([]SubnetResponse, 0, len(plan.Subnets))
	for _, rec := range plan.Subnets {
		subnets = append(subnets, subnetToResponse(rec))
	}
	return PlanResponse{
		SessionID: string(plan.SessionID),
		Outcome: OutcomeResponse{
			Status: plan.Outcome.Status.String(),
			Reason: plan.Outcome.Reason,
		},
		Subnets: subnets,
	}
}

func (r InitializeRequest) toInput() domain.InitializeInput {
	return domain.InitializeInput{
		Network: r.Network,
		Prefix:  string(r.Prefix),
	}
}
