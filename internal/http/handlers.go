package http

import (
	"errors"
	"net/http"

	"github.com/Flarenzy/subnet-calculator/internal/auth"
	"github.com/Flarenzy/subnet-calculator/internal/domain"
)

// @Summary Health check
// @Tags health
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// @Summary Readiness check
// @Tags health
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "store unavailable"
// @Router /readyz [get]
func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.Health != nil {
		if err := a.Health.Ping(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "store ping failed", "err", err.Error())
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// @Summary Create session
// @Description Starts a private partition tree holding 192.168.0.0/24.
// @Tags sessions
// @Produce json
// @Success 201 {object} PlanResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions [post]
func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plan, err := a.Service.CreateSession(ctx, auth.SubjectFromContext(ctx))
	if err != nil {
		a.writeError(w, r, "creating session", err)
		return
	}
	a.respond(w, r, http.StatusCreated, planToResponse(plan))
}

// @Summary Delete session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.Service.DeleteSession(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r)); err != nil {
		a.writeError(w, r, "deleting session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List subnets
// @Description Leaf subnets of the session, ordered by network address.
// @Tags subnets
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/subnets [get]
func (a *API) handleListSubnets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plan, err := a.Service.ListSubnets(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r))
	if err != nil {
		a.writeError(w, r, "listing subnets", err)
		return
	}
	a.respond(w, r, http.StatusOK, planToResponse(plan))
}

// @Summary Initialize session
// @Description Replaces the whole tree with a single subnet.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param network body InitializeRequest true "Network and prefix"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/initialize [post]
func (a *API) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decode[InitializeRequest](r)
	defer r.Body.Close()
	if err != nil {
		a.Logger.DebugContext(ctx, "unmarshaling initialize request", "err", err.Error())
		a.respond(w, r, http.StatusBadRequest, ErrorResponse{Error: "bad request"})
		return
	}
	if err := validateInitializeRequest(req); err != nil {
		a.writeError(w, r, "validating initialize request", err)
		return
	}

	plan, err := a.Service.Initialize(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r), req.toInput())
	if err != nil {
		a.writeError(w, r, "initializing session", err)
		return
	}
	a.respond(w, r, http.StatusOK, planToResponse(plan))
}

// @Summary Reset session
// @Description Restores the default 192.168.0.0/24 partition.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/reset [post]
func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plan, err := a.Service.Reset(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r))
	if err != nil {
		a.writeError(w, r, "resetting session", err)
		return
	}
	a.respond(w, r, http.StatusOK, planToResponse(plan))
}

// @Summary Divide subnet
// @Description Splits a leaf subnet into its two halves.
// @Tags subnets
// @Produce json
// @Param id path string true "Session ID"
// @Param subnetID path string true "Subnet ID"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} PlanResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/subnets/{subnetID}/divide [post]
func (a *API) handleDivide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subnetID, err := subnetIDFrom(r)
	if err != nil {
		a.writeError(w, r, "reading subnet id", err)
		return
	}

	plan, err := a.Service.Divide(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r), subnetID)
	if err != nil {
		a.writeError(w, r, "dividing subnet", err)
		return
	}
	a.respondPlan(w, r, plan)
}

// @Summary Join subnet
// @Description Merges a leaf subnet with its sibling back into their parent.
// @Tags subnets
// @Produce json
// @Param id path string true "Session ID"
// @Param subnetID path string true "Subnet ID"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} PlanResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/subnets/{subnetID}/join [post]
func (a *API) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subnetID, err := subnetIDFrom(r)
	if err != nil {
		a.writeError(w, r, "reading subnet id", err)
		return
	}

	plan, err := a.Service.Join(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r), subnetID)
	if err != nil {
		a.writeError(w, r, "joining subnet", err)
		return
	}
	a.respondPlan(w, r, plan)
}

// @Summary Locate address
// @Description Returns the leaf subnet containing the given IPv4 address.
// @Tags subnets
// @Produce json
// @Param id path string true "Session ID"
// @Param ip query string true "IPv4 address"
// @Success 200 {object} SubnetResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/locate [get]
func (a *API) handleLocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := a.Service.Locate(ctx, auth.SubjectFromContext(ctx), sessionIDFrom(r), r.URL.Query().Get("ip"))
	if err != nil {
		a.writeError(w, r, "locating address", err)
		return
	}
	a.respond(w, r, http.StatusOK, subnetToResponse(rec))
}

// respondPlan answers 200 for an applied change and 409 for a rejected one.
// Both carry the current subnet list.
func (a *API) respondPlan(w http.ResponseWriter, r *http.Request, plan domain.Plan) {
	status := http.StatusOK
	if !plan.Outcome.OK() {
		status = http.StatusConflict
	}
	a.respond(w, r, status, planToResponse(plan))
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	if err := encode(w, r, status, body); err != nil {
		a.Logger.ErrorContext(r.Context(), "responding to client", "err", err.Error())
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status, resp := errorStatus(err)
	if status >= http.StatusInternalServerError {
		a.Logger.ErrorContext(r.Context(), action, "err", err.Error())
	} else {
		a.Logger.DebugContext(r.Context(), action, "err", err.Error(), "status", status)
	}
	a.respond(w, r, status, resp)
}

func errorStatus(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "session not found"}
	case errors.Is(err, domain.ErrSubnetNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "subnet not found"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: "conflict"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}
}
