package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Flarenzy/subnet-calculator/internal/auth"
	"github.com/Flarenzy/subnet-calculator/internal/domain"
	httpSwagger "github.com/swaggo/http-swagger"
)

// HealthChecker reports whether the session store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type API struct {
	Logger        *slog.Logger
	Health        HealthChecker
	Service       domain.PlannerService
	Authenticator auth.Authenticator
}

func NewAPI(logger *slog.Logger, health HealthChecker, service domain.PlannerService, authenticator auth.Authenticator) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		Logger:        logger,
		Health:        health,
		Service:       service,
		Authenticator: authenticator,
	}
}

func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("POST /api/v1/sessions", a.handleCreateSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", a.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/subnets", a.handleListSubnets)
	mux.HandleFunc("POST /api/v1/sessions/{id}/initialize", a.handleInitialize)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reset", a.handleReset)
	mux.HandleFunc("POST /api/v1/sessions/{id}/subnets/{subnetID}/divide", a.handleDivide)
	mux.HandleFunc("POST /api/v1/sessions/{id}/subnets/{subnetID}/join", a.handleJoin)
	mux.HandleFunc("GET /api/v1/sessions/{id}/locate", a.handleLocate)

	return a.authMiddleware(mux)
}
