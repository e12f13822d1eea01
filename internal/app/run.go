package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Flarenzy/subnet-calculator/internal/auth"
	appdb "github.com/Flarenzy/subnet-calculator/internal/db"
	"github.com/Flarenzy/subnet-calculator/internal/domain"
	apihttp "github.com/Flarenzy/subnet-calculator/internal/http"
	"github.com/Flarenzy/subnet-calculator/internal/memory"
)

type Config struct {
	Port         string
	DSN          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	AuthEnabled  bool
	Issuer   string
	JWKSURL  string
	Audience string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads the environment. An empty DB_CONN keeps sessions in
// memory.
func LoadConfig() (Config, error) {
	cfg := Config{
		DSN:          os.Getenv("DB_CONN"),
		Port:         os.Getenv("PORT"),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Issuer:   os.Getenv("AUTH_ISSUER"),
		JWKSURL:  os.Getenv("AUTH_JWKS_URL"),
		Audience: os.Getenv("AUTH_AUDIENCE"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		LogFormat:    os.Getenv("LOG_FORMAT"),
	}
	if cfg.Port == "" {
		cfg.Port = "4040"
	}

	if raw := os.Getenv("AUTH_ENABLED"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse AUTH_ENABLED: %w", err)
		}
		cfg.AuthEnabled = enabled
	}
	for name, dst := range map[string]*time.Duration{
		"READ_TIMEOUT":  &cfg.ReadTimeout,
		"WRITE_TIMEOUT": &cfg.WriteTimeout,
	} {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = d
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg Config) (*slog.Logger, error) {
	var level slog.Level
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown LOG_FORMAT %q", cfg.LogFormat)
	}
}

func newAuthenticator(ctx context.Context, cfg Config) (auth.Authenticator, error) {
	return auth.NewKeycloakAuthenticator(ctx, auth.Config{
		Enabled:  cfg.AuthEnabled,
		Issuer:   cfg.Issuer,
		JWKSURL:  cfg.JWKSURL,
		Audience: cfg.Audience,
	})
}

type store interface {
	domain.SessionRepository
	apihttp.HealthChecker
}

func newStore(ctx context.Context, cfg Config) (store, func(), error) {
	if cfg.DSN == "" {
		return memory.NewSessionRepository(), func() {}, nil
	}
	pool, err := appdb.NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return poolStore{SessionRepository: appdb.NewSessionRepository(pool), HealthChecker: pool}, pool.Close, nil
}

type poolStore struct {
	*appdb.SessionRepository
	apihttp.HealthChecker
}

func Run(ctx context.Context, cfg Config) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	return Serve(ctx, cfg, listener)
}

// Serve runs the API on listener until ctx is cancelled.
func Serve(ctx context.Context, cfg Config, listener net.Listener) error {
	logger, err := newLogger(os.Stdout, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	authenticator, err := newAuthenticator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	sessions, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	service := domain.NewLoggingPlannerService(logger, domain.NewPlannerService(sessions))
	api := apihttp.NewAPI(logger, sessions, service, authenticator)

	server := &http.Server{
		Handler:      api.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serving api", "addr", listener.Addr().String(), "persistent", cfg.DSN != "", "auth", cfg.AuthEnabled)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
