// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, metrics, Echo
// instance) and wires the auth and pokemons plugins onto it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
	"github.com/tedygabrielmoisa/authserver/internal/config"
	"github.com/tedygabrielmoisa/authserver/internal/middleware"
	"github.com/tedygabrielmoisa/authserver/internal/observability"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis backs the per-user session lock. May be nil when the lock is
	// disabled.
	Redis *redis.Client

	// Metrics receives login, token check, and request counters.
	Metrics *observability.Metrics

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App and configures the Echo server with the outer
// middleware and error handling. Auth middleware is added by RegisterRoutes
// once the auth service exists. A nil metrics gets a private registry.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, metrics *observability.Metrics) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Metrics: metrics,
		Echo:    e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.RequestMetrics(a.Metrics))
	a.Echo.Use(middleware.SecurityHeaders())

	var origins []string
	if a.Config.AllowedOrigin != "" {
		origins = []string{a.Config.AllowedOrigin}
	}
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowCredentials: true,
	}))
}

// errorHandler maps AppErrors and Echo HTTP errors to a JSON body of the
// form {"error": message}. Anything else is a logged 500.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message

		if appErr.Internal != nil {
			level := slog.LevelError
			if code < http.StatusInternalServerError {
				level = slog.LevelDebug
			}
			slog.Log(c.Request().Context(), level, "request failed",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		message = http.StatusText(code)
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			message = msg
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": message})
}

// Ping checks MariaDB and, when configured, Redis.
func (a *App) Ping(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging mariadb: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
	}
	return nil
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting auth server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
