package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
	"github.com/tedygabrielmoisa/authserver/internal/plugins/auth"
	"github.com/tedygabrielmoisa/authserver/internal/plugins/pokemons"
	"github.com/tedygabrielmoisa/authserver/internal/plugins/smtp"
)

// RegisterRoutes builds the plugins, installs the auth filters and role
// gate, and registers every route. This is the single place where routes
// are aggregated.
func (a *App) RegisterRoutes() error {
	e := a.Echo

	authService, err := a.newAuthService()
	if err != nil {
		return err
	}

	// Refresh filter first so /auth/checkAuthenticated identifies by cookie.
	e.Use(auth.RefreshTokenAuthenticator(authService))
	e.Use(auth.AccessTokenAuthenticator(authService))
	e.Use(auth.NewGate(auth.DefaultRules).Middleware())

	e.GET("/healthz", a.healthz)

	auth.RegisterRoutes(e, auth.NewHandler(authService))

	pokemonService := pokemons.NewPokemonService(pokemons.NewPokemonRepository(a.DB))
	pokemons.RegisterRoutes(e, pokemons.NewHandler(pokemonService))

	return nil
}

// newAuthService wires the auth plugin's repositories and collaborators.
func (a *App) newAuthService() (auth.AuthService, error) {
	key, err := a.Config.Auth.SigningKey()
	if err != nil {
		return nil, err
	}
	signer, err := auth.NewSigner(key)
	if err != nil {
		return nil, fmt.Errorf("creating token signer: %w", err)
	}

	var locker auth.SessionLocker = auth.NoopLocker{}
	if a.Config.Auth.SessionLock {
		if a.Redis == nil {
			return nil, fmt.Errorf("session lock enabled but no redis client configured")
		}
		locker = auth.NewRedisLocker(a.Redis, a.Config.Auth.SessionLockWait)
	} else {
		slog.Warn("session lock disabled; concurrent logins may leave two valid refresh tokens")
	}

	var sender auth.CodeSender = auth.LogCodeSender{}
	if settings := smtp.SettingsFromConfig(a.Config.SMTP); settings.Enabled() {
		sender = smtp.NewCodeMailer(smtp.NewMailService(settings), a.Config.Auth.OTPTTL)
		slog.Info("otp delivery by email", slog.String("smtp", settings.String()))
	}

	return auth.NewAuthService(auth.Deps{
		Users:   auth.NewUserRepository(a.DB),
		Tokens:  auth.NewTokenRepository(a.DB),
		Otps:    auth.NewOtpRepository(a.DB),
		Hasher:  auth.NewBcryptHasher(a.Config.Auth.BcryptCost),
		Signer:  signer,
		Sender:  sender,
		Locker:  locker,
		Metrics: a.Metrics,
	}, auth.ServiceConfig{
		AccessTokenTTL:  a.Config.Auth.AccessTokenTTL,
		RefreshTokenTTL: a.Config.Auth.RefreshTokenTTL,
		OTPTTL:          a.Config.Auth.OTPTTL,
	}), nil
}

// healthz reports 200 when MariaDB and Redis answer, 503 otherwise.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := a.Ping(ctx); err != nil {
		return apperror.NewUnavailable(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
