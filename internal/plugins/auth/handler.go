package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
)

// Handler handles HTTP requests for authentication (login, register,
// checkAuthenticated, logout). Handlers are thin: they bind the request,
// call the service, and write the response. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Login processes a login attempt (GET /auth/login?email=&password=|otp=).
// 200 with the user and access token on sign-in, 206 with no body when an
// OTP was issued, 401 otherwise.
func (h *Handler) Login(c echo.Context) error {
	cred := Credential{
		Email:    c.FormValue("email"),
		Password: optionalParam(c, "password"),
		Otp:      optionalParam(c, "otp"),
	}

	result, err := h.service.Login(c.Request().Context(), cred)
	if err != nil {
		return apperror.NewInternal(err)
	}

	switch result.State {
	case LoginSignedIn:
		return h.writeSession(c, result.Session)
	case LoginChallengeIssued:
		return c.NoContent(http.StatusPartialContent)
	default:
		return apperror.NewUnauthorizedCause(result.Reason)
	}
}

// Register creates a USER account (POST /auth/register). Any persistence
// failure, including a duplicate email, answers 401.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	input := RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	}

	if _, err := h.service.Register(c.Request().Context(), input); err != nil {
		slog.Info("registration failed",
			slog.String("email", normalizeEmail(req.Email)),
			slog.Any("error", err),
		)
		return apperror.NewUnauthorized()
	}
	return c.NoContent(http.StatusCreated)
}

// CheckAuthenticated rotates the session of the identity established by
// the refresh cookie (GET /auth/checkAuthenticated).
func (h *Handler) CheckAuthenticated(c echo.Context) error {
	p := GetPrincipal(c)
	if p == nil {
		return apperror.NewUnauthorized()
	}

	session, err := h.service.Refresh(c.Request().Context(), p)
	if err != nil {
		if IsAuthFailure(err) {
			return apperror.NewUnauthorizedCause(err)
		}
		return apperror.NewInternal(err)
	}
	return h.writeSession(c, session)
}

// Logout revokes every session of the current identity (GET /auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	p := GetPrincipal(c)
	if p == nil {
		return apperror.NewUnauthorized()
	}

	if err := h.service.Logout(c.Request().Context(), p); err != nil {
		if IsAuthFailure(err) {
			return apperror.NewUnauthorizedCause(err)
		}
		return apperror.NewInternal(err)
	}

	clearPrincipal(c)
	clearRefreshCookie(c)
	return c.NoContent(http.StatusAccepted)
}

// writeSession sets the refresh cookie and writes the login body.
func (h *Handler) writeSession(c echo.Context, s *Session) error {
	setRefreshCookie(c, s)
	return c.JSON(http.StatusOK, LoginResponse{
		User:  s.User,
		Token: s.AccessToken,
	})
}

// optionalParam returns the query or form value of name, or nil when the
// parameter is absent. A present but empty parameter yields a pointer to "".
func optionalParam(c echo.Context, name string) *string {
	if values, ok := c.QueryParams()[name]; ok && len(values) > 0 {
		v := values[0]
		return &v
	}
	if c.Request().Method == http.MethodGet {
		return nil
	}
	form, err := c.FormParams()
	if err != nil {
		return nil
	}
	if values, ok := form[name]; ok && len(values) > 0 {
		v := values[0]
		return &v
	}
	return nil
}

// --- Cookie helpers ---

// getRefreshToken reads the refresh token from the cookie.
func getRefreshToken(c echo.Context) string {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setRefreshCookie sets the refresh cookie for the remaining lifetime of
// the token. Secure and Domain are left unset.
func setRefreshCookie(c echo.Context, s *Session) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    s.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.RefreshMaxAge.Seconds()),
	})
}

// clearRefreshCookie removes the refresh cookie by setting MaxAge to -1.
func clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
