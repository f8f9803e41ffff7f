package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// The authenticators and the gate are installed globally by the app, so the
// routes here carry no middleware of their own.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/auth")

	// Login accepts either query parameters or a form body.
	g.GET("/login", h.Login)
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)

	// These need an identity established by the authenticators.
	g.GET("/checkAuthenticated", h.CheckAuthenticated)
	g.GET("/logout", h.Logout)
}
