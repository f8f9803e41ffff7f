package pokemons

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the catalog routes on the given Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/pokemons", h.List)
	e.POST("/pokemons/create", h.Create)
	e.PUT("/pokemons/update/:id", h.Update)
	e.DELETE("/pokemons/delete/:id", h.Delete)
}
