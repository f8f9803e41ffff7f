package pokemons

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
)

// Handler handles catalog HTTP requests. Access control happens in the
// global gate before these run.
type Handler struct {
	service PokemonService
}

// NewHandler creates a new catalog handler.
func NewHandler(service PokemonService) *Handler {
	return &Handler{service: service}
}

// List handles GET /pokemons.
func (h *Handler) List(c echo.Context) error {
	pokemons, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pokemons)
}

// Create handles POST /pokemons/create.
func (h *Handler) Create(c echo.Context) error {
	var input PokemonInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	p, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Update handles PUT /pokemons/update/:id.
func (h *Handler) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid pokemon ID")
	}

	var input PokemonInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	p, err := h.service.Update(c.Request().Context(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /pokemons/delete/:id.
func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid pokemon ID")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
