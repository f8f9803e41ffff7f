package pokemons

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
	"github.com/tedygabrielmoisa/authserver/internal/sanitize"
)

// PokemonService handles business logic for the catalog.
type PokemonService interface {
	List(ctx context.Context) ([]Pokemon, error)
	Create(ctx context.Context, input PokemonInput) (*Pokemon, error)
	Update(ctx context.Context, id int, input PokemonInput) (*Pokemon, error)
	Delete(ctx context.Context, id int) error
}

// pokemonService implements PokemonService.
type pokemonService struct {
	repo PokemonRepository
}

// NewPokemonService creates a new catalog service.
func NewPokemonService(repo PokemonRepository) PokemonService {
	return &pokemonService{repo: repo}
}

// List returns the whole catalog.
func (s *pokemonService) List(ctx context.Context) ([]Pokemon, error) {
	pokemons, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return pokemons, nil
}

// Create validates and stores a new Pokemon.
func (s *pokemonService) Create(ctx context.Context, input PokemonInput) (*Pokemon, error) {
	p, err := fromInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperror.NewInternal(err)
	}

	slog.Info("pokemon created", slog.Int("id", p.ID), slog.String("name", p.Name))
	return p, nil
}

// Update replaces every attribute of an existing Pokemon. A missing id is
// a NotFound AppError.
func (s *pokemonService) Update(ctx context.Context, id int, input PokemonInput) (*Pokemon, error) {
	p, err := fromInput(input)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(err)
	}

	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperror.NewInternal(err)
	}

	slog.Info("pokemon updated", slog.Int("id", p.ID))
	return p, nil
}

// Delete removes a Pokemon. Deleting a missing id succeeds.
func (s *pokemonService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.NewInternal(err)
	}
	slog.Info("pokemon deleted", slog.Int("id", id))
	return nil
}

// fromInput sanitizes and validates input into a Pokemon.
func fromInput(in PokemonInput) (*Pokemon, error) {
	p := &Pokemon{
		Name:           sanitize.Text(in.Name),
		Type1:          sanitizeOptional(in.Type1),
		Type2:          sanitizeOptional(in.Type2),
		Abilities:      sanitizeOptional(in.Abilities),
		HP:             in.HP,
		Attack:         in.Attack,
		Defense:        in.Defense,
		SpecialAttack:  in.SpecialAttack,
		SpecialDefense: in.SpecialDefense,
		Speed:          in.Speed,
	}
	if in.Image != nil && strings.TrimSpace(*in.Image) != "" {
		img := sanitize.ImageURL(*in.Image)
		if img == "" {
			return nil, apperror.NewValidation("image must be an http or https URL")
		}
		p.Image = &img
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitize.Text(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validate(p *Pokemon) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required")
	}
	if len(p.Name) > maxNameLen {
		return apperror.NewValidation(fmt.Sprintf("name must be at most %d characters", maxNameLen))
	}
	for field, v := range map[string]*string{"type1": p.Type1, "type2": p.Type2} {
		if v != nil && len(*v) > maxTypeLen {
			return apperror.NewValidation(fmt.Sprintf("%s must be at most %d characters", field, maxTypeLen))
		}
	}
	if p.Abilities != nil && len(*p.Abilities) > maxAbilitiesLen {
		return apperror.NewValidation(fmt.Sprintf("abilities must be at most %d characters", maxAbilitiesLen))
	}
	if p.Image != nil && len(*p.Image) > maxImageLen {
		return apperror.NewValidation(fmt.Sprintf("image must be at most %d characters", maxImageLen))
	}
	for field, v := range map[string]*int{
		"hp": p.HP, "attack": p.Attack, "defense": p.Defense,
		"specialAttack": p.SpecialAttack, "specialDefense": p.SpecialDefense, "speed": p.Speed,
	} {
		if v != nil && *v < 0 {
			return apperror.NewValidation(field + " must not be negative")
		}
	}
	return nil
}
