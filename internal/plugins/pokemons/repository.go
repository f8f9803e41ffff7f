package pokemons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
)

// PokemonRepository defines the data access contract for the catalog.
type PokemonRepository interface {
	List(ctx context.Context) ([]Pokemon, error)
	FindByID(ctx context.Context, id int) (*Pokemon, error)
	Create(ctx context.Context, p *Pokemon) error
	Update(ctx context.Context, p *Pokemon) error

	// Delete removes the row if present; deleting a missing id is not an error.
	Delete(ctx context.Context, id int) error
}

// pokemonRepository implements PokemonRepository with MariaDB.
type pokemonRepository struct {
	db *sql.DB
}

// NewPokemonRepository creates a new catalog repository.
func NewPokemonRepository(db *sql.DB) PokemonRepository {
	return &pokemonRepository{db: db}
}

const pokemonColumns = `id, name, type1, type2, abilities, hp, attack, defense,
	                    special_attack, special_defense, speed, image`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPokemon(s scanner, p *Pokemon) error {
	return s.Scan(&p.ID, &p.Name, &p.Type1, &p.Type2, &p.Abilities,
		&p.HP, &p.Attack, &p.Defense, &p.SpecialAttack, &p.SpecialDefense,
		&p.Speed, &p.Image)
}

// List returns every Pokemon ordered by id.
func (r *pokemonRepository) List(ctx context.Context) ([]Pokemon, error) {
	query := `SELECT ` + pokemonColumns + ` FROM pokemons ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing pokemons: %w", err)
	}
	defer rows.Close()

	pokemons := []Pokemon{}
	for rows.Next() {
		var p Pokemon
		if err := scanPokemon(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning pokemon: %w", err)
		}
		pokemons = append(pokemons, p)
	}
	return pokemons, rows.Err()
}

// FindByID retrieves a Pokemon by id. Returns a NotFound AppError if absent.
func (r *pokemonRepository) FindByID(ctx context.Context, id int) (*Pokemon, error) {
	query := `SELECT ` + pokemonColumns + ` FROM pokemons WHERE id = ?`

	p := &Pokemon{}
	err := scanPokemon(r.db.QueryRowContext(ctx, query, id), p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("pokemon not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying pokemon %d: %w", id, err)
	}
	return p, nil
}

// Create inserts a Pokemon and fills in its generated id.
func (r *pokemonRepository) Create(ctx context.Context, p *Pokemon) error {
	query := `INSERT INTO pokemons (name, type1, type2, abilities, hp, attack, defense,
	                                special_attack, special_defense, speed, image)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Type1, p.Type2, p.Abilities,
		p.HP, p.Attack, p.Defense, p.SpecialAttack, p.SpecialDefense,
		p.Speed, p.Image,
	)
	if err != nil {
		return fmt.Errorf("inserting pokemon: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading pokemon id: %w", err)
	}
	p.ID = int(id)
	return nil
}

// Update overwrites every attribute of an existing Pokemon.
func (r *pokemonRepository) Update(ctx context.Context, p *Pokemon) error {
	query := `UPDATE pokemons
	          SET name = ?, type1 = ?, type2 = ?, abilities = ?, hp = ?, attack = ?,
	              defense = ?, special_attack = ?, special_defense = ?, speed = ?, image = ?
	          WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query,
		p.Name, p.Type1, p.Type2, p.Abilities,
		p.HP, p.Attack, p.Defense, p.SpecialAttack, p.SpecialDefense,
		p.Speed, p.Image, p.ID,
	); err != nil {
		return fmt.Errorf("updating pokemon %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes a Pokemon by id.
func (r *pokemonRepository) Delete(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pokemons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting pokemon %d: %w", id, err)
	}
	return nil
}
