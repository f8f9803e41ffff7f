// Package pokemons is the catalog the auth server protects: plain CRUD over
// Pokemon records. Listing requires any role, creation ADMIN or MODERATOR,
// and update/delete ADMIN; the gate in package auth enforces this.
package pokemons

// Column limits enforced before writes.
const (
	maxNameLen      = 50
	maxTypeLen      = 20
	maxAbilitiesLen = 200
	maxImageLen     = 2048
)

// Pokemon is a catalog entry. Every attribute but the name is optional and
// omitted from JSON when unset.
type Pokemon struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Type1          *string `json:"type1,omitempty"`
	Type2          *string `json:"type2,omitempty"`
	Abilities      *string `json:"abilities,omitempty"`
	HP             *int    `json:"hp,omitempty"`
	Attack         *int    `json:"attack,omitempty"`
	Defense        *int    `json:"defense,omitempty"`
	SpecialAttack  *int    `json:"specialAttack,omitempty"`
	SpecialDefense *int    `json:"specialDefense,omitempty"`
	Speed          *int    `json:"speed,omitempty"`
	Image          *string `json:"image,omitempty"`
}

// PokemonInput is the JSON body of create and update requests.
type PokemonInput struct {
	Name           string  `json:"name"`
	Type1          *string `json:"type1"`
	Type2          *string `json:"type2"`
	Abilities      *string `json:"abilities"`
	HP             *int    `json:"hp"`
	Attack         *int    `json:"attack"`
	Defense        *int    `json:"defense"`
	SpecialAttack  *int    `json:"specialAttack"`
	SpecialDefense *int    `json:"specialDefense"`
	Speed          *int    `json:"speed"`
	Image          *string `json:"image"`
}
