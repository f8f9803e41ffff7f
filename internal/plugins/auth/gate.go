package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
)

// AccessRule grants the listed roles access to a path pattern. A pattern
// ending in "/**" matches the prefix and everything below it; any other
// pattern matches exactly. Public rules admit unauthenticated requests.
type AccessRule struct {
	Pattern string
	Public  bool
	Roles   []Role
}

// DefaultRules is the route table of the server. Unmatched paths require
// ADMIN.
var DefaultRules = []AccessRule{
	{Pattern: "/auth/**", Public: true},
	{Pattern: "/healthz", Public: true},
	{Pattern: "/pokemons/create", Roles: []Role{RoleAdmin, RoleModerator}},
	{Pattern: "/pokemons", Roles: []Role{RoleAdmin, RoleModerator, RoleUser}},
}

// defaultRule applies when no pattern matches.
var defaultRule = AccessRule{Pattern: "/**", Roles: []Role{RoleAdmin}}

// Gate decides access per request from a static rule table.
type Gate struct {
	rules []AccessRule
}

// NewGate creates a gate over rules. The order of rules is irrelevant.
func NewGate(rules []AccessRule) *Gate {
	return &Gate{rules: append([]AccessRule(nil), rules...)}
}

// Match returns the most specific rule for path: an exact pattern beats a
// prefix pattern, and a longer prefix beats a shorter one.
func (g *Gate) Match(path string) AccessRule {
	best := defaultRule
	bestScore := -1

	for _, r := range g.rules {
		score, ok := matchScore(r.Pattern, path)
		if ok && score > bestScore {
			best, bestScore = r, score
		}
	}
	return best
}

// matchScore reports whether pattern matches path and how specific it is.
func matchScore(pattern, path string) (int, bool) {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return len(prefix) * 2, true
		}
		return 0, false
	}
	if path == pattern {
		// Exact matches outrank any prefix of equal or shorter length.
		return len(pattern)*2 + 1, true
	}
	return 0, false
}

// Allows reports whether p may access path.
func (g *Gate) Allows(path string, p *Principal) bool {
	rule := g.Match(path)
	if rule.Public {
		return true
	}
	if p == nil || !p.Authenticated {
		return false
	}
	return p.HasAny(rule.Roles...)
}

// Middleware returns the Echo middleware enforcing the gate. Denied
// requests receive 401 regardless of whether identity was missing or
// merely insufficient.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Allows(c.Request().URL.Path, GetPrincipal(c)) {
				return apperror.NewUnauthorized()
			}
			return next(c)
		}
	}
}
