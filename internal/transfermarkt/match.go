package transfermarkt

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Matcher pairs a player name from results.csv with a market value listing.
type Matcher struct {
	Fuzzy   bool
	Minimum float64 // Jaro-Winkler similarity required for a fuzzy match
}

// Match returns the first listing whose name contains, or is contained in,
// player (case-insensitive). Failing that, and if enabled, the most similar
// listing at or above Minimum.
func (m Matcher) Match(player string, listings []Listing) (Listing, bool) {
	p := strings.ToLower(strings.TrimSpace(player))
	if p == "" {
		return Listing{}, false
	}
	for _, l := range listings {
		n := strings.ToLower(l.Name)
		if strings.Contains(p, n) || strings.Contains(n, p) {
			return l, true
		}
	}
	if !m.Fuzzy {
		return Listing{}, false
	}

	best, bestScore := -1, 0.0
	for i, l := range listings {
		s := matchr.JaroWinkler(p, strings.ToLower(l.Name), false)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < m.Minimum {
		return Listing{}, false
	}
	return listings[best], true
}
