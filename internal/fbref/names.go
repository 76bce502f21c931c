package fbref

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	reDigits = regexp.MustCompile(`^\d+$`)
	reSpaces = regexp.MustCompile(`\s+`)
)

// FirstName returns the first token of a player's name, or "Unknown" when
// the name is empty, numeric, or has no letters.
func FirstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" || reDigits.MatchString(full) || !strings.ContainsFunc(full, unicode.IsLetter) {
		return "Unknown"
	}
	return strings.Fields(full)[0]
}

// ParseMinutes reads "1,234" style minute totals; anything that is not all
// digits after removing commas is 0.
func ParseMinutes(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if !reDigits.MatchString(s) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func cleanPlayer(s string) string {
	return reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

// isHeaderRow reports whether a player cell is empty or a repeated rank header.
func isHeaderRow(name string) bool {
	return name == "" || reDigits.MatchString(name)
}
