package eval

import "strings"

// Like matches s against a SQL LIKE pattern where % matches any run of
// characters (including empty) and _ matches exactly one character.
// Matching is case-insensitive.
//
// This is a deliberate two-pointer matcher with single-level backtracking
// to the last % rather than a regex engine: cost stays bounded even for
// adversarial patterns.
func Like(s, pattern string) bool {
	str := []rune(strings.ToLower(s))
	pat := []rune(strings.ToLower(pattern))

	var (
		si, pi int
		starPi = -1 // position of the last % seen in the pattern
		starSi int  // position in str when the last % was seen
	)

	for si < len(str) {
		switch {
		case pi < len(pat) && (pat[pi] == '_' || pat[pi] == str[si]):
			si++
			pi++
		case pi < len(pat) && pat[pi] == '%':
			starPi = pi
			starSi = si
			pi++
		case starPi >= 0:
			// backtrack: let the last % absorb one more character
			starSi++
			si = starSi
			pi = starPi + 1
		default:
			return false
		}
	}

	// trailing % may match the empty run
	for pi < len(pat) && pat[pi] == '%' {
		pi++
	}

	return pi == len(pat)
}
