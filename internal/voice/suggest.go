package voice

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	phoneticThreshold = 0.70
	fuzzyThreshold    = 0.85
)

// suggester finds the registered speaker name closest to a misspelled one.
// Names sharing a Double Metaphone code are accepted at a lower Jaro-Winkler
// score than names that only look alike.
type suggester struct {
	names []string
	codes [][2]string
}

func newSuggester(names []string) *suggester {
	s := &suggester{names: names, codes: make([][2]string, len(names))}
	for i, n := range names {
		p, a := matchr.DoubleMetaphone(strings.ToLower(n))
		s.codes[i] = [2]string{p, a}
	}
	return s
}

// closest returns the best candidate for input, or "" when nothing is close
// enough.
func (s *suggester) closest(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" || s == nil {
		return ""
	}
	ip, ia := matchr.DoubleMetaphone(input)

	best, bestScore := "", 0.0
	for i, name := range s.names {
		score := matchr.JaroWinkler(input, strings.ToLower(name), false)
		threshold := fuzzyThreshold
		if codesOverlap(ip, ia, s.codes[i][0], s.codes[i][1]) {
			threshold = phoneticThreshold
		}
		if score >= threshold && score > bestScore {
			best, bestScore = name, score
		}
	}
	return best
}

func codesOverlap(p1, a1, p2, a2 string) bool {
	for _, x := range [2]string{p1, a1} {
		if x == "" {
			continue
		}
		if x == p2 || x == a2 {
			return true
		}
	}
	return false
}
