package dedupe

import "strings"

// Similarity computes trigram similarity between two normalized strings,
// matching the definition used by Postgres pg_trgm: the Jaccard ratio of
// the two trigram sets, with each string padded by two leading and one
// trailing space. Identical strings score 1.0, disjoint strings 0.0.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// trigrams extracts the padded trigram set from a string. Words are padded
// separately, mirroring pg_trgm's word-boundary handling.
func trigrams(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(s) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			set[string(runes[i:i+3])] = true
		}
	}
	return set
}
