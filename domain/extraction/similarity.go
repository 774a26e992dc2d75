package extraction

import "strings"

// SimilarityThreshold is the minimum token-set similarity at which two
// same-type entity names are considered the same entity. Below it, near
// matches stay separate nodes; merging across types never happens at any
// similarity.
const SimilarityThreshold = 0.9

// NameSimilarity returns the Jaccard similarity of the lowercased token sets
// of two names, in [0, 1]. Token order and repetition do not matter, so
// "Acme Corp" and "corp ACME" score 1.0.
func NameSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// SameEntity reports whether two names of the same entity type should merge:
// an exact case-insensitive match, or token-set similarity at or above
// SimilarityThreshold.
func SameEntity(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	return NameSimilarity(a, b) >= SimilarityThreshold
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,;:!?\"'()[]")] = struct{}{}
	}
	delete(set, "")
	return set
}
