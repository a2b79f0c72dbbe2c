// internal/perception/match.go
package perception

import (
	"strings"
)

// stopwords are goal words that carry no target-entity information. Stripping
// them keeps "find the cheapest laptop with an NVIDIA GPU" matching on
// "laptop" and "nvidia", not on "the".
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "for": {},
	"with": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {}, "me": {},
	"find": {}, "buy": {}, "get": {}, "search": {}, "locate": {}, "show": {},
	"cheapest": {}, "best": {}, "good": {}, "near": {}, "available": {},
	"online": {}, "price": {}, "under": {}, "over": {}, "new": {}, "sale": {},
}

// GoalTerms tokenizes a goal into the lowercase terms that identify the
// target entity.
func GoalTerms(goal string) []string {
	fields := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// MatchesGoal reports whether text contains at least one goal term. Singular
// and plural forms are treated as the same term.
func MatchesGoal(text string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
		// "hamsters" should match a goal term "hamster" and vice versa.
		if strings.HasSuffix(term, "s") && strings.Contains(lower, strings.TrimSuffix(term, "s")) {
			return true
		}
	}
	return false
}
