package nameres

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ratio is the percentage similarity of two strings from edit
// distance: (len(a)+len(b)-dist) / (len(a)+len(b)) * 100. Two empty
// strings are identical.
func ratio(a, b string) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (total - dist) * 100 / total
}

// tokenSet returns the unique whitespace-separated tokens of s.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func sortedJoin(set map[string]struct{}) string {
	toks := make([]string, 0, len(set))
	for tok := range set {
		toks = append(toks, tok)
	}
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// TokenSetRatio scores two strings by comparing their shared tokens
// against each side's surplus: with t0 the sorted intersection, t1 =
// t0 plus a's surplus tokens, and t2 = t0 plus b's surplus tokens, the
// result is the best ratio among the three pairings. Word order and
// repeated tokens do not affect the score, which makes it a good fit
// for person names.
func TokenSetRatio(a, b string) int {
	setA := tokenSet(strings.ToLower(a))
	setB := tokenSet(strings.ToLower(b))

	inter := make(map[string]struct{})
	diffA := make(map[string]struct{})
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter[tok] = struct{}{}
		} else {
			diffA[tok] = struct{}{}
		}
	}
	diffB := make(map[string]struct{})
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			diffB[tok] = struct{}{}
		}
	}

	t0 := sortedJoin(inter)
	t1 := strings.TrimSpace(t0 + " " + sortedJoin(diffA))
	t2 := strings.TrimSpace(t0 + " " + sortedJoin(diffB))

	best := ratio(t0, t1)
	if r := ratio(t0, t2); r > best {
		best = r
	}
	if r := ratio(t1, t2); r > best {
		best = r
	}
	return best
}
