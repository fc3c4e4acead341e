// Package rank scores job titles for seniority. Scores are heuristic
// and only ever compared against each other; the absolute values carry
// no meaning outside identity clustering.
package rank

import "strings"

type scoredPhrase struct {
	phrase string
	score  int
}

// Management tiers, longest phrase first so "assistant director"
// matches before "director". At most one tier counts per title, and
// the matched phrase is erased before the modifier scan.
var managementTiers = []scoredPhrase{
	{"assistant director", 18},
	{"deputy director", 19},
	{"senior director", 22},
	{"vice president", 25},
	{"director", 20},
	{"chief", 30},
	{"head", 15},
	{"vp", 25},
}

// Role keywords provide the base score when no tier matched. First
// match wins and is erased.
var roleKeywords = []scoredPhrase{
	{"intern", 1},
	{"officer", 5},
	{"executive", 5},
	{"specialist", 6},
	{"analyst", 6},
	{"engineer", 7},
	{"consultant", 7},
	{"scientist", 8},
	{"counsel", 8},
	{"manager", 10},
}

// Level modifiers adjust the base. Every match over the remaining
// text counts; nothing is erased here.
var levelModifiers = []scoredPhrase{
	{"junior", -2},
	{"jr", -2},
	{"associate", -1},
	{"assoc", -1},
	{"assistant", -1},
	{"senior", 2},
	{"sr", 2},
	{"lead", 3},
	{"principal", 4},
	{"(covering)", 0},
}

// Roles that can be held concurrently with a full-time position.
var permissibleOverlapKeywords = []string{
	"board member",
	"advisor",
	"adviser",
	"consultant",
	"non-executive",
	"fellow",
	"mentor",
}

// Parser scores titles and classifies overlap-permitting roles.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// Parse returns a seniority score for the title. Higher is more
// senior; an empty title scores zero. Matching is word-bounded and
// case-insensitive.
func (p *Parser) Parse(title string) int {
	if title == "" {
		return 0
	}
	padded := " " + strings.ToLower(title) + " "

	score := 0
	foundBase := false

	for _, tier := range managementTiers {
		needle := " " + tier.phrase + " "
		if strings.Contains(padded, needle) {
			score += tier.score
			padded = strings.ReplaceAll(padded, needle, " ")
			foundBase = true
			break
		}
	}

	if !foundBase {
		for _, role := range roleKeywords {
			needle := " " + role.phrase + " "
			if strings.Contains(padded, needle) {
				score += role.score
				padded = strings.ReplaceAll(padded, needle, " ")
				break
			}
		}
	}

	for _, mod := range levelModifiers {
		if strings.Contains(padded, " "+mod.phrase+" ") {
			score += mod.score
		}
	}

	return score
}

// PermitsOverlap reports whether the title names a role that may be
// held alongside another position, like an advisory or board seat.
// Substring match; "Senior Advisory Board Member" qualifies.
func (p *Parser) PermitsOverlap(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range permissibleOverlapKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
