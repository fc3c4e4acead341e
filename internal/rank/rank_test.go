package rank_test

import (
	"testing"

	"github.com/kasw/orgtrace/internal/rank"
)

func TestParse(t *testing.T) {
	p := rank.NewParser()

	cases := []struct {
		title string
		want  int
	}{
		{"", 0},
		{"Intern", 1},
		{"Officer", 5},
		{"Manager", 10},
		{"Senior Manager", 12},
		{"Assistant Manager", 9},
		{"Junior Engineer", 5},
		{"Jr Engineer", 5},
		{"Principal Engineer", 11},
		{"Lead Analyst", 9},
		{"Head", 15},
		{"Director", 20},
		{"Deputy Director", 19},
		// The tier phrase is erased, so "senior" does not also count
		// as a modifier.
		{"Senior Director", 22},
		{"Assistant Director", 18},
		{"Vice President", 25},
		{"VP", 25},
		{"Chief Financial Officer", 30},
		// Unknown words score nothing.
		{"Board Member", 0},
		{"Professor", 0},
		{"Assoc Professor", -1},
		{"Associate Scientist", 7},
		{"Manager (Covering)", 10},
		// Matching is word-bounded: "directorate" is not "director".
		{"Directorate Support", 0},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			if got := p.Parse(tc.title); got != tc.want {
				t.Errorf("Parse(%q) = %d, want %d", tc.title, got, tc.want)
			}
		})
	}
}

func TestParseOrdering(t *testing.T) {
	p := rank.NewParser()

	// Scores must be comparable across the hierarchy.
	order := []string{"Intern", "Officer", "Manager", "Head", "Assistant Director", "Director", "Senior Director", "Vice President", "Chief"}
	prev := p.Parse(order[0])
	for _, title := range order[1:] {
		cur := p.Parse(title)
		if cur <= prev {
			t.Errorf("Parse(%q) = %d, want > %d", title, cur, prev)
		}
		prev = cur
	}
}

func TestPermitsOverlap(t *testing.T) {
	p := rank.NewParser()

	cases := []struct {
		title string
		want  bool
	}{
		{"", false},
		{"Board Member", true},
		{"Senior Advisory Board Member", true},
		{"Advisor", true},
		{"Adviser to the Minister", true},
		{"Consultant", true},
		{"Non-Executive Director", true},
		{"Research Fellow", true},
		{"Mentor", true},
		{"Director", false},
		{"Senior Manager", false},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			if got := p.PermitsOverlap(tc.title); got != tc.want {
				t.Errorf("PermitsOverlap(%q) = %v, want %v", tc.title, got, tc.want)
			}
		})
	}
}
