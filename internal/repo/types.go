// Package repo provides typed repositories over the orgtrace schema.
// Repositories hold a store.Querier, so the same code runs against the
// pool or inside a transaction.
package repo

import (
	"encoding/json"
	"time"
)

// Attrs is the JSONB metadata column shared by all tables.
type Attrs map[string]any

func (a Attrs) jsonValue() ([]byte, error) {
	if a == nil {
		a = Attrs{}
	}
	return json.Marshal(a)
}

func scanAttrs(raw []byte) Attrs {
	if len(raw) == 0 {
		return Attrs{}
	}
	var a Attrs
	if err := json.Unmarshal(raw, &a); err != nil {
		return Attrs{}
	}
	return a
}

// Person is a row of the people table. Split identities share the
// same Name and CleanName and are told apart by DisambiguationKey;
// uniqueness comes from (name, disambiguation_key).
type Person struct {
	ID                int
	Name              string
	CleanName         string
	Tel               *string
	Email             *string
	DisambiguationKey int
	Attrs             Attrs
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Org is a row of the organizations table. First/last observed dates
// and the hierarchy path parts live in Attrs.
type Org struct {
	ID          int
	Name        string
	Department  *string
	URL         *string
	ParentOrgID *int
	Attrs       Attrs
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Employment is a row of the employment table. Intervals are inclusive
// on both ends.
type Employment struct {
	ID         int
	PersonID   int
	OrgID      int
	Rank       *string
	StartDate  time.Time
	EndDate    time.Time
	TenureDays *int
	RawName    *string
	Attrs      Attrs
	CreatedAt  time.Time
}

// EmploymentDetail joins an employment row with its person and
// organization names.
type EmploymentDetail struct {
	Employment
	PersonName string
	OrgName    string
}

// NameCandidate is a clean_name hit from the fuzzy prefilter.
// SimScore is the trigram similarity, or zero when the hit came from
// the substring fallback.
type NameCandidate struct {
	CleanName string
	SimScore  float64
}

// ColleagueAtDate is one row of find_colleagues_at_date.
type ColleagueAtDate struct {
	Name         string
	Organization string
	Rank         *string
	StartDate    time.Time
	EndDate      time.Time
	OverlapDays  int
}

// ColleagueOverlap is one row of find_all_colleagues: a colleague's
// stint, the person's stint at the shared unit, and their overlap.
type ColleagueOverlap struct {
	Name           string
	Organization   string
	Rank           *string
	ColleagueStart time.Time
	ColleagueEnd   time.Time
	PersonStart    time.Time
	PersonEnd      time.Time
	OverlapStart   time.Time
	OverlapEnd     time.Time
	OverlapDays    int
}

// DescendantDiff is one row of get_org_descendants_diff.
type DescendantDiff struct {
	OrgID   int
	Name    string
	Status  string // added, removed, unchanged
	Details Attrs
}

// SnapshotRow is one active employment edge at a date: the raw
// material for graph building and network snapshots.
type SnapshotRow struct {
	PersonID   int
	PersonName string
	OrgID      int
	OrgName    string
	Rank       *string
	StartDate  time.Time
	EndDate    time.Time
}

// CareerEntry is one step of a career progression, optionally enriched
// with the ancestor chain of the unit (root first).
type CareerEntry struct {
	PersonName string
	PersonID   int
	Rank       *string
	OrgName    string
	OrgID      int
	StartDate  time.Time
	EndDate    time.Time
	TenureDays int
	Ancestors  []Org
}

// OverlapPerson is a person connected through overlapping employment
// within the unit family of a subject's units.
type OverlapPerson struct {
	PersonID     int
	Name         string
	OrgID        int
	OrgName      string
	Rank         *string
	OverlapStart time.Time
	OverlapEnd   time.Time
	OverlapDays  int
}
