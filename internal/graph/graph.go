// Package graph maintains two cached in-memory views of the store:
// the full history graph (people, units, employment and hierarchy
// edges) and the colleague graph (people joined by overlapping tenure
// at a shared unit). Both are rebuilt lazily after invalidation.
package graph

import (
	"time"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/kasw/orgtrace/internal/repo"
)

// Node kinds.
const (
	KindPerson = "person"
	KindOrg    = "org"
)

// NodeRef identifies a graph node to callers: kind, store id, and
// display name.
type NodeRef struct {
	Kind string
	ID   int
	Name string
}

// Node ids pack the store id and the kind into one int64: even for
// people, odd for units.
func personNode(id int) int64 { return int64(id) << 1 }
func orgNode(id int) int64    { return int64(id)<<1 | 1 }

func nodeID(n int64) int     { return int(n >> 1) }
func nodeIsOrg(n int64) bool { return n&1 == 1 }

// EmploymentEdge is the metadata of one stint on a person-unit edge.
// A person can hold several stints at the same unit.
type EmploymentEdge struct {
	Rank      *string
	StartDate time.Time
	EndDate   time.Time
}

// edgeKey normalizes an undirected pair.
type edgeKey [2]int64

func keyOf(a, b int64) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Full is the full history graph: person-unit employment edges plus
// unit-parent hierarchy edges, across all time.
type Full struct {
	g     *simple.UndirectedGraph
	refs  map[int64]NodeRef
	stint map[edgeKey][]EmploymentEdge

	peopleByName map[string][]int64
	orgsByName   map[string][]int64
}

// NewFull builds the full graph from every employment edge and the
// unit hierarchy.
func NewFull(history []repo.SnapshotRow, hierarchy []repo.HierarchyEdge) *Full {
	f := &Full{
		g:            simple.NewUndirectedGraph(),
		refs:         make(map[int64]NodeRef),
		stint:        make(map[edgeKey][]EmploymentEdge),
		peopleByName: make(map[string][]int64),
		orgsByName:   make(map[string][]int64),
	}

	for _, h := range hierarchy {
		f.ensureOrg(h.ID, h.Name)
		if h.ParentOrgID != nil {
			// Parent name is filled in by its own hierarchy row.
			f.ensureOrg(*h.ParentOrgID, "")
			f.setEdge(orgNode(h.ID), orgNode(*h.ParentOrgID))
		}
	}

	for _, row := range history {
		f.ensurePerson(row.PersonID, row.PersonName)
		f.ensureOrg(row.OrgID, row.OrgName)
		p, o := personNode(row.PersonID), orgNode(row.OrgID)
		f.setEdge(p, o)
		k := keyOf(p, o)
		f.stint[k] = append(f.stint[k], EmploymentEdge{
			Rank:      row.Rank,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
		})
	}

	return f
}

func (f *Full) ensurePerson(id int, name string) {
	n := personNode(id)
	if _, ok := f.refs[n]; ok {
		return
	}
	f.refs[n] = NodeRef{Kind: KindPerson, ID: id, Name: name}
	f.g.AddNode(simple.Node(n))
	f.peopleByName[name] = append(f.peopleByName[name], n)
}

func (f *Full) ensureOrg(id int, name string) {
	n := orgNode(id)
	if ref, ok := f.refs[n]; ok {
		if ref.Name == "" && name != "" {
			ref.Name = name
			f.refs[n] = ref
			f.orgsByName[name] = append(f.orgsByName[name], n)
		}
		return
	}
	f.refs[n] = NodeRef{Kind: KindOrg, ID: id, Name: name}
	f.g.AddNode(simple.Node(n))
	if name != "" {
		f.orgsByName[name] = append(f.orgsByName[name], n)
	}
}

func (f *Full) setEdge(a, b int64) {
	if a == b {
		return
	}
	if f.g.HasEdgeBetween(a, b) {
		return
	}
	f.g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
}

// Ref returns the NodeRef for an internal node id.
func (f *Full) Ref(n int64) NodeRef { return f.refs[n] }

// Stints returns the employment metadata on the edge between two
// nodes, nil for hierarchy edges.
func (f *Full) Stints(a, b int64) []EmploymentEdge {
	return f.stint[keyOf(a, b)]
}

// NodesByName resolves a display name to node ids: every person with
// that name plus every unit carrying it. Split identities share a
// clean name, so one name can resolve to several people.
func (f *Full) NodesByName(name string) []int64 {
	var out []int64
	out = append(out, f.peopleByName[name]...)
	out = append(out, f.orgsByName[name]...)
	return out
}

// Order returns the node count.
func (f *Full) Order() int { return f.g.Nodes().Len() }

// Colleague is the person-to-person graph: an edge joins two people
// whose tenure overlapped at a shared unit. Edge metadata lists the
// shared units, first shared unit first.
type Colleague struct {
	g       *simple.UndirectedGraph
	persons map[int64]NodeRef
	units   map[edgeKey][]NodeRef

	byName map[string][]int64
}

// NewColleague builds the colleague graph by pairing overlapping
// stints within each unit.
func NewColleague(history []repo.SnapshotRow) *Colleague {
	c := &Colleague{
		g:       simple.NewUndirectedGraph(),
		persons: make(map[int64]NodeRef),
		units:   make(map[edgeKey][]NodeRef),
		byName:  make(map[string][]int64),
	}

	byOrg := make(map[int][]repo.SnapshotRow)
	for _, row := range history {
		byOrg[row.OrgID] = append(byOrg[row.OrgID], row)
	}

	for _, rows := range byOrg {
		for i := 0; i < len(rows); i++ {
			for j := i + 1; j < len(rows); j++ {
				a, b := rows[i], rows[j]
				if a.PersonID == b.PersonID {
					continue
				}
				if a.StartDate.After(b.EndDate) || b.StartDate.After(a.EndDate) {
					continue
				}
				c.addPair(a, b)
			}
		}
	}
	return c
}

func (c *Colleague) addPair(a, b repo.SnapshotRow) {
	na := c.ensurePerson(a.PersonID, a.PersonName)
	nb := c.ensurePerson(b.PersonID, b.PersonName)
	if !c.g.HasEdgeBetween(na, nb) {
		c.g.SetEdge(simple.Edge{F: simple.Node(na), T: simple.Node(nb)})
	}
	k := keyOf(na, nb)
	unit := NodeRef{Kind: KindOrg, ID: a.OrgID, Name: a.OrgName}
	for _, u := range c.units[k] {
		if u.ID == unit.ID {
			return
		}
	}
	c.units[k] = append(c.units[k], unit)
}

func (c *Colleague) ensurePerson(id int, name string) int64 {
	n := personNode(id)
	if _, ok := c.persons[n]; !ok {
		c.persons[n] = NodeRef{Kind: KindPerson, ID: id, Name: name}
		c.g.AddNode(simple.Node(n))
		c.byName[name] = append(c.byName[name], n)
	}
	return n
}

// SharedUnits lists the units two directly connected people shared.
func (c *Colleague) SharedUnits(a, b int64) []NodeRef {
	return c.units[keyOf(a, b)]
}

// NodesByName resolves a person name to its node ids. Split
// identities share a clean name, so one name can resolve to several
// people.
func (c *Colleague) NodesByName(name string) []int64 {
	return c.byName[name]
}

// Ref returns the NodeRef for a node id.
func (c *Colleague) Ref(n int64) NodeRef { return c.persons[n] }

// Order returns the person count.
func (c *Colleague) Order() int { return c.g.Nodes().Len() }
