package graph_test

import (
	"errors"
	"testing"
	"time"

	"github.com/kasw/orgtrace/internal/graph"
	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func strptr(s string) *string { return &s }

func row(personID int, person string, orgID int, org, start, end string) repo.SnapshotRow {
	return repo.SnapshotRow{
		PersonID:   personID,
		PersonName: person,
		OrgID:      orgID,
		OrgName:    org,
		Rank:       strptr("Officer"),
		StartDate:  date(start),
		EndDate:    date(end),
	}
}

func intptr(i int) *int { return &i }

// Five people across three ministries:
//
//	MOH (10) > Hospital Services (11): alice 2010-2012, bob 2012-2014
//	MOF (20): carol 2013-2015, bob 2015-2016, dave 2000-2001
//	Standalone (30): eve 2010-2011
//
// alice-bob overlap at 11, bob-carol overlap at 20; dave and eve
// never overlap anyone.
var testHistory = []repo.SnapshotRow{
	row(1, "alice", 11, "Hospital Services", "2010-01-01", "2012-12-31"),
	row(2, "bob", 11, "Hospital Services", "2012-01-01", "2014-12-31"),
	row(3, "carol", 20, "Ministry of Finance", "2013-01-01", "2015-12-31"),
	row(2, "bob", 20, "Ministry of Finance", "2015-01-01", "2016-12-31"),
	row(4, "dave", 20, "Ministry of Finance", "2000-01-01", "2001-01-01"),
	row(5, "eve", 30, "Standalone Board", "2010-01-01", "2011-01-01"),
}

var testHierarchy = []repo.HierarchyEdge{
	{ID: 10, Name: "Ministry of Health"},
	{ID: 11, Name: "Hospital Services", ParentOrgID: intptr(10)},
	{ID: 20, Name: "Ministry of Finance"},
	{ID: 30, Name: "Standalone Board"},
}

func names(refs []graph.NodeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}

func equal(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestFullShortestPath(t *testing.T) {
	f := graph.NewFull(testHistory, testHierarchy)

	t.Run("person to person through shared units", func(t *testing.T) {
		p, err := f.ShortestPath([]string{"alice"}, []string{"carol"}, graph.PathOptions{})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"alice", "Hospital Services", "bob", "Ministry of Finance", "carol"}
		if !equal(names(p.Nodes), want) {
			t.Errorf("path = %v, want %v", names(p.Nodes), want)
		}
	})

	t.Run("people only filters unit nodes", func(t *testing.T) {
		p, err := f.ShortestPath([]string{"alice"}, []string{"carol"}, graph.PathOptions{PeopleOnly: true})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"alice", "bob", "carol"}
		if !equal(names(p.Nodes), want) {
			t.Errorf("path = %v, want %v", names(p.Nodes), want)
		}
	})

	t.Run("metadata carries stints, hierarchy edges carry none", func(t *testing.T) {
		p, err := f.ShortestPath([]string{"alice"}, []string{"Ministry of Health"}, graph.PathOptions{IncludeMetadata: true})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"alice", "Hospital Services", "Ministry of Health"}
		if !equal(names(p.Nodes), want) {
			t.Fatalf("path = %v, want %v", names(p.Nodes), want)
		}
		if len(p.Steps) != 2 {
			t.Fatalf("got %d steps, want 2", len(p.Steps))
		}
		if len(p.Steps[0].Stints) != 1 || *p.Steps[0].Stints[0].Rank != "Officer" {
			t.Errorf("employment step stints = %+v, want one Officer stint", p.Steps[0].Stints)
		}
		if len(p.Steps[1].Stints) != 0 {
			t.Errorf("hierarchy step has stints: %+v", p.Steps[1].Stints)
		}
	})

	t.Run("source set takes the shortest over all pairs", func(t *testing.T) {
		p, err := f.ShortestPath([]string{"alice", "carol"}, []string{"dave"}, graph.PathOptions{PeopleOnly: true})
		if err != nil {
			t.Fatal(err)
		}
		// carol shares a unit with dave; alice is three hops out.
		want := []string{"carol", "dave"}
		if !equal(names(p.Nodes), want) {
			t.Errorf("path = %v, want %v", names(p.Nodes), want)
		}
	})

	t.Run("disconnected returns no path", func(t *testing.T) {
		p, err := f.ShortestPath([]string{"alice"}, []string{"eve"}, graph.PathOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if p != nil {
			t.Errorf("got path %v, want nil", names(p.Nodes))
		}
	})

	t.Run("unknown name is not found", func(t *testing.T) {
		_, err := f.ShortestPath([]string{"nobody"}, []string{"alice"}, graph.PathOptions{})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestColleagueGraph(t *testing.T) {
	c := graph.NewColleague(testHistory)

	t.Run("edges require temporal overlap", func(t *testing.T) {
		if len(c.NodesByName("dave")) != 0 {
			t.Error("dave overlapped nobody but is in the colleague graph")
		}
		if len(c.NodesByName("eve")) != 0 {
			t.Error("eve overlapped nobody but is in the colleague graph")
		}
	})

	t.Run("temporal path interleaves shared units", func(t *testing.T) {
		p, err := c.TemporalPath("alice", "carol")
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"alice", "Hospital Services", "bob", "Ministry of Finance", "carol"}
		if !equal(names(p), want) {
			t.Errorf("path = %v, want %v", names(p), want)
		}
		if p[1].Kind != graph.KindOrg || p[2].Kind != graph.KindPerson {
			t.Errorf("unexpected node kinds in %+v", p)
		}
	})

	t.Run("self path", func(t *testing.T) {
		p, err := c.TemporalPath("alice", "alice")
		if err != nil {
			t.Fatal(err)
		}
		if !equal(names(p), []string{"alice"}) {
			t.Errorf("path = %v, want [alice]", names(p))
		}
	})

	t.Run("unknown person is not found", func(t *testing.T) {
		_, err := c.TemporalPath("dave", "alice")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

// Disambiguation stores the same clean name under distinct keys, so
// two people in the graph can share a display name. Person 1 and
// person 2 are both "chen siew ling" at different ministries.
var splitHistory = []repo.SnapshotRow{
	row(1, "chen siew ling", 40, "Ministry of Health", "2019-01-01", "2019-12-31"),
	row(2, "chen siew ling", 50, "Ministry of Finance", "2019-01-01", "2019-12-31"),
	row(3, "raj kumar", 40, "Ministry of Health", "2019-06-01", "2020-06-30"),
	row(4, "lim hui fen", 50, "Ministry of Finance", "2019-06-01", "2020-06-30"),
}

var splitHierarchy = []repo.HierarchyEdge{
	{ID: 40, Name: "Ministry of Health"},
	{ID: 50, Name: "Ministry of Finance"},
}

func TestSplitIdentities(t *testing.T) {
	f := graph.NewFull(splitHistory, splitHierarchy)

	t.Run("name resolves to every identity", func(t *testing.T) {
		if got := len(f.NodesByName("chen siew ling")); got != 2 {
			t.Fatalf("got %d nodes for shared name, want 2", got)
		}
	})

	t.Run("full path reaches either identity's unit", func(t *testing.T) {
		for _, unit := range []string{"Ministry of Health", "Ministry of Finance"} {
			p, err := f.ShortestPath([]string{"chen siew ling"}, []string{unit}, graph.PathOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if p == nil {
				t.Fatalf("no path to %s", unit)
			}
			want := []string{"chen siew ling", unit}
			if !equal(names(p.Nodes), want) {
				t.Errorf("path = %v, want %v", names(p.Nodes), want)
			}
		}
	})

	c := graph.NewColleague(splitHistory)

	t.Run("colleague graph keeps both identities", func(t *testing.T) {
		if got := len(c.NodesByName("chen siew ling")); got != 2 {
			t.Fatalf("got %d colleague nodes for shared name, want 2", got)
		}
	})

	t.Run("temporal path picks the identity that connects", func(t *testing.T) {
		p, err := c.TemporalPath("chen siew ling", "raj kumar")
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"chen siew ling", "Ministry of Health", "raj kumar"}
		if !equal(names(p), want) {
			t.Errorf("path = %v, want %v", names(p), want)
		}

		p, err = c.TemporalPath("chen siew ling", "lim hui fen")
		if err != nil {
			t.Fatal(err)
		}
		want = []string{"chen siew ling", "Ministry of Finance", "lim hui fen"}
		if !equal(names(p), want) {
			t.Errorf("path = %v, want %v", names(p), want)
		}
	})

	t.Run("disconnected across identities stays nil", func(t *testing.T) {
		// raj and lim only connect through different chen identities.
		p, err := c.TemporalPath("raj kumar", "lim hui fen")
		if err != nil {
			t.Fatal(err)
		}
		if p != nil {
			t.Errorf("got path %v, want nil", names(p))
		}
	})
}

func TestPersonCentralities(t *testing.T) {
	f := graph.NewFull(testHistory, testHierarchy)
	cent := f.PersonCentralities()

	people := []string{"alice", "bob", "carol", "dave", "eve"}
	for _, name := range people {
		if _, ok := cent.Degree[name]; !ok {
			t.Fatalf("degree missing for %s", name)
		}
	}

	// alice, bob, carol, dave share one component and project to a
	// clique of four; eve is alone.
	if got := cent.Degree["alice"]; got != 0.75 {
		t.Errorf("degree[alice] = %v, want 0.75", got)
	}
	if got := cent.Degree["eve"]; got != 0 {
		t.Errorf("degree[eve] = %v, want 0", got)
	}

	// Cliques have no pass-through nodes.
	for _, name := range people {
		if got := cent.Betweenness[name]; got != 0 {
			t.Errorf("betweenness[%s] = %v, want 0", name, got)
		}
	}
}
