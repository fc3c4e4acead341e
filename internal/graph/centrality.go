package graph

import (
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Centralities holds per-person centrality scores keyed by name.
type Centralities struct {
	Betweenness map[string]float64
	Closeness   map[string]float64
	Degree      map[string]float64
}

// PersonCentralities computes centralities over the person
// projection: two people are adjacent iff any path links them in the
// full graph, so each connected component projects to a clique of its
// people.
func (f *Full) PersonCentralities() *Centralities {
	proj := simple.NewUndirectedGraph()

	for _, comp := range topo.ConnectedComponents(f.g) {
		var people []int64
		for _, n := range comp {
			if !nodeIsOrg(n.ID()) {
				people = append(people, n.ID())
			}
		}
		for _, p := range people {
			if proj.Node(p) == nil {
				proj.AddNode(simple.Node(p))
			}
		}
		for i := 0; i < len(people); i++ {
			for j := i + 1; j < len(people); j++ {
				proj.SetEdge(simple.Edge{F: simple.Node(people[i]), T: simple.Node(people[j])})
			}
		}
	}

	order := proj.Nodes().Len()
	out := &Centralities{
		Betweenness: make(map[string]float64, order),
		Closeness:   make(map[string]float64, order),
		Degree:      make(map[string]float64, order),
	}

	betweenness := network.Betweenness(proj)
	closeness := network.Closeness(proj, path.DijkstraAllPaths(proj))

	nodes := proj.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		name := f.refs[id].Name
		out.Betweenness[name] = betweenness[id]
		out.Closeness[name] = closeness[id]
		if order > 1 {
			out.Degree[name] = float64(proj.From(id).Len()) / float64(order-1)
		} else {
			out.Degree[name] = 0
		}
	}
	return out
}
