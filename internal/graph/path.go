package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph"

	"github.com/kasw/orgtrace/internal/store"
)

// bfsPath returns the node sequence of a shortest unweighted path
// from src to dst, or nil when dst is unreachable. Plain
// breadth-first search with a parent map; neighbor order is whatever
// the graph yields, so equal-length paths are not tie-broken.
func bfsPath(g graph.Undirected, src, dst int64) []int64 {
	if src == dst {
		return []int64{src}
	}
	parent := map[int64]int64{src: src}
	queue := []int64{src}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		neighbors := g.From(cur)
		for neighbors.Next() {
			next := neighbors.Node().ID()
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			if next == dst {
				return unwind(parent, src, dst)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func unwind(parent map[int64]int64, src, dst int64) []int64 {
	var rev []int64
	for cur := dst; ; cur = parent[cur] {
		rev = append(rev, cur)
		if cur == src {
			break
		}
	}
	path := make([]int64, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// PathOptions control full-graph path reporting.
type PathOptions struct {
	// PeopleOnly drops unit nodes from the reported path.
	PeopleOnly bool
	// IncludeMetadata attaches employment stints per traversed edge.
	IncludeMetadata bool
}

// PathStep is one traversed edge with its employment metadata. Stints
// is nil for hierarchy edges.
type PathStep struct {
	From   NodeRef
	To     NodeRef
	Stints []EmploymentEdge
}

// Path is a resolved shortest path.
type Path struct {
	Nodes []NodeRef
	Steps []PathStep
}

// ShortestPath finds the shortest path between any source and any
// target name, running one search per (source, target) pair and
// keeping the overall shortest. The first shortest found wins ties.
// Returns ErrNotFound when no name resolves to a node, nil when every
// pair is disconnected.
func (f *Full) ShortestPath(from, to []string, opts PathOptions) (*Path, error) {
	srcNodes, err := f.resolveNames(from)
	if err != nil {
		return nil, err
	}
	dstNodes, err := f.resolveNames(to)
	if err != nil {
		return nil, err
	}

	var best []int64
	for _, s := range srcNodes {
		for _, t := range dstNodes {
			p := bfsPath(f.g, s, t)
			if p == nil {
				continue
			}
			if best == nil || len(p) < len(best) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, nil
	}

	out := &Path{}
	if opts.IncludeMetadata {
		for i := 0; i+1 < len(best); i++ {
			out.Steps = append(out.Steps, PathStep{
				From:   f.refs[best[i]],
				To:     f.refs[best[i+1]],
				Stints: f.Stints(best[i], best[i+1]),
			})
		}
	}
	for _, n := range best {
		if opts.PeopleOnly && nodeIsOrg(n) {
			continue
		}
		out.Nodes = append(out.Nodes, f.refs[n])
	}
	return out, nil
}

func (f *Full) resolveNames(names []string) ([]int64, error) {
	var out []int64
	for _, name := range names {
		out = append(out, f.NodesByName(name)...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no graph node for %v: %w", names, store.ErrNotFound)
	}
	return out, nil
}

// TemporalPath finds the shortest colleague-graph path between two
// person names and interleaves each hop with the first unit the pair
// shared: person, unit, person, unit, person. A name resolving to
// several identities searches every pair and keeps the shortest.
// Returns ErrNotFound when a name is not in the graph, nil when the
// two are disconnected.
func (c *Colleague) TemporalPath(from, to string) ([]NodeRef, error) {
	srcs := c.NodesByName(from)
	if len(srcs) == 0 {
		return nil, fmt.Errorf("person %q not in colleague graph: %w", from, store.ErrNotFound)
	}
	dsts := c.NodesByName(to)
	if len(dsts) == 0 {
		return nil, fmt.Errorf("person %q not in colleague graph: %w", to, store.ErrNotFound)
	}

	var p []int64
	for _, src := range srcs {
		for _, dst := range dsts {
			q := bfsPath(c.g, src, dst)
			if q == nil {
				continue
			}
			if p == nil || len(q) < len(p) {
				p = q
			}
		}
	}
	if p == nil {
		return nil, nil
	}

	out := []NodeRef{c.persons[p[0]]}
	for i := 0; i+1 < len(p); i++ {
		if units := c.SharedUnits(p[i], p[i+1]); len(units) > 0 {
			out = append(out, units[0])
		}
		out = append(out, c.persons[p[i+1]])
	}
	return out, nil
}
