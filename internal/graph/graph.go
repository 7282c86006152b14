// Package graph models the prerequisite relationships between resolved
// capabilities. Nodes are stored by index with adjacency lists so cycle
// paths can be reconstructed with a plain index walk.
package graph

import (
	"sort"
	"strings"
)

// Graph is a directed graph over capability names. Edges point from a
// prerequisite to the capability that depends on it.
type Graph struct {
	names []string
	index map[string]int
	out   [][]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: map[string]int{}}
}

// Add inserts a node if it is not already present and returns its index.
func (g *Graph) Add(name string) int {
	if idx, ok := g.index[name]; ok {
		return idx
	}
	idx := len(g.names)
	g.names = append(g.names, name)
	g.out = append(g.out, nil)
	g.index[name] = idx
	return idx
}

// AddEdge records that prerequisite must be processed before dependent.
// Both endpoints are added as needed; duplicate edges collapse.
func (g *Graph) AddEdge(prerequisite, dependent string) {
	from := g.Add(prerequisite)
	to := g.Add(dependent)
	for _, existing := range g.out[from] {
		if existing == to {
			return
		}
	}
	g.out[from] = append(g.out[from], to)
}

// Contains reports whether a node is present.
func (g *Graph) Contains(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.names)
}

// Cycle is a closed walk through the graph, first node repeated last.
type Cycle struct {
	Path []string
}

// String renders the cycle as "a -> b -> a".
func (c *Cycle) String() string {
	if c == nil || len(c.Path) == 0 {
		return ""
	}
	return strings.Join(c.Path, " -> ")
}

// TopoSort returns the canonical processing order: prerequisites before
// dependents, ties broken lexicographically so the order depends only on
// the node set, never on insertion order. When the graph is cyclic the
// order is nil and a representative cycle is returned.
func (g *Graph) TopoSort() ([]string, *Cycle) {
	n := len(g.names)
	indegree := make([]int, n)
	for _, targets := range g.out {
		for _, to := range targets {
			indegree[to]++
		}
	}

	// Kahn's algorithm over a sorted frontier.
	frontier := make([]int, 0, n)
	for idx, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, idx)
		}
	}
	order := make([]string, 0, n)
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return g.names[frontier[i]] < g.names[frontier[j]] })
		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, g.names[next])
		for _, to := range g.out[next] {
			indegree[to]--
			if indegree[to] == 0 {
				frontier = append(frontier, to)
			}
		}
	}
	if len(order) == n {
		return order, nil
	}

	// Nodes with nonzero indegree form at least one cycle.
	remaining := map[int]bool{}
	for idx, deg := range indegree {
		if deg > 0 {
			remaining[idx] = true
		}
	}
	return nil, g.findCycle(remaining)
}

// findCycle walks predecessor edges through the unresolved subgraph until a
// node repeats. Every unresolved node keeps at least one unresolved
// predecessor (that is why its indegree never reached zero), so the walk
// cannot escape and must close.
func (g *Graph) findCycle(remaining map[int]bool) *Cycle {
	pred := make(map[int][]int, len(remaining))
	for from, targets := range g.out {
		if !remaining[from] {
			continue
		}
		for _, to := range targets {
			if remaining[to] {
				pred[to] = append(pred[to], from)
			}
		}
	}

	starts := make([]int, 0, len(remaining))
	for idx := range remaining {
		starts = append(starts, idx)
	}
	sort.Slice(starts, func(i, j int) bool { return g.names[starts[i]] < g.names[starts[j]] })

	position := map[int]int{}
	var walk []int
	current := starts[0]
	for {
		if at, seen := position[current]; seen {
			// walk[at:] is the cycle in reverse edge direction.
			cycle := make([]int, 0, len(walk)-at)
			for i := len(walk) - 1; i >= at; i-- {
				cycle = append(cycle, walk[i])
			}
			return &Cycle{Path: g.rotateToSmallest(cycle)}
		}
		position[current] = len(walk)
		walk = append(walk, current)

		candidates := append([]int(nil), pred[current]...)
		if len(candidates) == 0 {
			return &Cycle{Path: []string{g.names[current], g.names[current]}}
		}
		sort.Slice(candidates, func(i, j int) bool { return g.names[candidates[i]] < g.names[candidates[j]] })
		current = candidates[0]
	}
}

// rotateToSmallest starts the reported cycle at its lexicographically
// smallest node and closes it by repeating that node.
func (g *Graph) rotateToSmallest(cycle []int) []string {
	pivot := 0
	for i, idx := range cycle {
		if g.names[idx] < g.names[cycle[pivot]] {
			pivot = i
		}
	}
	path := make([]string, 0, len(cycle)+1)
	for i := 0; i < len(cycle); i++ {
		path = append(path, g.names[cycle[(pivot+i)%len(cycle)]])
	}
	path = append(path, g.names[cycle[pivot]])
	return path
}
