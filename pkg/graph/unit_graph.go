package graph

import (
	"cmp"
	"slices"

	"github.com/ritzau/encap-analyzer/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// UnitGraph is the unit dependency graph. An edge A -> B means unit A
// references unit B.
type UnitGraph struct {
	graph  *simple.DirectedGraph
	ids    map[model.UnitID]int64
	units  map[int64]model.UnitID
	nextID int64
}

// NewUnitGraph creates an empty unit graph
func NewUnitGraph() *UnitGraph {
	return &UnitGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[model.UnitID]int64),
		units: make(map[int64]model.UnitID),
	}
}

// BuildUnitGraph builds the graph from the references of every unit.
// References to units outside the codebase are ignored.
func BuildUnitGraph(cb *model.Codebase) *UnitGraph {
	ug := NewUnitGraph()
	for _, u := range cb.Units() {
		ug.AddUnit(u.ID)
	}
	for _, u := range cb.Units() {
		for _, ref := range u.References {
			if _, ok := cb.Unit(ref); ok {
				ug.AddReference(u.ID, ref)
			}
		}
	}
	return ug
}

// AddUnit adds a unit to the graph
func (ug *UnitGraph) AddUnit(id model.UnitID) {
	if _, exists := ug.ids[id]; exists {
		return
	}
	ug.ids[id] = ug.nextID
	ug.units[ug.nextID] = id
	ug.graph.AddNode(simple.Node(ug.nextID))
	ug.nextID++
}

// AddReference records that from depends on to. Self references are ignored.
func (ug *UnitGraph) AddReference(from, to model.UnitID) {
	if from == to {
		return
	}
	ug.AddUnit(from)
	ug.AddUnit(to)

	fromID, toID := ug.ids[from], ug.ids[to]
	if !ug.graph.HasEdgeFromTo(fromID, toID) {
		ug.graph.SetEdge(ug.graph.NewEdge(ug.graph.Node(fromID), ug.graph.Node(toID)))
	}
}

// Graph returns the underlying directed graph
func (ug *UnitGraph) Graph() *simple.DirectedGraph {
	return ug.graph
}

// UnitByID maps a graph node ID back to its unit
func (ug *UnitGraph) UnitByID(id int64) (model.UnitID, bool) {
	u, ok := ug.units[id]
	return u, ok
}

// Units returns all units in ID order
func (ug *UnitGraph) Units() []model.UnitID {
	units := make([]model.UnitID, 0, len(ug.ids))
	for u := range ug.ids {
		units = append(units, u)
	}
	slices.Sort(units)
	return units
}

// Edges returns all references as [from, to] pairs, sorted
func (ug *UnitGraph) Edges() [][2]model.UnitID {
	var edges [][2]model.UnitID
	it := ug.graph.Edges()
	for it.Next() {
		e := it.Edge()
		edges = append(edges, [2]model.UnitID{ug.units[e.From().ID()], ug.units[e.To().ID()]})
	}
	slices.SortFunc(edges, func(a, b [2]model.UnitID) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	return edges
}

// References returns the units u depends on directly
func (ug *UnitGraph) References(u model.UnitID) []model.UnitID {
	id, ok := ug.ids[u]
	if !ok {
		return nil
	}
	var refs []model.UnitID
	it := ug.graph.From(id)
	for it.Next() {
		refs = append(refs, ug.units[it.Node().ID()])
	}
	slices.Sort(refs)
	return refs
}

// Dependents returns the units that reference u directly
func (ug *UnitGraph) Dependents(u model.UnitID) []model.UnitID {
	id, ok := ug.ids[u]
	if !ok {
		return nil
	}
	var deps []model.UnitID
	it := ug.graph.To(id)
	for it.Next() {
		deps = append(deps, ug.units[it.Node().ID()])
	}
	slices.Sort(deps)
	return deps
}

// TransitiveDependents returns every unit from which u is reachable,
// excluding u itself.
func (ug *UnitGraph) TransitiveDependents(u model.UnitID) []model.UnitID {
	start, ok := ug.ids[u]
	if !ok {
		return nil
	}

	seen := map[int64]bool{start: true}
	queue := []int64{start}
	var deps []model.UnitID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		it := ug.graph.To(cur)
		for it.Next() {
			next := it.Node().ID()
			if seen[next] {
				continue
			}
			seen[next] = true
			deps = append(deps, ug.units[next])
			queue = append(queue, next)
		}
	}
	slices.Sort(deps)
	return deps
}

// TransitiveReferences returns every unit reachable from u, excluding u
func (ug *UnitGraph) TransitiveReferences(u model.UnitID) []model.UnitID {
	start, ok := ug.ids[u]
	if !ok {
		return nil
	}

	seen := map[int64]bool{start: true}
	stack := []int64{start}
	var refs []model.UnitID
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		it := ug.graph.From(cur)
		for it.Next() {
			next := it.Node().ID()
			if !seen[next] {
				seen[next] = true
				refs = append(refs, ug.units[next])
				stack = append(stack, next)
			}
		}
	}
	slices.Sort(refs)
	return refs
}

// DependencyOrder returns units with every unit after the units it
// references. When the graph has cycles the units are returned in ID order
// and ok is false.
func (ug *UnitGraph) DependencyOrder() (order []model.UnitID, ok bool) {
	sorted, err := topo.SortStabilized(ug.graph, nil)
	if err != nil {
		return ug.Units(), false
	}
	// topo orders dependents first; references must come first.
	for i := len(sorted) - 1; i >= 0; i-- {
		order = append(order, ug.units[sorted[i].ID()])
	}
	return order, true
}
