// Package cycles reports reference cycles between units. References are
// assumed acyclic; a cycle is only ever warned about.
package cycles

import (
	"slices"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/encap-analyzer/pkg/graph"
	"github.com/ritzau/encap-analyzer/pkg/model"
)

// UnitCycle is a set of units that reference each other
type UnitCycle struct {
	Units []model.UnitID
}

// FindUnitCycles finds all reference cycles between units: the strongly
// connected components with more than one unit. Units within a cycle and
// the cycles themselves are sorted.
func FindUnitCycles(ug *graph.UnitGraph) []UnitCycle {
	var cycles []UnitCycle
	for _, scc := range topo.TarjanSCC(ug.Graph()) {
		if len(scc) < 2 {
			continue
		}
		units := make([]model.UnitID, 0, len(scc))
		for _, n := range scc {
			if u, ok := ug.UnitByID(n.ID()); ok {
				units = append(units, u)
			}
		}
		slices.Sort(units)
		cycles = append(cycles, UnitCycle{Units: units})
	}

	slices.SortFunc(cycles, func(a, b UnitCycle) int {
		return slices.Compare(a.Units, b.Units)
	})
	return cycles
}
