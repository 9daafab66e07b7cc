package analysis

import (
	"iter"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

// PublicTypes yields the public namespace-level types declared by unit,
// depth first from root. Types merged into the namespace tree from
// referenced units are skipped.
func PublicTypes(root *model.Namespace, unit model.UnitID) iter.Seq[*model.Symbol] {
	return func(yield func(*model.Symbol) bool) {
		if root == nil {
			return
		}
		stack := []*model.Namespace{root}
		for len(stack) > 0 {
			ns := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, sym := range ns.Types {
				if sym.Unit != unit || !sym.IsPublic() {
					continue
				}
				if !yield(sym) {
					return
				}
			}
			for i := len(ns.Namespaces) - 1; i >= 0; i-- {
				stack = append(stack, ns.Namespaces[i])
			}
		}
	}
}
