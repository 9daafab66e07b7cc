// Package semantic defines the contract between the analysis core and a
// language front end that can compile units and search references.
package semantic

import (
	"context"
	"iter"

	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

// Provider compiles units of a codebase snapshot
type Provider interface {
	// Compile returns the compilation of one unit. It fails when the unit
	// cannot be compiled at all.
	Compile(ctx context.Context, cb *model.Codebase, unit model.UnitID) (Compilation, error)
}

// Compilation is the semantic model of one unit within a snapshot.
type Compilation interface {
	// Unit returns the compiled unit
	Unit() model.UnitID

	// GlobalNamespace is the root of the namespace tree. It includes types
	// of referenced units; callers filter by Symbol.Unit.
	GlobalNamespace() *model.Namespace

	// Friends lists assembly names granted access to this unit's internals
	// by attributes in its source.
	Friends() []string

	// FindReferences lazily yields references to sym found in the documents
	// of scope. Iteration stops early when the consumer stops ranging or the
	// context is cancelled; a cancelled search yields ctx.Err().
	FindReferences(ctx context.Context, sym *model.Symbol, scope model.DocumentSet) iter.Seq2[model.ReferenceEvent, error]

	// SyntaxAt returns the innermost syntax node covering loc.
	SyntaxAt(ctx context.Context, loc model.Location) (syntax.Node, error)
}
