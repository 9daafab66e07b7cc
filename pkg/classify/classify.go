// Package classify decides whether a reference to a type exposes that type
// through the public surface of the declaration that contains it.
package classify

import (
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

// Result of classifying one reference
type Result struct {
	// Declaration is the type declaration the walk concluded at, or nil
	// when it stopped inside code or a non-public field.
	Declaration syntax.Node
	// Leak is true when the reference is part of a public signature of a
	// public type.
	Leak bool
}

// Classify walks from a reference node towards the root.
//
// Constructors, methods and properties record whether they are public and
// the walk continues. A field continues only when it is public. The first
// type declaration reached decides the result: it leaks when the type is
// public and the reference sat in a public member. A delegate leaks when the
// delegate is public. Statements, blocks, calls and object creations end the
// walk: references in executable code never leak.
func Classify(ref syntax.Node) Result {
	insidePublicMember := false

	for n := range syntax.Ancestors(ref) {
		switch n.Kind() {
		case syntax.KindConstructor, syntax.KindMethod, syntax.KindProperty:
			insidePublicMember = syntax.IsPublic(n)

		case syntax.KindField:
			if !syntax.IsPublic(n) {
				return Result{}
			}
			insidePublicMember = true

		case syntax.KindClass, syntax.KindStruct, syntax.KindInterface, syntax.KindEnum, syntax.KindRecord:
			return Result{Declaration: n, Leak: syntax.IsPublic(n) && insidePublicMember}

		case syntax.KindDelegate:
			return Result{Declaration: n, Leak: syntax.IsPublic(n)}

		case syntax.KindStatement, syntax.KindBlock, syntax.KindInvocation, syntax.KindObjectCreation:
			return Result{}
		}
	}

	return Result{}
}
