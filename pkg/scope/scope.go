// Package scope computes where references to a unit's public types may
// appear: the documents of dependent units that are not friends.
package scope

import (
	"fmt"
	"strings"

	"github.com/ritzau/encap-analyzer/pkg/graph"
	"github.com/ritzau/encap-analyzer/pkg/model"
)

// Policy selects which dependents are searched
type Policy string

const (
	// PolicyTransitive searches every unit that reaches the analyzed unit
	// through references.
	PolicyTransitive Policy = "transitive"
	// PolicyDirect searches only units that reference the analyzed unit
	// directly.
	PolicyDirect Policy = "direct"
)

// ParsePolicy parses a policy name; the empty string selects the default
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyTransitive:
		return PolicyTransitive, nil
	case PolicyDirect:
		return PolicyDirect, nil
	}
	return "", fmt.Errorf("unknown scope policy %q (want %q or %q)", s, PolicyTransitive, PolicyDirect)
}

// FriendSet is the set of assembly names allowed to see a unit's internals
type FriendSet map[string]bool

// Friends combines the friends declared in the unit's project with those
// declared by attributes in its source. Names are normalized with
// NormalizeFriend.
func Friends(unit *model.Unit, declared []string) FriendSet {
	fs := make(FriendSet)
	for _, list := range [][]string{unit.Friends, declared} {
		for _, name := range list {
			if n := NormalizeFriend(name); n != "" {
				fs[n] = true
			}
		}
	}
	return fs
}

// NormalizeFriend strips the public key part of a friend assembly name:
// "Tests, PublicKey=0024..." becomes "Tests".
func NormalizeFriend(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// Resolve returns the documents of every dependent of unit, selected by
// policy, excluding friend units. The analyzed unit itself is never part
// of the result.
func Resolve(ug *graph.UnitGraph, cb *model.Codebase, unit model.UnitID, friends FriendSet, policy Policy) model.DocumentSet {
	var dependents []model.UnitID
	if policy == PolicyDirect {
		dependents = ug.Dependents(unit)
	} else {
		dependents = ug.TransitiveDependents(unit)
	}

	docs := make(model.DocumentSet)
	for _, id := range dependents {
		u, ok := cb.Unit(id)
		if !ok || id == unit || friends[u.Name] {
			continue
		}
		for _, d := range u.Documents {
			docs.Add(d)
		}
	}
	return docs
}

// Own returns the documents of the unit itself
func Own(cb *model.Codebase, unit model.UnitID) model.DocumentSet {
	docs := make(model.DocumentSet)
	if u, ok := cb.Unit(unit); ok {
		for _, d := range u.Documents {
			docs.Add(d)
		}
	}
	return docs
}
