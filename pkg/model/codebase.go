package model

import (
	"maps"
	"slices"
)

// UnitID identifies a compilation unit. It is the project file path
// relative to the workspace root.
type UnitID string

// Unit is an independently compiled collection of documents (a project).
type Unit struct {
	ID         UnitID       `json:"id"`
	Name       string       `json:"name"` // assembly name, used by friend declarations
	Path       string       `json:"path"` // absolute project file path
	Documents  []DocumentID `json:"documents"`
	References []UnitID     `json:"references"` // units this unit depends on
	Friends    []string     `json:"friends,omitempty"`
}

// Codebase is an immutable snapshot of units and their documents.
// Rewrites produce new snapshots via WithDocuments.
type Codebase struct {
	Root string

	units     map[UnitID]*Unit
	unitOrder []UnitID
	docs      map[DocumentID]*Document
}

// NewCodebase creates a snapshot. Units are kept in ID order.
func NewCodebase(root string, units []*Unit, docs []*Document) *Codebase {
	cb := &Codebase{
		Root:  root,
		units: make(map[UnitID]*Unit, len(units)),
		docs:  make(map[DocumentID]*Document, len(docs)),
	}
	for _, u := range units {
		cb.units[u.ID] = u
		cb.unitOrder = append(cb.unitOrder, u.ID)
	}
	slices.Sort(cb.unitOrder)
	for _, d := range docs {
		cb.docs[d.ID] = d
	}
	return cb
}

// Units returns all units in ID order
func (cb *Codebase) Units() []*Unit {
	units := make([]*Unit, 0, len(cb.unitOrder))
	for _, id := range cb.unitOrder {
		units = append(units, cb.units[id])
	}
	return units
}

func (cb *Codebase) Unit(id UnitID) (*Unit, bool) {
	u, ok := cb.units[id]
	return u, ok
}

// UnitByName looks a unit up by assembly name
func (cb *Codebase) UnitByName(name string) (*Unit, bool) {
	for _, id := range cb.unitOrder {
		if cb.units[id].Name == name {
			return cb.units[id], true
		}
	}
	return nil, false
}

func (cb *Codebase) Document(id DocumentID) (*Document, bool) {
	d, ok := cb.docs[id]
	return d, ok
}

// Documents returns the documents of a unit in declaration order.
// IDs without a document in this snapshot are skipped.
func (cb *Codebase) Documents(unit UnitID) []*Document {
	u, ok := cb.units[unit]
	if !ok {
		return nil
	}
	docs := make([]*Document, 0, len(u.Documents))
	for _, id := range u.Documents {
		if d, ok := cb.docs[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs
}

// AllDocuments returns every document in ID order
func (cb *Codebase) AllDocuments() []*Document {
	ids := slices.Sorted(maps.Keys(cb.docs))
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, cb.docs[id])
	}
	return docs
}

// WithDocuments returns a new snapshot in which the given documents replace
// the ones with the same ID. The receiver is not modified.
func (cb *Codebase) WithDocuments(changed ...*Document) *Codebase {
	next := &Codebase{
		Root:      cb.Root,
		units:     cb.units,
		unitOrder: cb.unitOrder,
		docs:      maps.Clone(cb.docs),
	}
	for _, d := range changed {
		next.docs[d.ID] = d
	}
	return next
}

// ChangedDocuments lists documents whose text differs from the base snapshot
func (cb *Codebase) ChangedDocuments(base *Codebase) []*Document {
	var changed []*Document
	for _, d := range cb.AllDocuments() {
		old, ok := base.docs[d.ID]
		if !ok || old.Version() != d.Version() {
			changed = append(changed, d)
		}
	}
	return changed
}
