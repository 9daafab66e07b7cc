package model

// SymbolID uniquely identifies a declared symbol across the codebase.
type SymbolID string

// SymbolKind is the kind of a declared symbol
type SymbolKind string

const (
	SymbolClass     SymbolKind = "class"
	SymbolStruct    SymbolKind = "struct"
	SymbolInterface SymbolKind = "interface"
	SymbolEnum      SymbolKind = "enum"
	SymbolRecord    SymbolKind = "record"
	SymbolDelegate  SymbolKind = "delegate"
	SymbolExtension SymbolKind = "extension" // extension-style free function
)

// Accessibility is the declared visibility of a symbol
type Accessibility string

const (
	AccessPublic    Accessibility = "public"
	AccessInternal  Accessibility = "internal"
	AccessProtected Accessibility = "protected"
	AccessPrivate   Accessibility = "private"
)

// Symbol is a declared type (or extension function) as seen by the semantic
// provider.
type Symbol struct {
	ID            SymbolID      `json:"id"`
	Name          string        `json:"name"`
	QualifiedName string        `json:"qualifiedName"`
	Namespace     string        `json:"namespace"`
	Kind          SymbolKind    `json:"kind"`
	Accessibility Accessibility `json:"accessibility"`
	Unit          UnitID        `json:"unit"`

	// Locations are the spans of the declaration name identifiers. Partial
	// declarations have one location per part.
	Locations []Location `json:"locations"`

	// BaseType is the declared base class when it is a symbol of this
	// codebase, empty otherwise.
	BaseType SymbolID `json:"baseType,omitempty"`

	// Extensions are the public extension functions attached to this type:
	// the ones it declares and the ones whose receiver is this type.
	Extensions []*Symbol `json:"-"`

	MightContainExtensions bool `json:"mightContainExtensions,omitempty"`
}

func (s *Symbol) IsPublic() bool {
	return s.Accessibility == AccessPublic
}

func (s *Symbol) String() string {
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	return s.Name
}

// Namespace is a node of the namespace tree of a compilation. Types holds
// only the types declared directly in the namespace.
type Namespace struct {
	Name       string       `json:"name"`
	Namespaces []*Namespace `json:"namespaces,omitempty"`
	Types      []*Symbol    `json:"types,omitempty"`
}

// ReferenceEvent is one occurrence of a symbol found by a reference search.
type ReferenceEvent struct {
	Symbol    SymbolID
	Container string // the enclosing type, if any
	Location  Location
	Unit      UnitID // unit owning the document of Location

	// Candidate marks a speculative match the provider could not bind
	// unambiguously.
	Candidate bool
}
