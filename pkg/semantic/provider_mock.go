package semantic

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

// MockProvider is a scripted Provider for testing. References are yielded in
// the order they are listed, filtered by the search scope.
type MockProvider struct {
	Namespaces map[model.UnitID]*model.Namespace
	FriendsOf  map[model.UnitID][]string
	References map[model.SymbolID][]model.ReferenceEvent
	Syntax     map[model.Location]syntax.Node
	CompileErr error
	SearchErr  map[model.SymbolID]error

	// BeforeYield, when set, runs before each reference is yielded. Tests
	// use it to cancel contexts mid-search.
	BeforeYield func(ev model.ReferenceEvent)

	mu       sync.Mutex
	searched []model.SymbolID
	yielded  map[model.SymbolID]int
}

func (m *MockProvider) Compile(ctx context.Context, cb *model.Codebase, unit model.UnitID) (Compilation, error) {
	if m.CompileErr != nil {
		return nil, m.CompileErr
	}
	ns := m.Namespaces[unit]
	if ns == nil {
		ns = &model.Namespace{}
	}
	return &mockCompilation{provider: m, unit: unit, root: ns}, nil
}

// Searched returns the symbols searched for, in call order
func (m *MockProvider) Searched() []model.SymbolID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SymbolID(nil), m.searched...)
}

// Yielded returns how many events were handed to the consumer for sym
func (m *MockProvider) Yielded(sym model.SymbolID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.yielded[sym]
}

func (m *MockProvider) record(sym model.SymbolID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, sym)
}

func (m *MockProvider) count(sym model.SymbolID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.yielded == nil {
		m.yielded = make(map[model.SymbolID]int)
	}
	m.yielded[sym]++
}

type mockCompilation struct {
	provider *MockProvider
	unit     model.UnitID
	root     *model.Namespace
}

func (c *mockCompilation) Unit() model.UnitID                { return c.unit }
func (c *mockCompilation) GlobalNamespace() *model.Namespace { return c.root }
func (c *mockCompilation) Friends() []string                 { return c.provider.FriendsOf[c.unit] }

func (c *mockCompilation) FindReferences(ctx context.Context, sym *model.Symbol, scope model.DocumentSet) iter.Seq2[model.ReferenceEvent, error] {
	m := c.provider
	return func(yield func(model.ReferenceEvent, error) bool) {
		m.record(sym.ID)
		if err := m.SearchErr[sym.ID]; err != nil {
			yield(model.ReferenceEvent{}, err)
			return
		}
		for _, ev := range m.References[sym.ID] {
			if !scope.Contains(ev.Location.Document) {
				continue
			}
			if m.BeforeYield != nil {
				m.BeforeYield(ev)
			}
			if err := ctx.Err(); err != nil {
				yield(model.ReferenceEvent{}, err)
				return
			}
			m.count(sym.ID)
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (c *mockCompilation) SyntaxAt(ctx context.Context, loc model.Location) (syntax.Node, error) {
	n, ok := c.provider.Syntax[loc]
	if !ok {
		return nil, fmt.Errorf("no syntax at %s", loc)
	}
	return n, nil
}
