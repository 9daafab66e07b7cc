package rewrite

import (
	"context"
	"errors"
	"testing"

	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

const unit model.UnitID = "Lib/Lib.csproj"

func sp(start, end int) model.Span {
	return model.Span{Start: start, End: end}
}

func pub(start int) syntax.Token {
	return syntax.Token{Text: "public", Span: sp(start, start+6)}
}

// fakeParser returns prebuilt trees keyed by document ID
type fakeParser struct {
	trees map[model.DocumentID]syntax.Node
	err   error
}

func (p *fakeParser) Parse(ctx context.Context, doc *model.Document) (syntax.Node, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.trees[doc.ID], nil
}

func symbolAt(name string, doc model.DocumentID, start int) *model.Symbol {
	return &model.Symbol{
		ID:            model.SymbolID(name),
		Name:          name,
		Accessibility: model.AccessPublic,
		Unit:          unit,
		Locations:     []model.Location{{Document: doc, Span: sp(start, start+len(name))}},
	}
}

// "public class Foo {}\npublic enum Bar { A }\n"
const twoTypes = "public class Foo {}\npublic enum Bar { A }\n"

func twoTypesTree() syntax.Node {
	return syntax.Elem(syntax.KindRoot, sp(0, len(twoTypes))).Attach(
		syntax.Elem(syntax.KindClass, sp(0, 19)).Named(sp(13, 16)).With(pub(0)),
		syntax.Elem(syntax.KindEnum, sp(20, 41)).Named(sp(32, 35)).With(pub(20)).Attach(
			syntax.Elem(syntax.KindOther, sp(38, 39)),
		),
	)
}

func codebase(docs ...*model.Document) *model.Codebase {
	u := &model.Unit{ID: unit, Name: "Lib"}
	for _, d := range docs {
		u.Documents = append(u.Documents, d.ID)
	}
	return model.NewCodebase("/ws", []*model.Unit{u}, docs)
}

func TestApply_BothDeclarationsInOneDocument(t *testing.T) {
	doc := model.NewDocument("Lib/Types.cs", unit, "/ws/Lib/Types.cs", []byte(twoTypes))
	cb := codebase(doc)
	engine := NewEngine(&fakeParser{trees: map[model.DocumentID]syntax.Node{doc.ID: twoTypesTree()}})

	next, err := engine.Apply(context.Background(), cb, []*model.Symbol{
		symbolAt("Foo", doc.ID, 13),
		symbolAt("Bar", doc.ID, 32),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got, _ := next.Document(doc.ID)
	want := "internal class Foo {}\ninternal enum Bar { A }\n"
	if string(got.Text) != want {
		t.Errorf("rewritten text = %q, want %q", got.Text, want)
	}

	// The input snapshot is untouched
	orig, _ := cb.Document(doc.ID)
	if string(orig.Text) != twoTypes {
		t.Errorf("original snapshot changed: %q", orig.Text)
	}
}

func TestApply_DuplicateLocationsProduceOneEdit(t *testing.T) {
	doc := model.NewDocument("Lib/Types.cs", unit, "/ws/Lib/Types.cs", []byte(twoTypes))
	engine := NewEngine(&fakeParser{trees: map[model.DocumentID]syntax.Node{doc.ID: twoTypesTree()}})
	foo := symbolAt("Foo", doc.ID, 13)

	next, err := engine.Apply(context.Background(), codebase(doc), []*model.Symbol{foo, foo})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	got, _ := next.Document(doc.ID)
	if want := "internal class Foo {}\npublic enum Bar { A }\n"; string(got.Text) != want {
		t.Errorf("rewritten text = %q, want %q", got.Text, want)
	}
}

func TestApply_SkipsMissingAndUnparsableDocuments(t *testing.T) {
	doc := model.NewDocument("Lib/Types.cs", unit, "/ws/Lib/Types.cs", []byte(twoTypes))
	cb := codebase(doc)

	t.Run("missing document", func(t *testing.T) {
		engine := NewEngine(&fakeParser{trees: map[model.DocumentID]syntax.Node{doc.ID: twoTypesTree()}})
		next, err := engine.Apply(context.Background(), cb, []*model.Symbol{
			symbolAt("Ghost", "Lib/Gone.cs", 13),
			symbolAt("Foo", doc.ID, 13),
		})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		got, _ := next.Document(doc.ID)
		if want := "internal class Foo {}\npublic enum Bar { A }\n"; string(got.Text) != want {
			t.Errorf("rewritten text = %q, want %q", got.Text, want)
		}
	})

	t.Run("parse failure", func(t *testing.T) {
		engine := NewEngine(&fakeParser{err: errors.New("syntax error")})
		next, err := engine.Apply(context.Background(), cb, []*model.Symbol{symbolAt("Foo", doc.ID, 13)})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		got, _ := next.Document(doc.ID)
		if string(got.Text) != twoTypes {
			t.Errorf("document should be unchanged, got %q", got.Text)
		}
	})
}

func TestApply_Cancelled(t *testing.T) {
	doc := model.NewDocument("Lib/Types.cs", unit, "/ws/Lib/Types.cs", []byte(twoTypes))
	engine := NewEngine(&fakeParser{trees: map[model.DocumentID]syntax.Node{doc.ID: twoTypesTree()}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Apply(ctx, codebase(doc), []*model.Symbol{symbolAt("Foo", doc.ID, 13)}); !errors.Is(err, context.Canceled) {
		t.Errorf("Apply() error = %v, want context.Canceled", err)
	}
}

func TestEdits(t *testing.T) {
	// internal class A {} / public delegate void D(); / public struct S {}
	root := syntax.Elem(syntax.KindRoot, sp(0, 100)).Attach(
		syntax.Elem(syntax.KindClass, sp(0, 20)).Named(sp(15, 16)).With(syntax.Token{Text: "internal", Span: sp(0, 8)}),
		syntax.Elem(syntax.KindDelegate, sp(21, 50)).Named(sp(42, 43)).With(pub(21)),
		syntax.Elem(syntax.KindStruct, sp(51, 80)).Named(sp(65, 66)).With(syntax.Token{Text: "static", Span: sp(51, 57)}, pub(58)),
	)

	edits := Edits(root, []model.Span{sp(15, 16), sp(42, 43), sp(65, 66), sp(95, 96)})

	if len(edits) != 1 {
		t.Fatalf("Edits() returned %d edits, want 1: %v", len(edits), edits)
	}
	if edits[0].Span != sp(58, 64) || edits[0].NewText != "internal" {
		t.Errorf("Edits()[0] = %+v, want internal at [58,64)", edits[0])
	}
}
