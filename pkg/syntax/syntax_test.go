package syntax

import (
	"testing"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

func sp(start, end int) model.Span {
	return model.Span{Start: start, End: end}
}

// root[0,100) > class[10,90) > method[20,60) > block[40,60) > identifier[45,48)
func buildTree() (*Element, *Element, *Element, *Element) {
	ident := Elem(KindIdentifier, sp(45, 48))
	block := Elem(KindBlock, sp(40, 60)).Attach(ident)
	method := Elem(KindMethod, sp(20, 60)).Named(sp(30, 33)).
		With(Token{Text: "public", Span: sp(20, 26)}).
		Attach(block)
	class := Elem(KindClass, sp(10, 90)).Named(sp(16, 19)).Attach(method)
	root := Elem(KindRoot, sp(0, 100)).Attach(class)
	return root, class, method, ident
}

func TestAncestors(t *testing.T) {
	_, _, _, ident := buildTree()

	var kinds []Kind
	for n := range Ancestors(ident) {
		kinds = append(kinds, n.Kind())
	}

	want := []Kind{KindIdentifier, KindBlock, KindMethod, KindClass, KindRoot}
	if len(kinds) != len(want) {
		t.Fatalf("Ancestors() visited %d nodes, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Ancestors()[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestWalkPreOrder(t *testing.T) {
	root, _, _, _ := buildTree()

	var kinds []Kind
	for n := range Walk(root) {
		kinds = append(kinds, n.Kind())
	}

	want := []Kind{KindRoot, KindClass, KindMethod, KindBlock, KindIdentifier}
	for i := range want {
		if i >= len(kinds) || kinds[i] != want[i] {
			t.Fatalf("Walk() = %v, want %v", kinds, want)
		}
	}
}

func TestInnermostAndEnclosingDeclaration(t *testing.T) {
	root, class, _, _ := buildTree()

	if got := Innermost(root, sp(46, 47)); got.Kind() != KindIdentifier {
		t.Errorf("Innermost() = %v, want identifier", got.Kind())
	}
	if got := Innermost(root, sp(200, 201)); got != nil {
		t.Errorf("Innermost() outside root = %v, want nil", got)
	}
	if got := EnclosingDeclaration(root, sp(46, 47)); got != Node(class) {
		t.Errorf("EnclosingDeclaration() = %v, want the class", got)
	}
}

func TestModifiers(t *testing.T) {
	_, class, method, _ := buildTree()

	if !IsPublic(method) {
		t.Error("IsPublic(method) = false, want true")
	}
	if IsPublic(class) {
		t.Error("IsPublic(class) = true, want false")
	}
	tok, ok := Modifier(method, "public")
	if !ok || tok.Span != sp(20, 26) {
		t.Errorf("Modifier() = %v, %v, want public at [20,26)", tok, ok)
	}
}

func TestEquivalent(t *testing.T) {
	a := Elem(KindClass, sp(0, 10)).Named(sp(6, 9))
	b := Elem(KindClass, sp(0, 10)).Named(sp(6, 9))
	c := Elem(KindStruct, sp(0, 10)).Named(sp(6, 9))

	if !Equivalent(a, b) {
		t.Error("Equivalent(a, b) = false, want true")
	}
	if Equivalent(a, c) {
		t.Error("Equivalent(a, c) = true, want false")
	}
	if Equivalent(a, nil) {
		t.Error("Equivalent(a, nil) = true, want false")
	}
}
