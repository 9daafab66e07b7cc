package analysis

import (
	"slices"
	"testing"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

func TestPublicTypes(t *testing.T) {
	sym := func(name string, unit model.UnitID, access model.Accessibility) *model.Symbol {
		return &model.Symbol{ID: model.SymbolID(name), Name: name, Unit: unit, Accessibility: access}
	}

	root := &model.Namespace{
		Types: []*model.Symbol{sym("Global", libUnit, model.AccessPublic)},
		Namespaces: []*model.Namespace{
			{
				Name: "Acme",
				Types: []*model.Symbol{
					sym("Widget", libUnit, model.AccessPublic),
					sym("Helper", libUnit, model.AccessInternal),
				},
				Namespaces: []*model.Namespace{
					{Name: "Acme.Deep", Types: []*model.Symbol{sym("Gear", libUnit, model.AccessPublic)}},
				},
			},
			{
				Name:  "System",
				Types: []*model.Symbol{sym("String", "mscorlib", model.AccessPublic)},
			},
			{
				Name:  "Zeta",
				Types: []*model.Symbol{sym("Last", libUnit, model.AccessPublic)},
			},
		},
	}

	var got []string
	for s := range PublicTypes(root, libUnit) {
		got = append(got, s.Name)
	}

	want := []string{"Global", "Widget", "Gear", "Last"}
	if !slices.Equal(got, want) {
		t.Errorf("PublicTypes() = %v, want %v", got, want)
	}
}

func TestPublicTypesEarlyStop(t *testing.T) {
	root := &model.Namespace{Types: []*model.Symbol{
		{ID: "a", Name: "A", Unit: libUnit, Accessibility: model.AccessPublic},
		{ID: "b", Name: "B", Unit: libUnit, Accessibility: model.AccessPublic},
	}}

	count := 0
	for range PublicTypes(root, libUnit) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("iteration continued after break: %d", count)
	}

	for range PublicTypes(nil, libUnit) {
		t.Error("nil namespace should yield nothing")
	}
}
