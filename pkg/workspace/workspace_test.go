package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

const libProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <AssemblyName>Acme.Lib</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <InternalsVisibleTo Include="Acme.Lib.Tests" />
  </ItemGroup>
  <ItemGroup>
    <Compile Remove="Legacy/**" />
  </ItemGroup>
</Project>
`

const appProject = `<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <ProjectReference Include="..\Lib\Lib.csproj" />
  </ItemGroup>
</Project>
`

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestParseProject(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		want    Project
		wantErr bool
	}{
		{
			name: "library",
			xml:  libProject,
			want: Project{AssemblyName: "Acme.Lib", Friends: []string{"Acme.Lib.Tests"}, Removed: []string{"Legacy/**"}},
		},
		{
			name: "windows reference path",
			xml:  appProject,
			want: Project{References: []string{"../Lib/Lib.csproj"}},
		},
		{
			name: "several remove patterns",
			xml:  `<Project><ItemGroup><Compile Remove="**\*.g.cs; Legacy\**" /></ItemGroup></Project>`,
			want: Project{Removed: []string{"**/*.g.cs", "Legacy/**"}},
		},
		{
			name:    "malformed",
			xml:     `<Project><ItemGroup>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProject([]byte(tt.xml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.AssemblyName != tt.want.AssemblyName ||
				!slices.Equal(got.References, tt.want.References) ||
				!slices.Equal(got.Friends, tt.want.Friends) ||
				!slices.Equal(got.Removed, tt.want.Removed) {
				t.Errorf("ParseProject() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsRemoved(t *testing.T) {
	p := &Project{Removed: []string{"Legacy/**", "Generated/*.g.cs", "Old.cs"}}
	tests := map[string]bool{
		"Legacy/Foo.cs":          true,
		"Legacy/Deep/Bar.cs":     true,
		"LegacyNot/Foo.cs":       false,
		"Generated/Api.g.cs":     true,
		"Generated/Api.cs":       false,
		"Old.cs":                 true,
		"Models/Old.cs":          false,
		"Generated/Sub/Api.g.cs": false,
	}
	for rel, want := range tests {
		if got := p.IsRemoved(rel); got != want {
			t.Errorf("IsRemoved(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestIsRemovedRecursiveGlobs(t *testing.T) {
	tests := []struct {
		pattern string
		rel     string
		want    bool
	}{
		{"**/*.g.cs", "Foo.g.cs", true},
		{"**/*.g.cs", "a/b/Foo.g.cs", true},
		{"**/*.g.cs", "a/b/Foo.cs", false},
		{"Gen/**/*.cs", "Gen/Api.cs", true},
		{"Gen/**/*.cs", "Gen/v1/deep/Api.cs", true},
		{"Gen/**/*.cs", "Other/Gen/Api.cs", false},
		{"obj/**", "obj/Debug/net8.0/AssemblyInfo.cs", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.rel, func(t *testing.T) {
			p := &Project{Removed: []string{tt.pattern}}
			if got := p.IsRemoved(tt.rel); got != tt.want {
				t.Errorf("IsRemoved(%q) with %q = %v, want %v", tt.rel, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Lib/Lib.csproj":       libProject,
		"Lib/Foo.cs":           "public class Foo {}",
		"Lib/Legacy/Old.cs":    "public class Old {}",
		"Lib/obj/Generated.cs": "class Generated {}",
		"App/App.csproj":       appProject,
		"App/Program.cs":       "class Program {}",
	})

	cb, err := Load(context.Background(), root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	units := cb.Units()
	if len(units) != 2 {
		t.Fatalf("Load() found %d units, want 2", len(units))
	}

	lib, ok := cb.Unit("Lib/Lib.csproj")
	if !ok {
		t.Fatal("Lib/Lib.csproj not loaded")
	}
	if lib.Name != "Acme.Lib" {
		t.Errorf("Lib name = %q, want Acme.Lib", lib.Name)
	}
	if !slices.Equal(lib.Documents, []model.DocumentID{"Lib/Foo.cs"}) {
		t.Errorf("Lib documents = %v, want [Lib/Foo.cs]", lib.Documents)
	}
	if !slices.Equal(lib.Friends, []string{"Acme.Lib.Tests"}) {
		t.Errorf("Lib friends = %v", lib.Friends)
	}

	app, _ := cb.Unit("App/App.csproj")
	if app.Name != "App" {
		t.Errorf("App name = %q, want the project file name", app.Name)
	}
	if !slices.Equal(app.References, []model.UnitID{"Lib/Lib.csproj"}) {
		t.Errorf("App references = %v, want [Lib/Lib.csproj]", app.References)
	}

	doc, ok := cb.Document("App/Program.cs")
	if !ok || string(doc.Text) != "class Program {}" || doc.Unit != app.ID {
		t.Errorf("App/Program.cs = %+v", doc)
	}
}

func TestLoadEmptyWorkspace(t *testing.T) {
	if _, err := Load(context.Background(), t.TempDir()); err == nil {
		t.Error("Load() of a workspace without projects should fail")
	}
}

func TestSave(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Lib/Lib.csproj": libProject,
		"Lib/Foo.cs":     "public class Foo {}",
		"Lib/Bar.cs":     "public class Bar {}",
	})
	cb, err := Load(context.Background(), root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	foo, _ := cb.Document("Lib/Foo.cs")
	next := cb.WithDocuments(foo.WithText([]byte("internal class Foo {}")))

	written, err := Save(next, cb)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !slices.Equal(written, []model.DocumentID{"Lib/Foo.cs"}) {
		t.Errorf("Save() wrote %v, want only Lib/Foo.cs", written)
	}

	data, err := os.ReadFile(filepath.Join(root, "Lib", "Foo.cs"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "internal class Foo {}" {
		t.Errorf("Foo.cs on disk = %q", data)
	}
}

func TestFindUnit(t *testing.T) {
	cb := model.NewCodebase("/ws", []*model.Unit{
		{ID: "Lib/Lib.csproj", Name: "Acme.Lib", Path: "/ws/Lib/Lib.csproj"},
		{ID: "App/App.csproj", Name: "App", Path: "/ws/App/App.csproj"},
	}, nil)

	tests := []struct {
		query string
		want  model.UnitID
	}{
		{"Acme.Lib", "Lib/Lib.csproj"},
		{"acme.lib", "Lib/Lib.csproj"},
		{"App/App.csproj", "App/App.csproj"},
		{"/ws/App/App.csproj", "App/App.csproj"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			u, err := FindUnit(cb, tt.query)
			if err != nil {
				t.Fatalf("FindUnit(%q) error = %v", tt.query, err)
			}
			if u.ID != tt.want {
				t.Errorf("FindUnit(%q) = %s, want %s", tt.query, u.ID, tt.want)
			}
		})
	}

	if _, err := FindUnit(cb, "Missing"); !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("FindUnit(Missing) error = %v, want ErrUnitNotFound", err)
	}
}
