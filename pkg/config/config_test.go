package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("workspace", ".", "")
	f.String("unit", "", "")
	f.Bool("fix", false, "")
	f.Int("port", 8080, "")
	f.CountP("verbose", "v", "")
	return f
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil, filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Workspace != "." || cfg.Port != 8080 || cfg.Scope != "transitive" || !cfg.Progress {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Fix || cfg.WebMode || cfg.Watch || cfg.JSONLogs {
		t.Errorf("boolean modes should default to off: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "encap-analyzer.toml")
	content := "workspace = \"/from/file\"\nport = 7000\nscope = \"direct\"\nunit = \"FileUnit\"\n"
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ENCAP_ANALYZER_PORT", "9090")
	t.Setenv("ENCAP_ANALYZER_JSON_LOGS", "true")

	f := newFlagSet()
	if err := f.Parse([]string{"--unit", "Acme.Lib", "--fix", "-vv"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(f, configFile)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file overrides default", cfg.Workspace, "/from/file"},
		{"file scope", cfg.Scope, "direct"},
		{"env overrides file", cfg.Port, 9090},
		{"env with dash key", cfg.JSONLogs, true},
		{"flag overrides file", cfg.Unit, "Acme.Lib"},
		{"flag bool", cfg.Fix, true},
		{"flag count", cfg.VerboseCnt, 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
