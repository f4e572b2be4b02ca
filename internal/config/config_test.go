package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Export.Materials || !cfg.Export.Faces || !cfg.Export.Edges || !cfg.Export.Layers {
		t.Errorf("expected all export sections enabled, got %+v", cfg.Export)
	}
	if cfg.Export.MaterialsByLayer {
		t.Error("expected materials_by_layer to be false by default")
	}
	if cfg.Export.StrictReferences {
		t.Error("expected strict_references to be false by default")
	}
	if cfg.Output.Path != "tmp/out.xml" {
		t.Errorf("expected output tmp/out.xml, got %s", cfg.Output.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.File != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.File)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected debounce 500ms, got %v", cfg.Watch.Debounce)
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Export.Edges = false
	cfg.Export.MaterialsByLayer = true

	opts := cfg.Options()
	if opts.ExportEdges {
		t.Error("expected ExportEdges false")
	}
	if !opts.MaterialsByLayer {
		t.Error("expected MaterialsByLayer true")
	}
	if !opts.ExportFaces {
		t.Error("expected ExportFaces true")
	}
}

func TestLoggerOptions(t *testing.T) {
	cfg := Default()
	if opts := cfg.LoggerOptions(); opts.File.Path != "" {
		t.Errorf("expected no file core, got %+v", opts.File)
	}

	cfg.Logging.File = "/var/log/skp2xml.log"
	opts := cfg.LoggerOptions()
	if opts.File.Path != "/var/log/skp2xml.log" {
		t.Errorf("expected file path, got %s", opts.File.Path)
	}
	if opts.File.MaxSizeMB != 50 {
		t.Errorf("expected MaxSizeMB 50, got %d", opts.File.MaxSizeMB)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  materials: false
  materials_by_layer: true
  strict_references: true

output:
  path: "build/model.xml"

logging:
  level: "debug"
  file: "skp2xml.log"

watch:
  debounce: 2s
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Export.Materials {
		t.Error("expected materials to be false")
	}
	if !cfg.Export.Faces {
		t.Error("expected faces to keep its default")
	}
	if !cfg.Export.MaterialsByLayer {
		t.Error("expected materials_by_layer to be true")
	}
	if !cfg.Export.StrictReferences {
		t.Error("expected strict_references to be true")
	}
	if cfg.Output.Path != "build/model.xml" {
		t.Errorf("expected output build/model.xml, got %s", cfg.Output.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.File != "skp2xml.log" {
		t.Errorf("expected log file 'skp2xml.log', got %s", cfg.Logging.File)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
export:
  faces: not a bool
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile("skp2xml.yaml", []byte("output:\n  path: a.xml\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if path := findConfigFile(); path != "./skp2xml.yaml" {
		t.Errorf("expected ./skp2xml.yaml, got %s", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "no flags keeps defaults",
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Path != DefaultOutput {
					t.Errorf("expected default output, got %s", cfg.Output.Path)
				}
				if !cfg.Export.Materials {
					t.Error("expected materials to stay enabled")
				}
			},
		},
		{
			name: "debug flag",
			args: []string{"--debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "output flag",
			args: []string{"-o", "out/model.xml"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Path != "out/model.xml" {
					t.Errorf("expected output out/model.xml, got %s", cfg.Output.Path)
				}
			},
		},
		{
			name: "section flags",
			args: []string{"--no-materials", "--no-edges", "--materials-by-layer", "--strict"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Materials || cfg.Export.Edges {
					t.Errorf("expected materials and edges disabled, got %+v", cfg.Export)
				}
				if !cfg.Export.Faces || !cfg.Export.Layers {
					t.Errorf("expected faces and layers enabled, got %+v", cfg.Export)
				}
				if !cfg.Export.MaterialsByLayer || !cfg.Export.StrictReferences {
					t.Errorf("expected by-layer and strict, got %+v", cfg.Export)
				}
			},
		},
		{
			name: "explicit false re-enables",
			args: []string{"--no-faces=false"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Export.Faces {
					t.Error("expected faces enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f := BindFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
output:
  path: "from-file.xml"
logging:
  level: "warn"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", configPath, "--output", "from-flag.xml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Output.Path != "from-flag.xml" {
		t.Errorf("expected flag to win, got %s", cfg.Output.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected file to override default, got %s", cfg.Logging.Level)
	}
	if !cfg.Export.Layers {
		t.Error("expected default to survive")
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Load(f); err == nil {
		t.Error("expected error for explicit missing config")
	}

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	f = BindFlags(fs)
	if err := fs.Parse([]string{"-o", "~/models/out.xml", "--log-file", "~/skp2xml.log"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(home, "models", "out.xml"); cfg.Output.Path != want {
		t.Errorf("expected %s, got %s", want, cfg.Output.Path)
	}
	if want := filepath.Join(home, "skp2xml.log"); cfg.Logging.File != want {
		t.Errorf("expected %s, got %s", want, cfg.Logging.File)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Export.MaterialsByLayer = true
	cfg.Watch.Debounce = time.Second

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("materials_by_layer: true")) {
		t.Errorf("encoded config missing field:\n%s", buf.String())
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}
