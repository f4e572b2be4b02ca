package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command-line overrides. Only flags the user actually set
// override the file.
type Flags struct {
	fs *pflag.FlagSet

	config           string
	output           string
	debug            bool
	logLevel         string
	logFile          string
	noMaterials      bool
	noFaces          bool
	noEdges          bool
	noLayers         bool
	materialsByLayer bool
	strict           bool
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.config, "config", "c", "", "path to config file")
	fs.StringVarP(&f.output, "output", "o", "", "output document path (default "+DefaultOutput+")")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "also log to this rotating file")
	fs.BoolVar(&f.noMaterials, "no-materials", false, "skip materials, textures and edge colors")
	fs.BoolVar(&f.noFaces, "no-faces", false, "skip faces")
	fs.BoolVar(&f.noEdges, "no-edges", false, "skip standalone edges and curves")
	fs.BoolVar(&f.noLayers, "no-layers", false, "skip layers")
	fs.BoolVar(&f.materialsByLayer, "materials-by-layer", false, "use each element's layer material")
	fs.BoolVar(&f.strict, "strict", false, "reject documents with dangling references when reading")
	return f
}

// ConfigPath returns the explicit config path if provided via --config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.config
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.changed("output") {
		cfg.Output.Path = f.output
	}
	if f.changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.changed("log-file") {
		cfg.Logging.File = f.logFile
	}
	if f.changed("no-materials") {
		cfg.Export.Materials = !f.noMaterials
	}
	if f.changed("no-faces") {
		cfg.Export.Faces = !f.noFaces
	}
	if f.changed("no-edges") {
		cfg.Export.Edges = !f.noEdges
	}
	if f.changed("no-layers") {
		cfg.Export.Layers = !f.noLayers
	}
	if f.changed("materials-by-layer") {
		cfg.Export.MaterialsByLayer = f.materialsByLayer
	}
	if f.changed("strict") {
		cfg.Export.StrictReferences = f.strict
	}
}
