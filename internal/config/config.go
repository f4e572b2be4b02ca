// Package config handles skp2xml configuration loading and management.
package config

import (
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/Faultbox/skp2xml/internal/logger"
	"github.com/Faultbox/skp2xml/pkg/exporter"
)

// DefaultOutput is where a conversion is written unless configured.
const DefaultOutput = "tmp/out.xml"

// Config holds all settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ExportConfig mirrors the exporter options.
type ExportConfig struct {
	Materials        bool `yaml:"materials"`
	Faces            bool `yaml:"faces"`
	Edges            bool `yaml:"edges"`
	Layers           bool `yaml:"layers"`
	MaterialsByLayer bool `yaml:"materials_by_layer"`
	StrictReferences bool `yaml:"strict_references"`
}

// OutputConfig holds output paths.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	def := exporter.DefaultOptions()
	file := logger.DefaultFileConfig("")
	return &Config{
		Export: ExportConfig{
			Materials:        def.ExportMaterials,
			Faces:            def.ExportFaces,
			Edges:            def.ExportEdges,
			Layers:           def.ExportLayers,
			MaterialsByLayer: def.MaterialsByLayer,
			StrictReferences: def.StrictReferences,
		},
		Output: OutputConfig{
			Path: DefaultOutput,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
			Compress:   file.Compress,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Options returns the exporter options.
func (c *Config) Options() exporter.Options {
	return exporter.Options{
		ExportMaterials:  c.Export.Materials,
		ExportFaces:      c.Export.Faces,
		ExportEdges:      c.Export.Edges,
		ExportLayers:     c.Export.Layers,
		MaterialsByLayer: c.Export.MaterialsByLayer,
		StrictReferences: c.Export.StrictReferences,
	}
}

// LoggerOptions returns the file part of the logger options. The caller
// picks the console writer.
func (c *Config) LoggerOptions() logger.Options {
	opts := logger.Options{Level: c.Logging.Level}
	if c.Logging.File != "" {
		opts.File = logger.FileConfig{
			Path:       c.Logging.File,
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		}
	}
	return opts
}

// expandPaths resolves a leading ~ in user supplied paths.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Output.Path, &c.Logging.File} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}
