// Package exporter converts a source model into an SkpToXML document and
// reads documents back.
package exporter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/skp2xml/pkg/scene"
	"github.com/Faultbox/skp2xml/pkg/scope"
	"github.com/Faultbox/skp2xml/pkg/skpxml"
	"github.com/Faultbox/skp2xml/pkg/source"
)

// Conversion errors.
var (
	ErrCancelled = errors.New("conversion cancelled")
	ErrSource    = errors.New("source model error")
)

// Exporter runs conversions with fixed options. It holds no state between
// calls.
type Exporter struct {
	opts     Options
	logger   *zap.Logger
	progress Progress
}

// New returns an exporter. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{opts: opts, logger: logger}
}

// SetProgress installs a progress collaborator, nil removes it.
func (e *Exporter) SetProgress(p Progress) {
	e.progress = p
}

// Options returns the exporter's options.
func (e *Exporter) Options() Options {
	return e.opts
}

// Convert opens src, writes it to dst and releases the model. On any error
// or cancellation the document is discarded, so dst is either a complete
// document or untouched.
func (e *Exporter) Convert(ctx context.Context, open source.Opener, src, dst string) (stats Stats, err error) {
	log := e.logger.With(zap.String("src", src), zap.String("dst", dst))

	model, err := open.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: opening %s: %w", ErrSource, src, err)
	}
	defer func() {
		if cerr := model.Close(); cerr != nil {
			log.Warn("closing model", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("%w: closing %s: %w", ErrSource, src, cerr)
			}
		}
	}()

	file, err := skpxml.Create(dst)
	if err != nil {
		return Stats{}, err
	}
	saved := false
	defer func() {
		if !saved {
			_ = file.Close(true)
		}
	}()

	c := &conversion{
		ctx:      ctx,
		opts:     e.opts,
		logger:   log,
		progress: e.progress,
		model:    model,
		file:     file,
		resolver: scope.New(e.opts.MaterialsByLayer),
	}
	if err := c.run(); err != nil {
		log.Error("export failed", zap.Error(err))
		return c.stats, err
	}

	saved = true
	if err := file.Close(false); err != nil {
		return c.stats, fmt.Errorf("saving %s: %w", dst, err)
	}
	c.report(100, "Export Complete")
	log.Info("export complete",
		zap.Int("textures", c.stats.Textures),
		zap.Int("layers", c.stats.Layers),
		zap.Int("faces", c.stats.Faces),
		zap.Int("edges", c.stats.Edges))
	return c.stats, nil
}

// ReadBack reads the document at path. With StrictReferences set the model
// is also validated.
func (e *Exporter) ReadBack(path string) (*scene.ModelInfo, error) {
	f, err := skpxml.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close(false)

	m, err := f.ModelInfo()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if e.opts.StrictReferences {
		if err := scene.Validate(m); err != nil {
			return nil, fmt.Errorf("validating %s: %w", path, err)
		}
	}

	c := m.Counts()
	e.logger.Debug("read back",
		zap.String("path", path),
		zap.Int("layers", c.Layers),
		zap.Int("materials", c.Materials),
		zap.Int("definitions", c.Definitions),
		zap.Int("faces", c.Faces),
		zap.Int("edges", c.Edges))
	return m, nil
}
