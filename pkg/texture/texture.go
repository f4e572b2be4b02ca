// Package texture gathers the image files a model's materials refer to and
// copies them next to the exported document.
package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	"golang.org/x/text/unicode/norm"

	"github.com/Faultbox/skp2xml/pkg/scope"
	"github.com/Faultbox/skp2xml/pkg/source"
)

// ErrNotImage is returned by Sniff for files that are not a known image.
var ErrNotImage = errors.New("not an image file")

// sniffLen is the header size filetype needs for every matcher.
const sniffLen = 262

// Entry is one texture to write.
type Entry struct {
	// Source is the image path as reported by the model.
	Source string
	// Name is the file name inside the output directory.
	Name string
	// Layer is the effective layer of the element that uses the texture,
	// empty when none applies.
	Layer string
}

// Writer collects textures from a model and writes them into a directory.
// Each output file name is written once; later textures with the same base
// name are dropped. Names are compared in Unicode NFC so that composed and
// decomposed spellings of one name collide.
type Writer struct {
	logger  *zap.Logger
	entries []Entry
	names   map[string]string // NFC output name -> source
}

// NewWriter returns an empty writer. A nil logger disables logging.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		logger: logger,
		names:  make(map[string]string),
	}
}

// Entries returns the collected textures in collection order.
func (w *Writer) Entries() []Entry {
	return w.entries
}

// Len returns the number of collected textures.
func (w *Writer) Len() int {
	return len(w.entries)
}

func (w *Writer) add(path string, layer source.Layer) error {
	if path == "" {
		return nil
	}
	name := filepath.Base(path)
	key := norm.NFC.String(name)
	if prev, ok := w.names[key]; ok {
		if prev != path {
			w.logger.Warn("texture name collision, keeping first",
				zap.String("name", name),
				zap.String("kept", prev),
				zap.String("dropped", path))
		}
		return nil
	}
	e := Entry{Source: path, Name: name}
	if layer != nil {
		n, err := layer.Name()
		if err != nil {
			return err
		}
		e.Layer = n
	}
	w.names[key] = path
	w.entries = append(w.entries, e)
	return nil
}

func (w *Writer) addMaterial(m source.Material, layer source.Layer) error {
	if m == nil {
		return nil
	}
	tex, ok := m.Texture()
	if !ok {
		return nil
	}
	path, err := tex.FileName()
	if err != nil {
		return err
	}
	return w.add(path, layer)
}

// Load collects the textures of m and returns how many were found. With
// fromLayers set only the layers' own materials are considered, matching
// materials-by-layer export; otherwise every definition and the model's
// entities are walked.
func (w *Writer) Load(m source.Model, fromLayers bool) (int, error) {
	before := len(w.entries)
	if fromLayers {
		layers, err := m.Layers()
		if err != nil {
			return 0, err
		}
		for _, l := range layers {
			mat, ok := l.Material()
			if !ok {
				continue
			}
			if err := w.addMaterial(mat, l); err != nil {
				return 0, err
			}
		}
		return len(w.entries) - before, nil
	}

	r := scope.New(false)
	defs, err := m.ComponentDefinitions()
	if err != nil {
		return 0, err
	}
	for _, d := range defs {
		ents, err := d.Entities()
		if err != nil {
			return 0, err
		}
		if err := w.loadEntities(r, ents); err != nil {
			return 0, err
		}
	}
	ents, err := m.Entities()
	if err != nil {
		return 0, err
	}
	if err := w.loadEntities(r, ents); err != nil {
		return 0, err
	}
	return len(w.entries) - before, nil
}

func (w *Writer) loadEntities(r *scope.Resolver, ents source.Entities) error {
	insts, err := ents.Instances()
	if err != nil {
		return err
	}
	for _, inst := range insts {
		mat, _ := inst.Material()
		layer, _ := inst.Layer()
		if err := w.addMaterial(mat, layer); err != nil {
			return err
		}
	}

	groups, err := ents.Groups()
	if err != nil {
		return err
	}
	for _, g := range groups {
		err := r.Within(scope.GroupScope(g), func() error {
			mat, _ := g.Material()
			if err := w.addMaterial(mat, r.CurrentLayer()); err != nil {
				return err
			}
			children, err := g.Entities()
			if err != nil {
				return err
			}
			return w.loadEntities(r, children)
		})
		if err != nil {
			return err
		}
	}

	faces, err := ents.Faces()
	if err != nil {
		return err
	}
	for _, f := range faces {
		err := r.Within(scope.FaceScope(f), func() error {
			front, _ := f.FrontMaterial()
			back, _ := f.BackMaterial()
			if err := w.addMaterial(front, r.CurrentLayer()); err != nil {
				return err
			}
			return w.addMaterial(back, r.CurrentLayer())
		})
		if err != nil {
			return err
		}
	}

	images, err := ents.Images()
	if err != nil {
		return err
	}
	for _, img := range images {
		err := r.Within(scope.ImageScope(img), func() error {
			path, err := img.FileName()
			if err != nil {
				return err
			}
			return w.add(path, r.CurrentLayer())
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteAll copies every collected texture into dir and returns how many
// files were written. Files that are not images are skipped with a warning.
func (w *Writer) WriteAll(dir string) (int, error) {
	written := 0
	for _, e := range w.entries {
		kind, err := Sniff(e.Source)
		if errors.Is(err, ErrNotImage) {
			w.logger.Warn("skipping texture", zap.String("path", e.Source), zap.Error(err))
			continue
		}
		if err != nil {
			return written, err
		}
		dst := filepath.Join(dir, e.Name)
		if err := copyFile(e.Source, dst); err != nil {
			return written, err
		}
		fields := []zap.Field{
			zap.String("path", dst),
			zap.String("type", kind),
			zap.String("layer", e.Layer),
		}
		if cfg, err := Dimensions(dst); err == nil {
			fields = append(fields, zap.Int("width", cfg.Width), zap.Int("height", cfg.Height))
		}
		w.logger.Debug("wrote texture", fields...)
		written++
	}
	return written, nil
}

// Sniff reads the header of path and returns the image type's extension.
func Sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading texture %s: %w", path, err)
	}
	head = head[:n]

	if filetype.IsImage(head) {
		kind, err := filetype.Match(head)
		if err != nil {
			return "", fmt.Errorf("sniffing %s: %w", path, err)
		}
		return kind.Extension, nil
	}
	if isTGA(head) {
		return "tga", nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, path)
}

// Dimensions decodes the image header at path. PNG, JPEG, GIF, BMP and
// TIFF are supported.
func Dimensions(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg, nil
}

// isTGA checks a true-color TGA header. TGA has no magic number so the
// image type and pixel depth fields are the best available signal.
func isTGA(head []byte) bool {
	if len(head) < 18 {
		return false
	}
	colorMapType := head[1]
	imageType := head[2]
	bpp := head[16]
	if colorMapType != 0 {
		return false
	}
	if imageType != tgaUncompressed && imageType != tgaRLE {
		return false
	}
	return bpp == 24 || bpp == 32
}

// TGA image types.
const (
	tgaUncompressed = 2
	tgaRLE          = 10
)

func copyFile(src, dst string) error {
	if same, err := samePath(src, dst); err == nil && same {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

func samePath(a, b string) (bool, error) {
	sa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(sa, sb), nil
}
