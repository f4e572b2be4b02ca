package texture

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/skp2xml/pkg/source/memory"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeTGA writes a 1x1 uncompressed 24-bit TGA.
func writeTGA(t *testing.T, path string) {
	t.Helper()
	head := make([]byte, 18)
	head[2] = tgaUncompressed
	head[12], head[14] = 1, 1
	head[16] = 24
	require.NoError(t, os.WriteFile(path, append(head, 0, 0, 255), 0o644))
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	tgaPath := filepath.Join(dir, "b.tga")
	txtPath := filepath.Join(dir, "c.jpg")
	writePNG(t, pngPath)
	writeTGA(t, tgaPath)
	require.NoError(t, os.WriteFile(txtPath, []byte("not really a jpeg"), 0o644))

	kind, err := Sniff(pngPath)
	require.NoError(t, err)
	assert.Equal(t, "png", kind)

	kind, err = Sniff(tgaPath)
	require.NoError(t, err)
	assert.Equal(t, "tga", kind)

	_, err = Sniff(txtPath)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Sniff(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotImage)
}

func sceneModel(dir string) *memory.Model {
	brick := &memory.Material{Label: "Brick", Tex: &memory.Texture{Path: filepath.Join(dir, "brick.png")}}
	wood := &memory.Material{Label: "Wood", Tex: &memory.Texture{Path: filepath.Join(dir, "wood.tga")}}
	plain := &memory.Material{Label: "Plain"}
	walls := &memory.Layer{Label: "Walls", Default: wood}

	return &memory.Model{
		AllLayers:    []*memory.Layer{walls, {Label: "Empty"}},
		AllMaterials: []*memory.Material{brick, wood, plain},
		AllDefinitions: []*memory.ComponentDefinition{{
			Label: "Box",
			Children: &memory.Entities{
				FaceList: []*memory.Face{{Front: brick, Back: plain}},
			},
		}},
		Geometry: &memory.Entities{
			GroupList: []*memory.Group{{
				OnLayer: walls,
				Paint:   wood,
				Children: &memory.Entities{
					ImageList: []*memory.Image{{Path: filepath.Join(dir, "photo.png")}},
				},
			}},
			InstanceList: []*memory.ComponentInstance{{Paint: brick}},
		},
	}
}

func TestLoadEntities(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(nil)
	n, err := w.Load(sceneModel(dir), false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	names := make(map[string]string)
	for _, e := range w.Entries() {
		names[e.Name] = e.Layer
	}
	assert.Equal(t, map[string]string{
		"brick.png": "",
		"wood.tga":  "Walls",
		"photo.png": "Walls",
	}, names)
}

func TestLoadFromLayers(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(nil)
	n, err := w.Load(sceneModel(dir), true)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, "wood.tga", w.Entries()[0].Name)
	assert.Equal(t, "Walls", w.Entries()[0].Layer)
}

func TestNameCollision(t *testing.T) {
	w := NewWriter(nil)
	require.NoError(t, w.add("/a/tex.png", nil))
	require.NoError(t, w.add("/b/tex.png", nil))
	require.NoError(t, w.add("/a/tex.png", nil))
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, "/a/tex.png", w.Entries()[0].Source)
}

func TestNameCollisionNormalized(t *testing.T) {
	w := NewWriter(nil)
	require.NoError(t, w.add("/a/caf\u00e9.png", nil))
	require.NoError(t, w.add("/b/cafe\u0301.png", nil))
	assert.Equal(t, 1, w.Len())
}

func TestDimensions(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	writePNG(t, pngPath)

	cfg, err := Dimensions(pngPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 2, cfg.Height)

	bmpPath := filepath.Join(dir, "b.bmp")
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 5))))
	require.NoError(t, os.WriteFile(bmpPath, buf.Bytes(), 0o644))

	cfg, err = Dimensions(bmpPath)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	_, err = Dimensions(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestWriteAll(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writePNG(t, filepath.Join(src, "brick.png"))
	writeTGA(t, filepath.Join(src, "wood.tga"))
	require.NoError(t, os.WriteFile(filepath.Join(src, "photo.png"), []byte("garbage"), 0o644))

	w := NewWriter(nil)
	_, err := w.Load(sceneModel(src), false)
	require.NoError(t, err)

	n, err := w.WriteAll(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(dst, "brick.png"))
	assert.FileExists(t, filepath.Join(dst, "wood.tga"))
	assert.NoFileExists(t, filepath.Join(dst, "photo.png"))
}

func TestWriteAllMissingSource(t *testing.T) {
	w := NewWriter(nil)
	require.NoError(t, w.add(filepath.Join(t.TempDir(), "gone.png"), nil))
	_, err := w.WriteAll(t.TempDir())
	assert.Error(t, err)
}

func TestWriteAllSameDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "brick.png"))
	w := NewWriter(nil)
	require.NoError(t, w.add(filepath.Join(dir, "brick.png"), nil))
	n, err := w.WriteAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kind, err := Sniff(filepath.Join(dir, "brick.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", kind)
}
