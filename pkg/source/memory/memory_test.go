package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
	"github.com/Faultbox/skp2xml/pkg/source"
)

const boxManifest = `
version: "21.0.339"
layers:
  - name: Default
  - name: Walls
    hidden: true
    material: {name: WallPaint, color: "#00ff00"}
materials:
  - name: Red
    color: "#ff0000"
    alpha: 0.5
  - name: Brick
    texture: {path: brick.jpg, scale_s: 2, scale_t: 3}
definitions:
  - name: Box
    entities:
      faces:
        - layer: Default
          front: Red
          outer: [[0,0,0],[1,0,0],[1,1,0],[0,1,0]]
      edges:
        - color: "#000000"
          start: [0,0,0]
          end: [1,0,0]
        - start: [0,0,0]
          end: [0,1,0]
          bounding: true
entities:
  instances:
    - definition: Box
      layer: Walls
      translate: [10, 0, 0]
  groups:
    - material: Brick
      scale: [2, 2, 2]
      entities:
        curves:
          - edges:
              - {start: [0,0,0], end: [1,1,1]}
  images:
    - layer: Default
      path: photo.png
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(boxManifest))
	require.NoError(t, err)

	major, minor, build, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, []int{21, 0, 339}, []int{major, minor, build})

	layers, err := m.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 2)
	visible, _ := layers[1].Visible()
	assert.False(t, visible)
	lm, ok := layers[1].Material()
	require.True(t, ok)
	c, ok := lm.Color()
	require.True(t, ok)
	assert.Equal(t, scene.RGB(0, 255, 0), c)
	_, ok = layers[0].Material()
	assert.False(t, ok)

	mats, err := m.Materials()
	require.NoError(t, err)
	require.Len(t, mats, 2)
	alpha, has, err := mats[0].Opacity()
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, 0.5, alpha)
	typ, _ := mats[1].Type()
	assert.Equal(t, source.MaterialTextured, typ)
	tex, ok := mats[1].Texture()
	require.True(t, ok)
	s, tt, _ := tex.Scale()
	assert.Equal(t, 2.0, s)
	assert.Equal(t, 3.0, tt)

	ents, err := m.Entities()
	require.NoError(t, err)
	insts, _ := ents.Instances()
	require.Len(t, insts, 1)
	xf, _ := insts[0].Transform()
	assert.Equal(t, math.Translate(10, 0, 0), xf)
	def, err := insts[0].Definition()
	require.NoError(t, err)
	name, _ := def.Name()
	assert.Equal(t, "Box", name)

	groups, _ := ents.Groups()
	require.Len(t, groups, 1)
	gx, _ := groups[0].Transform()
	assert.Equal(t, math.Scale(2, 2, 2), gx)
}

func TestStandaloneEdges(t *testing.T) {
	m, err := ParseManifest([]byte(boxManifest))
	require.NoError(t, err)
	defs, _ := m.ComponentDefinitions()
	ents, _ := defs[0].Entities()

	all, _ := ents.Edges(false)
	standalone, _ := ents.Edges(true)
	assert.Len(t, all, 2)
	assert.Len(t, standalone, 1)
}

func TestFaceMesh(t *testing.T) {
	f := &Face{Outer: []math.Point3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}}
	mesh, err := f.Mesh()
	require.NoError(t, err)
	assert.Equal(t, 2, mesh.TriangleCount())

	f.Holes = [][]math.Point3{{{X: 0.2}, {X: 0.4}, {X: 0.4, Y: 0.4}}}
	_, err = f.Mesh()
	assert.ErrorIs(t, err, ErrNeedsMesh)

	_, err = (&Face{Outer: []math.Point3{{}, {X: 1}}}).Mesh()
	assert.ErrorIs(t, err, ErrDegenerateFace)

	bad := &Face{Tessellation: &source.Mesh{Vertices: []math.Point3{{}}, Indices: []int{0, 0, 1}}}
	_, err = bad.Mesh()
	assert.ErrorIs(t, err, source.ErrMeshIndex)
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown material", "entities: {faces: [{front: Nope, outer: [[0,0,0],[1,0,0],[0,1,0]]}]}", ErrUnknownMaterial},
		{"unknown layer", "entities: {edges: [{layer: Nope, start: [0,0,0], end: [1,0,0]}]}", ErrUnknownLayer},
		{"unknown definition", "entities: {instances: [{definition: Nope}]}", ErrUnknownDefinition},
		{"short transform", "definitions: [{name: A}]\nentities: {instances: [{definition: A, transform: [1,2,3]}]}", ErrBadTransform},
		{"short point", "entities: {edges: [{start: [0,0], end: [1,0,0]}]}", ErrBadPoint},
		{"bad uv", "entities: {faces: [{outer: [[0,0,0],[1,0,0],[0,1,0]], front_uv: [[1]]}]}", ErrBadUV},
		{"bad color", "materials: [{name: A, color: red}]", scene.ErrInvalidColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseManifest([]byte("version: banana"))
	assert.Error(t, err)
}

func TestOpener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(boxManifest), 0o644))

	model, err := Opener().Open(path)
	require.NoError(t, err)
	defer model.Close()

	mats, _ := model.Materials()
	tex, ok := mats[1].Texture()
	require.True(t, ok)
	name, _ := tex.FileName()
	assert.Equal(t, filepath.Join(dir, "brick.jpg"), name)

	_, err = Opener().Open(filepath.Join(dir, "scene.skp"))
	assert.ErrorIs(t, err, source.ErrUnsupported)
}

func TestTexturePathHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	manifest := "materials:\n  - name: Brick\n    texture: {path: ~/tex/brick.jpg}\n"
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	model, err := LoadManifest(path)
	require.NoError(t, err)
	mats, _ := model.Materials()
	tex, ok := mats[0].Texture()
	require.True(t, ok)
	name, _ := tex.FileName()
	assert.Equal(t, filepath.Join(home, "tex", "brick.jpg"), name)
}

func TestClose(t *testing.T) {
	m := &Model{}
	require.NoError(t, m.Close())
	assert.True(t, m.Closed)
	_, _, _, err := m.Version()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Entities()
	assert.ErrorIs(t, err, ErrClosed)
}
