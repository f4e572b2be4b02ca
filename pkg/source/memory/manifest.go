package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
	"github.com/Faultbox/skp2xml/pkg/source"
)

// Manifest errors.
var (
	ErrUnknownMaterial   = errors.New("unknown material")
	ErrUnknownLayer      = errors.New("unknown layer")
	ErrUnknownDefinition = errors.New("unknown component definition")
	ErrBadTransform      = errors.New("transform needs 16 values")
	ErrBadPoint          = errors.New("point needs 3 values")
	ErrBadUV             = errors.New("texture coordinate needs 2 values")
)

// Manifest is the YAML description of a scene.
//
//	version: "21.0.339"
//	layers:
//	  - name: Default
//	    material: {name: LayerRed, color: "#ff0000"}
//	materials:
//	  - name: Red
//	    color: "#ff0000"
//	    alpha: 0.5
//	definitions:
//	  - name: Box
//	    entities: {faces: [...]}
//	entities:
//	  groups: [...]
type Manifest struct {
	Version     string           `yaml:"version"`
	Layers      []LayerSpec      `yaml:"layers"`
	Materials   []MaterialSpec   `yaml:"materials"`
	Definitions []DefinitionSpec `yaml:"definitions"`
	Entities    EntitiesSpec     `yaml:"entities"`
}

// LayerSpec describes a layer.
type LayerSpec struct {
	Name     string        `yaml:"name"`
	Hidden   bool          `yaml:"hidden"`
	Material *MaterialSpec `yaml:"material"`
}

// MaterialSpec describes a material.
type MaterialSpec struct {
	Name    string       `yaml:"name"`
	Color   string       `yaml:"color"`
	Alpha   *float64     `yaml:"alpha"`
	Texture *TextureSpec `yaml:"texture"`
}

// TextureSpec describes a texture image.
type TextureSpec struct {
	Path   string  `yaml:"path"`
	ScaleS float64 `yaml:"scale_s"`
	ScaleT float64 `yaml:"scale_t"`
}

// DefinitionSpec describes a component definition.
type DefinitionSpec struct {
	Name     string       `yaml:"name"`
	Entities EntitiesSpec `yaml:"entities"`
}

// EntitiesSpec describes one hierarchy level.
type EntitiesSpec struct {
	Instances []InstanceSpec `yaml:"instances"`
	Groups    []GroupSpec    `yaml:"groups"`
	Faces     []FaceSpec     `yaml:"faces"`
	Edges     []EdgeSpec     `yaml:"edges"`
	Curves    []CurveSpec    `yaml:"curves"`
	Images    []ImageSpec    `yaml:"images"`
}

// Placement is the transform shared by instances and groups. Matrix, when
// given, is 16 column-major values and wins over Translate/Scale.
type Placement struct {
	Matrix    []float64 `yaml:"transform"`
	Translate []float64 `yaml:"translate"`
	Scale     []float64 `yaml:"scale"`
}

// InstanceSpec describes a component instance.
type InstanceSpec struct {
	Definition string `yaml:"definition"`
	Layer      string `yaml:"layer"`
	Material   string `yaml:"material"`
	Placement  `yaml:",inline"`
}

// GroupSpec describes a group.
type GroupSpec struct {
	Layer     string       `yaml:"layer"`
	Material  string       `yaml:"material"`
	Entities  EntitiesSpec `yaml:"entities"`
	Placement `yaml:",inline"`
}

// MeshSpec is an explicit triangulation.
type MeshSpec struct {
	Vertices [][]float64 `yaml:"vertices"`
	Indices  []int       `yaml:"indices"`
	FrontUV  [][]float64 `yaml:"front_uv"`
	BackUV   [][]float64 `yaml:"back_uv"`
}

// FaceSpec describes a face.
type FaceSpec struct {
	Layer   string        `yaml:"layer"`
	Front   string        `yaml:"front"`
	Back    string        `yaml:"back"`
	Outer   [][]float64   `yaml:"outer"`
	Holes   [][][]float64 `yaml:"holes"`
	FrontUV [][]float64   `yaml:"front_uv"`
	BackUV  [][]float64   `yaml:"back_uv"`
	Mesh    *MeshSpec     `yaml:"mesh"`
}

// EdgeSpec describes an edge.
type EdgeSpec struct {
	Layer    string    `yaml:"layer"`
	Color    string    `yaml:"color"`
	Start    []float64 `yaml:"start"`
	End      []float64 `yaml:"end"`
	Bounding bool      `yaml:"bounding"`
}

// CurveSpec describes a curve.
type CurveSpec struct {
	Edges []EdgeSpec `yaml:"edges"`
}

// ImageSpec describes a placed image.
type ImageSpec struct {
	Layer string `yaml:"layer"`
	Path  string `yaml:"path"`
}

// Opener returns a source.Opener that loads YAML manifests.
func Opener() source.Opener {
	return source.OpenerFunc(func(path string) (source.Model, error) {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return LoadManifest(path)
		default:
			return nil, fmt.Errorf("%w: %s", source.ErrUnsupported, path)
		}
	})
}

// LoadManifest reads a YAML manifest file. Relative texture and image paths
// are resolved against the manifest's directory.
func LoadManifest(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mf Manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	b := builder{dir: filepath.Dir(path)}
	return b.build(&mf)
}

// ParseManifest builds a model from manifest YAML. Relative paths stay
// relative.
func ParseManifest(data []byte) (*Model, error) {
	var mf Manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	var b builder
	return b.build(&mf)
}

type builder struct {
	dir       string
	layers    map[string]*Layer
	materials map[string]*Material
	defs      map[string]*ComponentDefinition
}

func (b *builder) build(mf *Manifest) (*Model, error) {
	m := &Model{}
	if mf.Version != "" {
		v, err := semver.NewVersion(mf.Version)
		if err != nil {
			return nil, fmt.Errorf("manifest version %q: %w", mf.Version, err)
		}
		m.Major, m.Minor, m.Build = int(v.Major()), int(v.Minor()), int(v.Patch())
	}

	b.layers = make(map[string]*Layer)
	b.materials = make(map[string]*Material)
	b.defs = make(map[string]*ComponentDefinition)

	for i := range mf.Materials {
		mat, err := b.material(&mf.Materials[i])
		if err != nil {
			return nil, err
		}
		b.materials[mat.Label] = mat
		m.AllMaterials = append(m.AllMaterials, mat)
	}

	for _, ls := range mf.Layers {
		l := &Layer{Label: ls.Name, Hidden: ls.Hidden}
		if ls.Material != nil {
			mat, err := b.material(ls.Material)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", ls.Name, err)
			}
			l.Default = mat
		}
		b.layers[l.Label] = l
		m.AllLayers = append(m.AllLayers, l)
	}

	// Definitions are registered before their bodies are built so instances
	// may reference any definition regardless of order.
	for _, ds := range mf.Definitions {
		d := &ComponentDefinition{Label: ds.Name}
		b.defs[d.Label] = d
		m.AllDefinitions = append(m.AllDefinitions, d)
	}
	for i, ds := range mf.Definitions {
		ents, err := b.entities(&ds.Entities)
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", ds.Name, err)
		}
		m.AllDefinitions[i].Children = ents
	}

	geom, err := b.entities(&mf.Entities)
	if err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}
	m.Geometry = geom
	return m, nil
}

func (b *builder) material(ms *MaterialSpec) (*Material, error) {
	mat := &Material{Label: ms.Name, Alpha: ms.Alpha}
	if ms.Color != "" {
		c, err := scene.ParseHexColor(ms.Color)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", ms.Name, err)
		}
		mat.RGB = &c
	}
	if ms.Texture != nil {
		mat.Tex = &Texture{
			Path:   b.resolve(ms.Texture.Path),
			SScale: ms.Texture.ScaleS,
			TScale: ms.Texture.ScaleT,
		}
	}
	return mat, nil
}

// resolve expands a leading ~ and makes relative texture paths relative to
// the manifest directory.
func (b *builder) resolve(p string) string {
	if p == "" {
		return p
	}
	if expanded, err := homedir.Expand(p); err == nil {
		p = expanded
	}
	if filepath.IsAbs(p) || b.dir == "" {
		return p
	}
	return filepath.Join(b.dir, p)
}

func (b *builder) layer(name string) (*Layer, error) {
	if name == "" {
		return nil, nil
	}
	l, ok := b.layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	return l, nil
}

func (b *builder) lookupMaterial(name string) (*Material, error) {
	if name == "" {
		return nil, nil
	}
	mat, ok := b.materials[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	return mat, nil
}

func (b *builder) entities(es *EntitiesSpec) (*Entities, error) {
	out := &Entities{}

	for i, is := range es.Instances {
		d, ok := b.defs[is.Definition]
		if !ok {
			return nil, fmt.Errorf("instance %d: %w: %q", i, ErrUnknownDefinition, is.Definition)
		}
		inst := &ComponentInstance{Def: d}
		var err error
		if inst.OnLayer, err = b.layer(is.Layer); err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		if inst.Paint, err = b.lookupMaterial(is.Material); err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		if inst.Xform, err = is.Placement.matrix(); err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		out.InstanceList = append(out.InstanceList, inst)
	}

	for i := range es.Groups {
		gs := &es.Groups[i]
		g := &Group{}
		var err error
		if g.OnLayer, err = b.layer(gs.Layer); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if g.Paint, err = b.lookupMaterial(gs.Material); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if g.Xform, err = gs.Placement.matrix(); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if g.Children, err = b.entities(&gs.Entities); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		out.GroupList = append(out.GroupList, g)
	}

	for i := range es.Faces {
		f, err := b.face(&es.Faces[i])
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		out.FaceList = append(out.FaceList, f)
	}

	for i := range es.Edges {
		e, err := b.edge(&es.Edges[i])
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		out.EdgeList = append(out.EdgeList, e)
	}

	for i, cs := range es.Curves {
		c := &Curve{}
		for j := range cs.Edges {
			e, err := b.edge(&cs.Edges[j])
			if err != nil {
				return nil, fmt.Errorf("curve %d edge %d: %w", i, j, err)
			}
			c.Segments = append(c.Segments, e)
		}
		out.CurveList = append(out.CurveList, c)
	}

	for i, is := range es.Images {
		img := &Image{Path: b.resolve(is.Path)}
		var err error
		if img.OnLayer, err = b.layer(is.Layer); err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out.ImageList = append(out.ImageList, img)
	}

	return out, nil
}

func (b *builder) face(fs *FaceSpec) (*Face, error) {
	f := &Face{}
	var err error
	if f.OnLayer, err = b.layer(fs.Layer); err != nil {
		return nil, err
	}
	if f.Front, err = b.lookupMaterial(fs.Front); err != nil {
		return nil, err
	}
	if f.Back, err = b.lookupMaterial(fs.Back); err != nil {
		return nil, err
	}
	if f.Outer, err = points(fs.Outer); err != nil {
		return nil, err
	}
	for _, h := range fs.Holes {
		hole, err := points(h)
		if err != nil {
			return nil, err
		}
		f.Holes = append(f.Holes, hole)
	}
	if f.FrontUVs, err = uvs(fs.FrontUV); err != nil {
		return nil, err
	}
	if f.BackUVs, err = uvs(fs.BackUV); err != nil {
		return nil, err
	}
	if fs.Mesh != nil {
		mesh := &source.Mesh{Indices: fs.Mesh.Indices}
		if mesh.Vertices, err = points(fs.Mesh.Vertices); err != nil {
			return nil, err
		}
		if mesh.FrontUV, err = uvs(fs.Mesh.FrontUV); err != nil {
			return nil, err
		}
		if mesh.BackUV, err = uvs(fs.Mesh.BackUV); err != nil {
			return nil, err
		}
		if err := mesh.Check(); err != nil {
			return nil, err
		}
		f.Tessellation = mesh
	}
	return f, nil
}

func (b *builder) edge(es *EdgeSpec) (*Edge, error) {
	e := &Edge{Bounding: es.Bounding}
	var err error
	if e.OnLayer, err = b.layer(es.Layer); err != nil {
		return nil, err
	}
	if es.Color != "" {
		c, err := scene.ParseHexColor(es.Color)
		if err != nil {
			return nil, err
		}
		e.RGB = &c
	}
	if e.From, err = point(es.Start); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if e.To, err = point(es.End); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return e, nil
}

func (p Placement) matrix() (math.Mat4, error) {
	if len(p.Matrix) > 0 {
		if len(p.Matrix) != 16 {
			return math.Mat4{}, fmt.Errorf("%w: got %d", ErrBadTransform, len(p.Matrix))
		}
		var m math.Mat4
		copy(m[:], p.Matrix)
		return m, nil
	}
	m := math.Identity()
	if len(p.Translate) > 0 {
		t, err := point(p.Translate)
		if err != nil {
			return math.Mat4{}, fmt.Errorf("translate: %w", err)
		}
		m = m.Mul(math.Translate(t.X, t.Y, t.Z))
	}
	if len(p.Scale) > 0 {
		s, err := point(p.Scale)
		if err != nil {
			return math.Mat4{}, fmt.Errorf("scale: %w", err)
		}
		m = m.Mul(math.Scale(s.X, s.Y, s.Z))
	}
	return m, nil
}

func point(v []float64) (math.Point3, error) {
	if len(v) != 3 {
		return math.Point3{}, fmt.Errorf("%w: got %d", ErrBadPoint, len(v))
	}
	return math.NewVec3(v[0], v[1], v[2]), nil
}

func points(vs [][]float64) ([]math.Point3, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]math.Point3, len(vs))
	for i, v := range vs {
		p, err := point(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func uvs(vs [][]float64) ([]math.Vec2, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]math.Vec2, len(vs))
	for i, v := range vs {
		if len(v) != 2 {
			return nil, fmt.Errorf("%w: got %d", ErrBadUV, len(v))
		}
		out[i] = math.UV(v[0], v[1])
	}
	return out, nil
}
