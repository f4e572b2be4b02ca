// Package memory is an in-process implementation of the source contract.
// Models are built directly in Go or loaded from a YAML scene manifest.
package memory

import (
	"errors"
	"fmt"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
	"github.com/Faultbox/skp2xml/pkg/source"
)

// Errors reported by the in-memory model.
var (
	ErrClosed         = errors.New("model is closed")
	ErrNeedsMesh      = errors.New("face with holes needs an explicit mesh")
	ErrNoDefinition   = errors.New("component instance has no definition")
	ErrDegenerateFace = errors.New("face loop has fewer than 3 vertices")
)

// Model is a scene held in memory.
type Model struct {
	Major, Minor, Build int

	AllLayers      []*Layer
	AllMaterials   []*Material
	AllDefinitions []*ComponentDefinition
	Geometry       *Entities

	// Closed is set once Close has been called.
	Closed bool
}

var _ source.Model = (*Model)(nil)

// Version implements source.Model.
func (m *Model) Version() (int, int, int, error) {
	if m.Closed {
		return 0, 0, 0, ErrClosed
	}
	return m.Major, m.Minor, m.Build, nil
}

// Layers implements source.Model.
func (m *Model) Layers() ([]source.Layer, error) {
	if m.Closed {
		return nil, ErrClosed
	}
	out := make([]source.Layer, len(m.AllLayers))
	for i, l := range m.AllLayers {
		out[i] = l
	}
	return out, nil
}

// Materials implements source.Model.
func (m *Model) Materials() ([]source.Material, error) {
	if m.Closed {
		return nil, ErrClosed
	}
	out := make([]source.Material, len(m.AllMaterials))
	for i, mat := range m.AllMaterials {
		out[i] = mat
	}
	return out, nil
}

// ComponentDefinitions implements source.Model.
func (m *Model) ComponentDefinitions() ([]source.ComponentDefinition, error) {
	if m.Closed {
		return nil, ErrClosed
	}
	out := make([]source.ComponentDefinition, len(m.AllDefinitions))
	for i, d := range m.AllDefinitions {
		out[i] = d
	}
	return out, nil
}

// Entities implements source.Model.
func (m *Model) Entities() (source.Entities, error) {
	if m.Closed {
		return nil, ErrClosed
	}
	if m.Geometry == nil {
		return &Entities{}, nil
	}
	return m.Geometry, nil
}

// Close implements source.Model.
func (m *Model) Close() error {
	m.Closed = true
	return nil
}

// Layer is an in-memory layer.
type Layer struct {
	Label   string
	Hidden  bool
	Default *Material // the layer's own material, used by materials-by-layer
}

// Name implements source.Layer.
func (l *Layer) Name() (string, error) { return l.Label, nil }

// Visible implements source.Layer.
func (l *Layer) Visible() (bool, error) { return !l.Hidden, nil }

// Material implements source.Layer.
func (l *Layer) Material() (source.Material, bool) { return optMaterial(l.Default) }

// Material is an in-memory material. The type is derived from which of RGB
// and Tex are set.
type Material struct {
	Label string
	RGB   *scene.Color
	Alpha *float64
	Tex   *Texture
}

// Name implements source.Material.
func (m *Material) Name() (string, error) { return m.Label, nil }

// Type implements source.Material.
func (m *Material) Type() (source.MaterialType, error) {
	switch {
	case m.Tex != nil && m.RGB != nil:
		return source.MaterialColorizedTexture, nil
	case m.Tex != nil:
		return source.MaterialTextured, nil
	default:
		return source.MaterialColored, nil
	}
}

// Color implements source.Material.
func (m *Material) Color() (scene.Color, bool) {
	if m.RGB == nil {
		return scene.Color{}, false
	}
	return *m.RGB, true
}

// Opacity implements source.Material.
func (m *Material) Opacity() (float64, bool, error) {
	if m.Alpha == nil {
		return 0, false, nil
	}
	return *m.Alpha, true, nil
}

// Texture implements source.Material.
func (m *Material) Texture() (source.Texture, bool) {
	if m.Tex == nil {
		return nil, false
	}
	return m.Tex, true
}

// Texture is an in-memory texture reference.
type Texture struct {
	Path   string
	SScale float64
	TScale float64
}

// FileName implements source.Texture.
func (t *Texture) FileName() (string, error) { return t.Path, nil }

// Scale implements source.Texture.
func (t *Texture) Scale() (float64, float64, error) { return t.SScale, t.TScale, nil }

// ComponentDefinition is an in-memory component definition.
type ComponentDefinition struct {
	Label    string
	Children *Entities
}

// Name implements source.ComponentDefinition.
func (d *ComponentDefinition) Name() (string, error) { return d.Label, nil }

// Entities implements source.ComponentDefinition.
func (d *ComponentDefinition) Entities() (source.Entities, error) {
	if d.Children == nil {
		return &Entities{}, nil
	}
	return d.Children, nil
}

// Entities is one in-memory hierarchy level.
type Entities struct {
	InstanceList []*ComponentInstance
	GroupList    []*Group
	FaceList     []*Face
	EdgeList     []*Edge
	CurveList    []*Curve
	ImageList    []*Image
}

// Instances implements source.Entities.
func (e *Entities) Instances() ([]source.ComponentInstance, error) {
	out := make([]source.ComponentInstance, len(e.InstanceList))
	for i, v := range e.InstanceList {
		out[i] = v
	}
	return out, nil
}

// Groups implements source.Entities.
func (e *Entities) Groups() ([]source.Group, error) {
	out := make([]source.Group, len(e.GroupList))
	for i, v := range e.GroupList {
		out[i] = v
	}
	return out, nil
}

// Faces implements source.Entities.
func (e *Entities) Faces() ([]source.Face, error) {
	out := make([]source.Face, len(e.FaceList))
	for i, v := range e.FaceList {
		out[i] = v
	}
	return out, nil
}

// Edges implements source.Entities.
func (e *Entities) Edges(standaloneOnly bool) ([]source.Edge, error) {
	out := make([]source.Edge, 0, len(e.EdgeList))
	for _, v := range e.EdgeList {
		if standaloneOnly && v.Bounding {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Curves implements source.Entities.
func (e *Entities) Curves() ([]source.Curve, error) {
	out := make([]source.Curve, len(e.CurveList))
	for i, v := range e.CurveList {
		out[i] = v
	}
	return out, nil
}

// Images implements source.Entities.
func (e *Entities) Images() ([]source.Image, error) {
	out := make([]source.Image, len(e.ImageList))
	for i, v := range e.ImageList {
		out[i] = v
	}
	return out, nil
}

// ComponentInstance is an in-memory placement of a definition.
type ComponentInstance struct {
	Def     *ComponentDefinition
	OnLayer *Layer
	Paint   *Material
	Xform   math.Mat4
}

// Layer implements source.DrawingElement.
func (c *ComponentInstance) Layer() (source.Layer, bool) { return optLayer(c.OnLayer) }

// Material implements source.DrawingElement.
func (c *ComponentInstance) Material() (source.Material, bool) { return optMaterial(c.Paint) }

// Definition implements source.ComponentInstance.
func (c *ComponentInstance) Definition() (source.ComponentDefinition, error) {
	if c.Def == nil {
		return nil, ErrNoDefinition
	}
	return c.Def, nil
}

// Transform implements source.ComponentInstance.
func (c *ComponentInstance) Transform() (math.Mat4, error) { return c.Xform, nil }

// Group is an in-memory group.
type Group struct {
	Children *Entities
	OnLayer  *Layer
	Paint    *Material
	Xform    math.Mat4
}

// Layer implements source.DrawingElement.
func (g *Group) Layer() (source.Layer, bool) { return optLayer(g.OnLayer) }

// Material implements source.DrawingElement.
func (g *Group) Material() (source.Material, bool) { return optMaterial(g.Paint) }

// Entities implements source.Group.
func (g *Group) Entities() (source.Entities, error) {
	if g.Children == nil {
		return &Entities{}, nil
	}
	return g.Children, nil
}

// Transform implements source.Group.
func (g *Group) Transform() (math.Mat4, error) { return g.Xform, nil }

// Face is an in-memory face. Faces without holes are fan-triangulated from
// Outer; faces with holes must carry an explicit Tessellation.
type Face struct {
	OnLayer      *Layer
	Front        *Material
	Back         *Material
	Outer        []math.Point3
	Holes        [][]math.Point3
	FrontUVs     []math.Vec2
	BackUVs      []math.Vec2
	Tessellation *source.Mesh
}

// Layer implements source.Face.
func (f *Face) Layer() (source.Layer, bool) { return optLayer(f.OnLayer) }

// FrontMaterial implements source.Face.
func (f *Face) FrontMaterial() (source.Material, bool) { return optMaterial(f.Front) }

// BackMaterial implements source.Face.
func (f *Face) BackMaterial() (source.Material, bool) { return optMaterial(f.Back) }

// InnerLoopCount implements source.Face.
func (f *Face) InnerLoopCount() (int, error) { return len(f.Holes), nil }

// Mesh implements source.Face.
func (f *Face) Mesh() (*source.Mesh, error) {
	if f.Tessellation != nil {
		if err := f.Tessellation.Check(); err != nil {
			return nil, err
		}
		return f.Tessellation, nil
	}
	if len(f.Holes) > 0 {
		return nil, ErrNeedsMesh
	}
	if len(f.Outer) < 3 {
		return nil, fmt.Errorf("%w: %d", ErrDegenerateFace, len(f.Outer))
	}
	m := source.FanTriangulate(f.Outer, f.FrontUVs, f.BackUVs)
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Edge is an in-memory edge. Bounding marks edges that belong to a face
// boundary and are therefore not standalone.
type Edge struct {
	OnLayer  *Layer
	RGB      *scene.Color
	From, To math.Point3
	Bounding bool
}

// Layer implements source.Edge.
func (e *Edge) Layer() (source.Layer, bool) { return optLayer(e.OnLayer) }

// Color implements source.Edge.
func (e *Edge) Color() (scene.Color, bool) {
	if e.RGB == nil {
		return scene.Color{}, false
	}
	return *e.RGB, true
}

// Start implements source.Edge.
func (e *Edge) Start() (math.Point3, error) { return e.From, nil }

// End implements source.Edge.
func (e *Edge) End() (math.Point3, error) { return e.To, nil }

// Curve is an in-memory curve.
type Curve struct {
	Segments []*Edge
}

// Edges implements source.Curve.
func (c *Curve) Edges() ([]source.Edge, error) {
	out := make([]source.Edge, len(c.Segments))
	for i, e := range c.Segments {
		out[i] = e
	}
	return out, nil
}

// Image is an in-memory placed image.
type Image struct {
	OnLayer *Layer
	Path    string
}

// Layer implements source.Image.
func (i *Image) Layer() (source.Layer, bool) { return optLayer(i.OnLayer) }

// FileName implements source.Image.
func (i *Image) FileName() (string, error) { return i.Path, nil }

// optLayer and optMaterial keep typed nil pointers out of interface values.
func optLayer(l *Layer) (source.Layer, bool) {
	if l == nil {
		return nil, false
	}
	return l, true
}

func optMaterial(m *Material) (source.Material, bool) {
	if m == nil {
		return nil, false
	}
	return m, true
}
