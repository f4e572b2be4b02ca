// Package scene holds the model info tree: plain value records for layers,
// materials, component definitions and the nested entity hierarchy that the
// XML codec writes and reads.
package scene

import "github.com/Faultbox/skp2xml/pkg/math"

// MaterialInfo describes a material. Scale fields are only meaningful when
// HasTexture is set.
type MaterialInfo struct {
	Name string

	HasColor bool
	Color    Color

	HasAlpha bool
	Alpha    float64 // 0..1

	HasTexture    bool
	TexturePath   string
	TextureSScale float64
	TextureTScale float64
}

// LayerInfo describes a layer and its optional default material. The
// material is only consulted in materials-by-layer mode.
type LayerInfo struct {
	Name        string
	Visible     bool
	HasMaterial bool
	Material    MaterialInfo
}

// EdgeInfo is a line segment with the inherited layer and color flattened
// into it at export time.
type EdgeInfo struct {
	HasLayer  bool
	LayerName string
	HasColor  bool
	Color     Color
	Start     math.Point3
	End       math.Point3
}

// FaceVertex is one vertex of a face. FrontUV and BackUV are only
// meaningful when the owning face has the matching texture flag.
type FaceVertex struct {
	Position math.Point3
	FrontUV  math.Vec2
	BackUV   math.Vec2
}

// FaceInfo is a polygon. When SingleLoop is set Vertices is the ordered
// boundary loop, otherwise it is a flat triangle list (three per triangle).
//
// The document stores a texture flag on the material element, so a flag
// without a material name does not survive a round trip.
type FaceInfo struct {
	LayerName       string
	FrontMaterial   string
	BackMaterial    string
	HasFrontTexture bool
	HasBackTexture  bool
	SingleLoop      bool
	Vertices        []FaceVertex
}

// TriangleCount returns the number of triangles in a triangulated face.
func (f FaceInfo) TriangleCount() int {
	return len(f.Vertices) / 3
}

// CurveInfo is an ordered run of edges.
type CurveInfo struct {
	Edges []EdgeInfo
}

// ComponentInstanceInfo places a component definition, referenced by name.
type ComponentInstanceInfo struct {
	DefinitionName string
	LayerName      string
	MaterialName   string
	Transform      math.Mat4
}

// GroupInfo owns its nested entities outright. Assigning a GroupInfo shares
// the underlying slices, use Clone for an independent copy.
type GroupInfo struct {
	Entities  EntitiesInfo
	Transform math.Mat4
}

// EntitiesInfo is one level of the entity hierarchy. Edges holds standalone
// edges only; edges bounding a face or belonging to a curve are not repeated.
type EntitiesInfo struct {
	Instances []ComponentInstanceInfo
	Groups    []GroupInfo
	Faces     []FaceInfo
	Edges     []EdgeInfo
	Curves    []CurveInfo
}

// IsEmpty reports whether the level holds no entities.
func (e EntitiesInfo) IsEmpty() bool {
	return len(e.Instances) == 0 && len(e.Groups) == 0 && len(e.Faces) == 0 &&
		len(e.Edges) == 0 && len(e.Curves) == 0
}

// ComponentDefinitionInfo is a named, reusable entity tree.
type ComponentDefinitionInfo struct {
	Name     string
	Entities EntitiesInfo
}

// ModelInfo is the whole document.
type ModelInfo struct {
	Layers      []LayerInfo
	Materials   []MaterialInfo
	Definitions []ComponentDefinitionInfo
	Entities    EntitiesInfo
}

// Layer returns the layer with the given name.
func (m *ModelInfo) Layer(name string) (LayerInfo, bool) {
	for _, l := range m.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return LayerInfo{}, false
}

// Material returns the material with the given name.
func (m *ModelInfo) Material(name string) (MaterialInfo, bool) {
	for _, mat := range m.Materials {
		if mat.Name == name {
			return mat, true
		}
	}
	return MaterialInfo{}, false
}

// Definition returns the component definition with the given name.
func (m *ModelInfo) Definition(name string) (*ComponentDefinitionInfo, bool) {
	for i := range m.Definitions {
		if m.Definitions[i].Name == name {
			return &m.Definitions[i], true
		}
	}
	return nil, false
}
