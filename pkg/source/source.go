// Package source defines the contract between the exporter and the modeling
// backend it reads from. Every call that can fail returns an error; the
// exporter treats any such error as fatal for the whole conversion.
//
// Optional properties (a layer's material, an entity's layer) are reported
// with a presence flag instead of an error, matching the SDK where a missing
// reference is a normal state.
package source

import (
	"errors"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
)

// ErrUnsupported is returned by an Opener for files it cannot read.
var ErrUnsupported = errors.New("unsupported source format")

// Opener acquires a model from a path. The caller owns the returned model
// and must Close it.
type Opener interface {
	Open(path string) (Model, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Model, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Model, error) { return f(path) }

// Model is an opened scene.
type Model interface {
	Version() (major, minor, build int, err error)
	Layers() ([]Layer, error)
	Materials() ([]Material, error)
	ComponentDefinitions() ([]ComponentDefinition, error)
	Entities() (Entities, error)
	// Close releases every resource held by the model.
	Close() error
}

// Layer is a named visibility/material bucket.
type Layer interface {
	Name() (string, error)
	Visible() (bool, error)
	Material() (Material, bool)
}

// MaterialType mirrors the SDK's material kinds.
type MaterialType int

const (
	MaterialColored           MaterialType = iota // plain color
	MaterialTextured                              // image only
	MaterialColorizedTexture                      // image tinted by color
)

// String returns the material type name.
func (t MaterialType) String() string {
	switch t {
	case MaterialColored:
		return "Colored"
	case MaterialTextured:
		return "Textured"
	case MaterialColorizedTexture:
		return "ColorizedTexture"
	default:
		return "Unknown"
	}
}

// HasColor reports whether materials of this type carry a color.
func (t MaterialType) HasColor() bool {
	return t == MaterialColored || t == MaterialColorizedTexture
}

// HasTexture reports whether materials of this type carry a texture.
func (t MaterialType) HasTexture() bool {
	return t == MaterialTextured || t == MaterialColorizedTexture
}

// Material is a surface appearance.
type Material interface {
	Name() (string, error)
	Type() (MaterialType, error)
	Color() (scene.Color, bool)
	// Opacity reports the alpha value when the material uses opacity.
	Opacity() (float64, bool, error)
	Texture() (Texture, bool)
}

// Texture is an image applied by a material.
type Texture interface {
	FileName() (string, error)
	// Scale returns the texture's s and t scale factors.
	Scale() (s, t float64, err error)
}

// DrawingElement is anything that can sit on a layer and carry a material.
type DrawingElement interface {
	Layer() (Layer, bool)
	Material() (Material, bool)
}

// ComponentDefinition is a reusable named entity tree.
type ComponentDefinition interface {
	Name() (string, error)
	Entities() (Entities, error)
}

// Entities is one level of the entity hierarchy.
type Entities interface {
	Instances() ([]ComponentInstance, error)
	Groups() ([]Group, error)
	Faces() ([]Face, error)
	// Edges returns the edges of this level; standaloneOnly drops edges
	// bounding a face.
	Edges(standaloneOnly bool) ([]Edge, error)
	Curves() ([]Curve, error)
	Images() ([]Image, error)
}

// ComponentInstance places a definition.
type ComponentInstance interface {
	DrawingElement
	Definition() (ComponentDefinition, error)
	Transform() (math.Mat4, error)
}

// Group is an anonymous, exclusively owned entity tree.
type Group interface {
	DrawingElement
	Entities() (Entities, error)
	Transform() (math.Mat4, error)
}

// Face is a planar polygon, possibly with holes.
type Face interface {
	Layer() (Layer, bool)
	FrontMaterial() (Material, bool)
	BackMaterial() (Material, bool)
	InnerLoopCount() (int, error)
	// Mesh triangulates the face.
	Mesh() (*Mesh, error)
}

// Edge is a line segment.
type Edge interface {
	Layer() (Layer, bool)
	Color() (scene.Color, bool)
	Start() (math.Point3, error)
	End() (math.Point3, error)
}

// Curve is an ordered run of edges.
type Curve interface {
	Edges() ([]Edge, error)
}

// Image is a placed raster image. It only contributes a layer to the scope
// chain and a texture to the texture writer.
type Image interface {
	Layer() (Layer, bool)
	FileName() (string, error)
}
