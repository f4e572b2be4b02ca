// Package scope tracks the layer, materials and edge color that apply to an
// element nested inside groups, faces and edges.
//
// The exporter enters one Scope per nesting level while it walks the model
// and exits it on the way back up. Layers and materials are looked up
// innermost first across the whole stack. Edge color is different: only the
// top frame is consulted, so an edge inside a face never picks up the color
// of the group around the face.
package scope

import (
	"github.com/Faultbox/skp2xml/pkg/scene"
	"github.com/Faultbox/skp2xml/pkg/source"
)

// Scope is one frame of inheritable properties. Nil fields are absent.
type Scope struct {
	Layer         source.Layer
	FrontMaterial source.Material
	BackMaterial  source.Material
	EdgeColor     scene.Color
	HasEdgeColor  bool
}

// GroupScope pushes the group's material as both front and back candidate
// and its color as the edge color.
func GroupScope(g source.Group) Scope {
	var s Scope
	if l, ok := g.Layer(); ok {
		s.Layer = l
	}
	if m, ok := g.Material(); ok {
		s.FrontMaterial = m
		s.BackMaterial = m
		s.EdgeColor, s.HasEdgeColor = m.Color()
	}
	return s
}

// FaceScope pushes the face's own materials and layer. Faces never
// contribute an edge color.
func FaceScope(f source.Face) Scope {
	var s Scope
	if l, ok := f.Layer(); ok {
		s.Layer = l
	}
	if m, ok := f.FrontMaterial(); ok {
		s.FrontMaterial = m
	}
	if m, ok := f.BackMaterial(); ok {
		s.BackMaterial = m
	}
	return s
}

// EdgeScope pushes the edge's color and layer.
func EdgeScope(e source.Edge) Scope {
	var s Scope
	if l, ok := e.Layer(); ok {
		s.Layer = l
	}
	s.EdgeColor, s.HasEdgeColor = e.Color()
	return s
}

// ImageScope pushes only the image's layer.
func ImageScope(i source.Image) Scope {
	var s Scope
	if l, ok := i.Layer(); ok {
		s.Layer = l
	}
	return s
}

// Resolver is a stack of scopes. The zero value resolves per element; use
// New to enable materials-by-layer mode.
type Resolver struct {
	materialsByLayer bool
	frames           []Scope
}

// New returns an empty resolver. With materialsByLayer set, materials and
// edge colors come from the current layer's own material and per-element
// materials are ignored.
func New(materialsByLayer bool) *Resolver {
	return &Resolver{materialsByLayer: materialsByLayer}
}

// MaterialsByLayer reports the resolver's mode.
func (r *Resolver) MaterialsByLayer() bool {
	return r.materialsByLayer
}

// Enter pushes s.
func (r *Resolver) Enter(s Scope) {
	r.frames = append(r.frames, s)
}

// Exit pops the innermost scope. Exiting an empty resolver is a programming
// error and panics.
func (r *Resolver) Exit() {
	n := len(r.frames)
	if n == 0 {
		panic("scope: Exit without matching Enter")
	}
	r.frames[n-1] = Scope{}
	r.frames = r.frames[:n-1]
}

// Within runs fn with s entered and exits it afterwards, also when fn
// returns an error or panics.
func (r *Resolver) Within(s Scope, fn func() error) error {
	r.Enter(s)
	defer r.Exit()
	return fn()
}

// Depth returns the number of entered scopes.
func (r *Resolver) Depth() int {
	return len(r.frames)
}

// CurrentLayer returns the innermost layer, or nil when no scope has one.
func (r *Resolver) CurrentLayer() source.Layer {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Layer != nil {
			return r.frames[i].Layer
		}
	}
	return nil
}

// CurrentFrontMaterial returns the material for front faces, or nil.
func (r *Resolver) CurrentFrontMaterial() source.Material {
	if r.materialsByLayer {
		return r.layerMaterial()
	}
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].FrontMaterial != nil {
			return r.frames[i].FrontMaterial
		}
	}
	return nil
}

// CurrentBackMaterial returns the material for back faces, or nil.
func (r *Resolver) CurrentBackMaterial() source.Material {
	if r.materialsByLayer {
		return r.layerMaterial()
	}
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].BackMaterial != nil {
			return r.frames[i].BackMaterial
		}
	}
	return nil
}

// CurrentEdgeColor returns the edge color of the top scope only. In
// materials-by-layer mode it is the color of the current layer's material.
func (r *Resolver) CurrentEdgeColor() (scene.Color, bool) {
	if r.materialsByLayer {
		m := r.layerMaterial()
		if m == nil {
			return scene.Color{}, false
		}
		return m.Color()
	}
	if len(r.frames) == 0 {
		return scene.Color{}, false
	}
	top := r.frames[len(r.frames)-1]
	return top.EdgeColor, top.HasEdgeColor
}

func (r *Resolver) layerMaterial() source.Material {
	l := r.CurrentLayer()
	if l == nil {
		return nil
	}
	m, ok := l.Material()
	if !ok {
		return nil
	}
	return m
}
