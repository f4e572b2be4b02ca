package scene

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Validation errors.
var (
	ErrDuplicateName    = errors.New("duplicate name")
	ErrDanglingLayer    = errors.New("reference to undeclared layer")
	ErrDanglingMaterial = errors.New("reference to undeclared material")
	ErrDanglingDef      = errors.New("reference to undeclared component definition")
	ErrVertexCount      = errors.New("invalid face vertex count")
)

// Validate checks the referential invariants of the model: names are unique
// per list and every layer, material and definition reference resolves.
// Loops need at least three vertices and triangle lists a multiple of three.
// All problems are reported together.
func Validate(m *ModelInfo) error {
	v := validator{
		layers:    make(map[string]bool, len(m.Layers)),
		materials: make(map[string]bool, len(m.Materials)),
		defs:      make(map[string]bool, len(m.Definitions)),
	}

	for _, l := range m.Layers {
		if v.layers[l.Name] {
			v.fail(fmt.Errorf("%w: layer %q", ErrDuplicateName, l.Name))
		}
		v.layers[l.Name] = true
	}
	for _, mat := range m.Materials {
		if v.materials[mat.Name] {
			v.fail(fmt.Errorf("%w: material %q", ErrDuplicateName, mat.Name))
		}
		v.materials[mat.Name] = true
	}
	for _, d := range m.Definitions {
		if v.defs[d.Name] {
			v.fail(fmt.Errorf("%w: component definition %q", ErrDuplicateName, d.Name))
		}
		v.defs[d.Name] = true
	}

	for _, d := range m.Definitions {
		v.entities("definition "+d.Name, d.Entities)
	}
	v.entities("geometry", m.Entities)

	return v.err
}

type validator struct {
	layers    map[string]bool
	materials map[string]bool
	defs      map[string]bool
	err       error
}

func (v *validator) fail(err error) {
	v.err = multierr.Append(v.err, err)
}

func (v *validator) layer(where, name string) {
	if name != "" && !v.layers[name] {
		v.fail(fmt.Errorf("%s: %w %q", where, ErrDanglingLayer, name))
	}
}

func (v *validator) material(where, name string) {
	if name != "" && !v.materials[name] {
		v.fail(fmt.Errorf("%s: %w %q", where, ErrDanglingMaterial, name))
	}
}

func (v *validator) edge(where string, e EdgeInfo) {
	if e.HasLayer {
		v.layer(where, e.LayerName)
	}
}

func (v *validator) entities(where string, e EntitiesInfo) {
	for i, inst := range e.Instances {
		at := fmt.Sprintf("%s/instance[%d]", where, i)
		if !v.defs[inst.DefinitionName] {
			v.fail(fmt.Errorf("%s: %w %q", at, ErrDanglingDef, inst.DefinitionName))
		}
		v.layer(at, inst.LayerName)
		v.material(at, inst.MaterialName)
	}
	for i, g := range e.Groups {
		v.entities(fmt.Sprintf("%s/group[%d]", where, i), g.Entities)
	}
	for i, f := range e.Faces {
		at := fmt.Sprintf("%s/face[%d]", where, i)
		v.layer(at, f.LayerName)
		v.material(at, f.FrontMaterial)
		v.material(at, f.BackMaterial)
		n := len(f.Vertices)
		if f.SingleLoop && n < 3 {
			v.fail(fmt.Errorf("%s: %w: loop has %d vertices", at, ErrVertexCount, n))
		}
		if !f.SingleLoop && n%3 != 0 {
			v.fail(fmt.Errorf("%s: %w: %d vertices is not a triangle list", at, ErrVertexCount, n))
		}
	}
	for i, ed := range e.Edges {
		v.edge(fmt.Sprintf("%s/edge[%d]", where, i), ed)
	}
	for i, c := range e.Curves {
		for j, ed := range c.Edges {
			v.edge(fmt.Sprintf("%s/curve[%d]/edge[%d]", where, i, j), ed)
		}
	}
}
