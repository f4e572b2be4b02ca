// Package objexport writes a model info tree as Wavefront OBJ with an
// accompanying MTL material library.
//
// Groups and component instances are flattened: every face and edge is
// written in world coordinates, with the transforms of its enclosing groups
// and instances applied. Faces become triangles; edges become line elements.
package objexport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
)

// Errors.
var (
	ErrUnknownDefinition   = errors.New("unknown component definition")
	ErrRecursiveDefinition = errors.New("component definition contains itself")
)

// DefaultMaterial is used for faces without a front material.
const DefaultMaterial = "default"

// Stats counts what was written.
type Stats struct {
	Vertices  int
	Triangles int
	Lines     int
	Materials int
}

// Encoder writes OBJ and MTL streams.
type Encoder struct {
	// MeshLoops reads the vertices of a Loop face as a triangle list, which
	// is what the exporter writes for every face. When unset a Loop is a
	// boundary polygon and is fanned from its first vertex.
	MeshLoops bool

	logger *zap.Logger

	model *scene.ModelInfo
	obj   *bufio.Writer

	// vertex and uv counters; OBJ indices are 1-based and global
	nv, nvt  int
	material string
	groups   int
	active   map[string]bool // definitions being expanded
	usesDef  bool
	stats    Stats
}

// NewEncoder returns an encoder. A nil logger disables logging.
func NewEncoder(logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{logger: logger}
}

// WriteFiles writes m to objPath and its material library next to it, with
// the extension replaced by .mtl.
func (e *Encoder) WriteFiles(m *scene.ModelInfo, objPath string) (Stats, error) {
	mtlPath := strings.TrimSuffix(objPath, filepath.Ext(objPath)) + ".mtl"
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return Stats{}, err
	}

	objFile, err := os.Create(objPath)
	if err != nil {
		return Stats{}, err
	}
	defer objFile.Close()
	mtlFile, err := os.Create(mtlPath)
	if err != nil {
		return Stats{}, err
	}
	defer mtlFile.Close()

	stats, err := e.Encode(objFile, mtlFile, m, filepath.Base(mtlPath))
	if err != nil {
		return stats, err
	}
	if err := objFile.Close(); err != nil {
		return stats, err
	}
	return stats, mtlFile.Close()
}

// Encode writes the geometry of m to obj and its materials to mtl. mtlName
// is the library name referenced by the OBJ mtllib line.
func (e *Encoder) Encode(obj, mtl io.Writer, m *scene.ModelInfo, mtlName string) (Stats, error) {
	e.model = m
	e.obj = bufio.NewWriter(obj)
	e.nv, e.nvt, e.groups = 0, 0, 0
	e.material = ""
	e.active = make(map[string]bool)
	e.usesDef = false
	e.stats = Stats{}

	fmt.Fprintln(e.obj, "# OBJ Model File")
	fmt.Fprintln(e.obj, "# Converted by skp2xml")
	fmt.Fprintf(e.obj, "mtllib %s\n", mtlName)

	if err := e.entities(m.Entities, math.Identity()); err != nil {
		return e.stats, err
	}
	if err := e.obj.Flush(); err != nil {
		return e.stats, err
	}

	mw := bufio.NewWriter(mtl)
	for _, mat := range m.Materials {
		writeMaterial(mw, mat)
		e.stats.Materials++
	}
	if e.usesDef {
		if _, ok := m.Material(DefaultMaterial); !ok {
			writeMaterial(mw, scene.MaterialInfo{Name: DefaultMaterial})
			e.stats.Materials++
		}
	}
	if err := mw.Flush(); err != nil {
		return e.stats, err
	}

	e.logger.Debug("obj written",
		zap.Int("vertices", e.stats.Vertices),
		zap.Int("triangles", e.stats.Triangles),
		zap.Int("lines", e.stats.Lines),
		zap.Int("materials", e.stats.Materials))
	return e.stats, nil
}

func (e *Encoder) entities(ents scene.EntitiesInfo, xf math.Mat4) error {
	for _, inst := range ents.Instances {
		def, ok := e.model.Definition(inst.DefinitionName)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDefinition, inst.DefinitionName)
		}
		if e.active[def.Name] {
			return fmt.Errorf("%w: %q", ErrRecursiveDefinition, def.Name)
		}
		e.active[def.Name] = true
		e.groups++
		fmt.Fprintf(e.obj, "g %s_%d\n", def.Name, e.groups)
		if err := e.entities(def.Entities, xf.Mul(inst.Transform)); err != nil {
			return err
		}
		delete(e.active, def.Name)
	}

	for _, g := range ents.Groups {
		e.groups++
		fmt.Fprintf(e.obj, "g group_%d\n", e.groups)
		if err := e.entities(g.Entities, xf.Mul(g.Transform)); err != nil {
			return err
		}
	}

	for _, f := range ents.Faces {
		e.face(f, xf)
	}
	for _, ed := range ents.Edges {
		e.line(ed, xf)
	}
	for _, c := range ents.Curves {
		for _, ed := range c.Edges {
			e.line(ed, xf)
		}
	}
	return nil
}

// triangles returns the face's vertices as a triangle list.
func (e *Encoder) triangles(f scene.FaceInfo) []scene.FaceVertex {
	if !f.SingleLoop || e.MeshLoops {
		return f.Vertices[:len(f.Vertices)/3*3]
	}
	var out []scene.FaceVertex
	for i := 1; i+1 < len(f.Vertices); i++ {
		out = append(out, f.Vertices[0], f.Vertices[i], f.Vertices[i+1])
	}
	return out
}

func (e *Encoder) face(f scene.FaceInfo, xf math.Mat4) {
	tris := e.triangles(f)
	if len(tris) == 0 {
		return
	}

	name := f.FrontMaterial
	if name == "" {
		name = DefaultMaterial
		e.usesDef = true
	}
	if name != e.material {
		fmt.Fprintf(e.obj, "usemtl %s\n", name)
		e.material = name
	}

	uv := f.HasFrontTexture && f.FrontMaterial != ""
	for _, v := range tris {
		p := xf.TransformPoint(v.Position)
		fmt.Fprintf(e.obj, "v %.6f %.6f %.6f\n", p.X, p.Y, p.Z)
		if uv {
			fmt.Fprintf(e.obj, "vt %.6f %.6f\n", v.FrontUV.U(), v.FrontUV.V())
		}
	}

	for i := 0; i < len(tris); i += 3 {
		base := e.nv + i + 1
		if uv {
			tb := e.nvt + i + 1
			fmt.Fprintf(e.obj, "f %d/%d %d/%d %d/%d\n", base, tb, base+1, tb+1, base+2, tb+2)
		} else {
			fmt.Fprintf(e.obj, "f %d %d %d\n", base, base+1, base+2)
		}
		e.stats.Triangles++
	}

	e.nv += len(tris)
	if uv {
		e.nvt += len(tris)
	}
	e.stats.Vertices += len(tris)
}

func (e *Encoder) line(ed scene.EdgeInfo, xf math.Mat4) {
	for _, p := range []math.Point3{xf.TransformPoint(ed.Start), xf.TransformPoint(ed.End)} {
		fmt.Fprintf(e.obj, "v %.6f %.6f %.6f\n", p.X, p.Y, p.Z)
	}
	fmt.Fprintf(e.obj, "l %d %d\n", e.nv+1, e.nv+2)
	e.nv += 2
	e.stats.Vertices += 2
	e.stats.Lines++
}

// writeMaterial writes one newmtl block. Diffuse defaults to white, ambient
// is black and specular a fixed grey.
func writeMaterial(w io.Writer, m scene.MaterialInfo) {
	kd := scene.RGB(255, 255, 255)
	if m.HasColor {
		kd = m.Color
	}
	fmt.Fprintf(w, "newmtl %s\n", m.Name)
	fmt.Fprintf(w, "Ka %s\n", rgb(scene.RGB(0, 0, 0)))
	fmt.Fprintf(w, "Kd %s\n", rgb(kd))
	fmt.Fprintf(w, "Ks %s\n", rgb(scene.RGB(0x55, 0x55, 0x55)))
	if m.HasAlpha {
		fmt.Fprintf(w, "d %.6f\n", m.Alpha)
	}
	if m.HasTexture {
		fmt.Fprintf(w, "map_Kd %s\n", m.TexturePath)
	}
	fmt.Fprintln(w)
}

func rgb(c scene.Color) string {
	r, g, b := c.Float()
	return fmt.Sprintf("%.6f %.6f %.6f", r, g, b)
}
