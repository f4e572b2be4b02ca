package skpxml

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
)

// formatFloat uses the shortest representation that parses back to the
// same float64.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func setFloat(el *etree.Element, key string, v float64) {
	el.CreateAttr(key, formatFloat(v))
}

func setPoint(el *etree.Element, p math.Point3) {
	setFloat(el, AttrX, p.X)
	setFloat(el, AttrY, p.Y)
	setFloat(el, AttrZ, p.Z)
}

func setUV(el *etree.Element, uv math.Vec2) {
	setFloat(el, AttrU, uv.U())
	setFloat(el, AttrV, uv.V())
}

// writeNamed writes an empty element carrying only a Name.
func (f *File) writeNamed(tag, name string) {
	f.start(tag).CreateAttr(AttrName, name)
	f.Pop()
}

// WriteLayer writes a Layer with its optional material.
func (f *File) WriteLayer(info scene.LayerInfo) {
	el := f.start(TagLayer)
	el.CreateAttr(AttrName, info.Name)
	el.CreateAttr(AttrVisible, strconv.FormatBool(info.Visible))
	if info.HasMaterial {
		f.WriteMaterial(info.Material)
	}
	f.Pop()
}

// WriteMaterial writes a Material with its optional texture.
func (f *File) WriteMaterial(info scene.MaterialInfo) {
	el := f.start(TagMaterial)
	el.CreateAttr(AttrName, info.Name)
	if info.HasColor {
		el.CreateAttr(AttrColor, info.Color.Hex())
	}
	if info.HasAlpha {
		setFloat(el, AttrAlpha, info.Alpha)
	}
	if info.HasTexture {
		tex := f.start(TagTexture)
		tex.CreateAttr(AttrPath, info.TexturePath)
		setFloat(tex, AttrSScale, info.TextureSScale)
		setFloat(tex, AttrTScale, info.TextureTScale)
		f.Pop()
	}
	f.Pop()
}

// WriteEdge writes an Edge. The color goes on a nameless Material child.
func (f *File) WriteEdge(info scene.EdgeInfo) {
	f.start(TagEdge)
	if info.HasLayer {
		f.writeNamed(TagLayer, info.LayerName)
	}
	if info.HasColor {
		f.start(TagMaterial).CreateAttr(AttrColor, info.Color.Hex())
		f.Pop()
	}
	setPoint(f.start(TagStart), info.Start)
	f.Pop()
	setPoint(f.start(TagEnd), info.End)
	f.Pop()
	f.Pop()
}

// WriteFace writes a Face as a Loop or as Triangles. Material and layer
// children are omitted when their names are empty, which also drops the
// matching texture flag.
func (f *File) WriteFace(info scene.FaceInfo) {
	f.start(TagFace)

	if info.FrontMaterial != "" {
		el := f.start(TagFrontMaterial)
		el.CreateAttr(AttrName, info.FrontMaterial)
		el.CreateAttr(AttrHasTexture, strconv.FormatBool(info.HasFrontTexture))
		f.Pop()
	}
	if info.BackMaterial != "" {
		el := f.start(TagBackMaterial)
		el.CreateAttr(AttrName, info.BackMaterial)
		el.CreateAttr(AttrHasTexture, strconv.FormatBool(info.HasBackTexture))
		f.Pop()
	}
	if info.LayerName != "" {
		f.writeNamed(TagLayer, info.LayerName)
	}

	frontUV := info.HasFrontTexture && info.FrontMaterial != ""
	backUV := info.HasBackTexture && info.BackMaterial != ""

	if info.SingleLoop {
		f.start(TagLoop)
	} else {
		f.start(TagTriangles).CreateAttr(AttrCount, strconv.Itoa(len(info.Vertices)/3))
	}
	for _, v := range info.Vertices {
		f.start(TagVertex)
		setPoint(f.start(TagPoint), v.Position)
		f.Pop()
		if frontUV {
			setUV(f.start(TagFrontTextureCoords), v.FrontUV)
			f.Pop()
		}
		if backUV {
			setUV(f.start(TagBackTextureCoords), v.BackUV)
			f.Pop()
		}
		f.Pop()
	}
	f.Pop() // Loop or Triangles
	f.Pop() // Face
}

// WriteCurve writes a Curve and its edges in order.
func (f *File) WriteCurve(info scene.CurveInfo) {
	f.start(TagCurve)
	for _, e := range info.Edges {
		f.WriteEdge(e)
	}
	f.Pop()
}

// WriteComponentInstance writes a ComponentInstance. The definition is
// referenced by name only.
func (f *File) WriteComponentInstance(info scene.ComponentInstanceInfo) {
	f.start(TagComponentInstance)
	f.writeNamed(TagComponentDefinition, info.DefinitionName)
	if info.MaterialName != "" {
		f.writeNamed(TagMaterial, info.MaterialName)
	}
	if info.LayerName != "" {
		f.writeNamed(TagLayer, info.LayerName)
	}
	f.WriteTransformation(info.Transform)
	f.Pop()
}

// WriteTransformation writes the 16 matrix values as m<row><col>
// attributes.
func (f *File) WriteTransformation(m math.Mat4) {
	el := f.start(TagTransformation)
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			setFloat(el, matrixAttr(row, col), m[math.Index(row, col)])
		}
	}
	f.Pop()
}

// WriteEntities writes one hierarchy level in schema order: instances,
// groups, faces, edges, curves.
func (f *File) WriteEntities(e scene.EntitiesInfo) {
	for _, inst := range e.Instances {
		f.WriteComponentInstance(inst)
	}
	for _, g := range e.Groups {
		f.StartGroup()
		f.WriteEntities(g.Entities)
		f.WriteTransformation(g.Transform)
		f.Pop()
	}
	for _, face := range e.Faces {
		f.WriteFace(face)
	}
	for _, edge := range e.Edges {
		f.WriteEdge(edge)
	}
	for _, c := range e.Curves {
		f.WriteCurve(c)
	}
}

// WriteModel writes every section of m at the cursor. Empty sections are
// left out; Geometry is always written.
func (f *File) WriteModel(m *scene.ModelInfo) {
	if len(m.Layers) > 0 {
		f.StartLayers()
		for _, l := range m.Layers {
			f.WriteLayer(l)
		}
		f.Pop()
	}
	if len(m.Materials) > 0 {
		f.StartMaterials()
		for _, mat := range m.Materials {
			f.WriteMaterial(mat)
		}
		f.Pop()
	}
	if len(m.Definitions) > 0 {
		f.StartComponentDefinitions()
		for _, d := range m.Definitions {
			f.StartComponentDefinition(d.Name)
			f.WriteEntities(d.Entities)
			f.Pop()
		}
		f.Pop()
	}
	f.StartGeometry()
	f.WriteEntities(m.Entities)
	f.Pop()
}

// Encode writes m as a complete document to w.
func Encode(w io.Writer, m *scene.ModelInfo, v Version) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	f := &File{doc: doc, cursor: &doc.Element}
	f.WriteHeader(v.Major, v.Minor, v.Build)
	f.WriteModel(m)

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}
