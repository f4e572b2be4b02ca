package skpxml

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/multierr"

	"github.com/Faultbox/skp2xml/pkg/math"
	"github.com/Faultbox/skp2xml/pkg/scene"
)

// ModelInfo reads the whole document. Sibling elements are still read after
// one of them fails and every failure is folded into the returned error.
// When the error is non-nil the model is incomplete and must not be used
// as a faithful copy of the document.
//
// Sections are looked up inside the root element and also next to it,
// where older writers put them.
func (f *File) ModelInfo() (*scene.ModelInfo, error) {
	if f.doc == nil {
		return nil, ErrClosed
	}

	m := &scene.ModelInfo{}
	var errs error
	for _, section := range f.sections() {
		switch section.Tag {
		case TagLayers:
			layers, err := readLayers(section)
			m.Layers = append(m.Layers, layers...)
			errs = multierr.Append(errs, err)
		case TagMaterials:
			mats, err := readMaterials(section)
			m.Materials = append(m.Materials, mats...)
			errs = multierr.Append(errs, err)
		case TagComponentDefinitions:
			defs, err := readDefinitions(section)
			m.Definitions = append(m.Definitions, defs...)
			errs = multierr.Append(errs, err)
		case TagGeometry:
			ents, err := readEntities(section, false)
			m.Entities = ents
			errs = multierr.Append(errs, err)
		}
	}
	return m, errs
}

func (f *File) sections() []*etree.Element {
	var out []*etree.Element
	for _, el := range f.doc.ChildElements() {
		if el.Tag == TagSkpToXML {
			out = append(out, el.ChildElements()...)
			continue
		}
		out = append(out, el)
	}
	return out
}

func errAt(el *etree.Element, err error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%s: %w", el.GetPath(), err)
	}
	return fmt.Errorf("%s: %w: %s", el.GetPath(), err, detail)
}

func expectTag(el *etree.Element, tag string) error {
	if el.Tag != tag {
		return errAt(el, ErrUnexpectedElement, fmt.Sprintf("got <%s>, want <%s>", el.Tag, tag))
	}
	return nil
}

func unexpected(el *etree.Element) error {
	return errAt(el, ErrUnexpectedElement, "<"+el.Tag+">")
}

func requireAttr(el *etree.Element, key string) (string, error) {
	attr := el.SelectAttr(key)
	if attr == nil {
		return "", errAt(el, ErrMissingAttribute, key)
	}
	return attr.Value, nil
}

func floatAttr(el *etree.Element, key string) (float64, error) {
	s, err := requireAttr(el, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errAt(el, ErrBadAttribute, fmt.Sprintf("%s=%q", key, s))
	}
	return v, nil
}

// boolAttr reads an optional boolean, false when absent.
func boolAttr(el *etree.Element, key string) (bool, error) {
	attr := el.SelectAttr(key)
	if attr == nil {
		return false, nil
	}
	v, err := strconv.ParseBool(attr.Value)
	if err != nil {
		return false, errAt(el, ErrBadAttribute, fmt.Sprintf("%s=%q", key, attr.Value))
	}
	return v, nil
}

func colorAttr(el *etree.Element) (scene.Color, bool, error) {
	attr := el.SelectAttr(AttrColor)
	if attr == nil {
		return scene.Color{}, false, nil
	}
	c, err := scene.ParseHexColor(attr.Value)
	if err != nil {
		return scene.Color{}, false, errAt(el, ErrBadAttribute, err.Error())
	}
	return c, true, nil
}

func readPoint(el *etree.Element) (math.Point3, error) {
	x, err := floatAttr(el, AttrX)
	if err != nil {
		return math.Point3{}, err
	}
	y, err := floatAttr(el, AttrY)
	if err != nil {
		return math.Point3{}, err
	}
	z, err := floatAttr(el, AttrZ)
	if err != nil {
		return math.Point3{}, err
	}
	return math.NewVec3(x, y, z), nil
}

func readUV(el *etree.Element) (math.Vec2, error) {
	u, err := floatAttr(el, AttrU)
	if err != nil {
		return math.Vec2{}, err
	}
	v, err := floatAttr(el, AttrV)
	if err != nil {
		return math.Vec2{}, err
	}
	return math.UV(u, v), nil
}

func readLayers(section *etree.Element) ([]scene.LayerInfo, error) {
	var out []scene.LayerInfo
	var errs error
	for _, el := range section.ChildElements() {
		info, err := readLayer(el)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, info)
	}
	return out, errs
}

func readLayer(el *etree.Element) (scene.LayerInfo, error) {
	var info scene.LayerInfo
	if err := expectTag(el, TagLayer); err != nil {
		return info, err
	}
	name, err := requireAttr(el, AttrName)
	if err != nil {
		return info, err
	}
	info.Name = name
	if info.Visible, err = boolAttr(el, AttrVisible); err != nil {
		return info, err
	}

	kids := el.ChildElements()
	if len(kids) > 1 {
		return info, unexpected(kids[1])
	}
	if len(kids) == 1 {
		mat, err := readMaterial(kids[0])
		if err != nil {
			return info, err
		}
		info.HasMaterial = true
		info.Material = mat
	}
	return info, nil
}

func readMaterials(section *etree.Element) ([]scene.MaterialInfo, error) {
	var out []scene.MaterialInfo
	var errs error
	for _, el := range section.ChildElements() {
		info, err := readMaterial(el)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, info)
	}
	return out, errs
}

func readMaterial(el *etree.Element) (scene.MaterialInfo, error) {
	var info scene.MaterialInfo
	if err := expectTag(el, TagMaterial); err != nil {
		return info, err
	}
	name, err := requireAttr(el, AttrName)
	if err != nil {
		return info, err
	}
	info.Name = name

	if info.Color, info.HasColor, err = colorAttr(el); err != nil {
		return info, err
	}
	if el.SelectAttr(AttrAlpha) != nil {
		if info.Alpha, err = floatAttr(el, AttrAlpha); err != nil {
			return info, err
		}
		info.HasAlpha = true
	}

	kids := el.ChildElements()
	if len(kids) > 1 {
		return info, unexpected(kids[1])
	}
	if len(kids) == 1 {
		tex := kids[0]
		if err := expectTag(tex, TagTexture); err != nil {
			return info, err
		}
		if info.TexturePath, err = requireAttr(tex, AttrPath); err != nil {
			return info, err
		}
		if info.TextureSScale, err = floatAttr(tex, AttrSScale); err != nil {
			return info, err
		}
		if info.TextureTScale, err = floatAttr(tex, AttrTScale); err != nil {
			return info, err
		}
		info.HasTexture = true
	}
	return info, nil
}

func readDefinitions(section *etree.Element) ([]scene.ComponentDefinitionInfo, error) {
	var out []scene.ComponentDefinitionInfo
	var errs error
	for _, el := range section.ChildElements() {
		if err := expectTag(el, TagComponentDefinition); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		name, err := requireAttr(el, AttrName)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ents, err := readEntities(el, false)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, scene.ComponentDefinitionInfo{Name: name, Entities: ents})
	}
	return out, errs
}

// readEntities reads one hierarchy level. Inside a group the trailing
// Transformation belongs to the group and is skipped here.
func readEntities(parent *etree.Element, inGroup bool) (scene.EntitiesInfo, error) {
	var ents scene.EntitiesInfo
	var errs error
	kids := parent.ChildElements()
	for i, el := range kids {
		switch el.Tag {
		case TagComponentInstance:
			inst, err := readInstance(el)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			ents.Instances = append(ents.Instances, inst)
		case TagGroup:
			g, err := readGroup(el)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			ents.Groups = append(ents.Groups, g)
		case TagFace:
			face, err := readFace(el)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			ents.Faces = append(ents.Faces, face)
		case TagEdge:
			edge, err := readEdge(el)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			ents.Edges = append(ents.Edges, edge)
		case TagCurve:
			curve, err := readCurve(el)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			ents.Curves = append(ents.Curves, curve)
		case TagTransformation:
			if inGroup && i == len(kids)-1 {
				continue
			}
			errs = multierr.Append(errs, unexpected(el))
		default:
			errs = multierr.Append(errs, unexpected(el))
		}
	}
	return ents, errs
}

func readGroup(el *etree.Element) (scene.GroupInfo, error) {
	var g scene.GroupInfo
	ents, errs := readEntities(el, true)
	xf, err := readTransformation(el)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return g, errs
	}
	g.Entities = ents
	g.Transform = xf
	return g, nil
}

// readTransformation reads the last child element of parent, which must be
// a Transformation carrying all sixteen values.
func readTransformation(parent *etree.Element) (math.Mat4, error) {
	var m math.Mat4
	kids := parent.ChildElements()
	if len(kids) == 0 || kids[len(kids)-1].Tag != TagTransformation {
		return m, errAt(parent, ErrMissingTransformation, "")
	}
	el := kids[len(kids)-1]
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			v, err := floatAttr(el, matrixAttr(row, col))
			if err != nil {
				return m, err
			}
			m[math.Index(row, col)] = v
		}
	}
	return m, nil
}

func readInstance(el *etree.Element) (scene.ComponentInstanceInfo, error) {
	var info scene.ComponentInstanceInfo
	kids := el.ChildElements()
	if len(kids) == 0 {
		return info, errAt(el, ErrMissingElement, TagComponentDefinition)
	}
	if err := expectTag(kids[0], TagComponentDefinition); err != nil {
		return info, err
	}
	name, err := requireAttr(kids[0], AttrName)
	if err != nil {
		return info, err
	}
	info.DefinitionName = name

	i := 1
	if i < len(kids) && kids[i].Tag == TagMaterial {
		if info.MaterialName, err = requireAttr(kids[i], AttrName); err != nil {
			return info, err
		}
		i++
	}
	if i < len(kids) && kids[i].Tag == TagLayer {
		if info.LayerName, err = requireAttr(kids[i], AttrName); err != nil {
			return info, err
		}
		i++
	}
	if i < len(kids)-1 {
		return info, unexpected(kids[i])
	}
	if info.Transform, err = readTransformation(el); err != nil {
		return info, err
	}
	return info, nil
}

func readEdge(el *etree.Element) (scene.EdgeInfo, error) {
	var info scene.EdgeInfo
	kids := el.ChildElements()
	i := 0
	var err error

	if i < len(kids) && kids[i].Tag == TagLayer {
		if info.LayerName, err = requireAttr(kids[i], AttrName); err != nil {
			return info, err
		}
		info.HasLayer = true
		i++
	}
	if i < len(kids) && kids[i].Tag == TagMaterial {
		if info.Color, info.HasColor, err = colorAttr(kids[i]); err != nil {
			return info, err
		}
		i++
	}

	for _, end := range []struct {
		tag string
		dst *math.Point3
	}{
		{TagStart, &info.Start},
		{TagEnd, &info.End},
	} {
		if i >= len(kids) {
			return info, errAt(el, ErrMissingElement, end.tag)
		}
		if err := expectTag(kids[i], end.tag); err != nil {
			return info, err
		}
		if *end.dst, err = readPoint(kids[i]); err != nil {
			return info, err
		}
		i++
	}

	if i < len(kids) {
		return info, unexpected(kids[i])
	}
	return info, nil
}

func readCurve(el *etree.Element) (scene.CurveInfo, error) {
	var info scene.CurveInfo
	var errs error
	for _, kid := range el.ChildElements() {
		if err := expectTag(kid, TagEdge); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		edge, err := readEdge(kid)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		info.Edges = append(info.Edges, edge)
	}
	return info, errs
}

func readFaceMaterial(el *etree.Element) (string, bool, error) {
	name, err := requireAttr(el, AttrName)
	if err != nil {
		return "", false, err
	}
	hasTexture, err := boolAttr(el, AttrHasTexture)
	if err != nil {
		return "", false, err
	}
	return name, hasTexture, nil
}

func readFace(el *etree.Element) (scene.FaceInfo, error) {
	var info scene.FaceInfo
	kids := el.ChildElements()
	i := 0
	var err error

	// Optional material and layer references
	if i < len(kids) && kids[i].Tag == TagFrontMaterial {
		if info.FrontMaterial, info.HasFrontTexture, err = readFaceMaterial(kids[i]); err != nil {
			return info, err
		}
		i++
	}
	if i < len(kids) && kids[i].Tag == TagBackMaterial {
		if info.BackMaterial, info.HasBackTexture, err = readFaceMaterial(kids[i]); err != nil {
			return info, err
		}
		i++
	}
	if i < len(kids) && kids[i].Tag == TagLayer {
		if info.LayerName, err = requireAttr(kids[i], AttrName); err != nil {
			return info, err
		}
		i++
	}

	// Encoding marker
	if i >= len(kids) {
		return info, errAt(el, ErrMissingElement, TagLoop+" or "+TagTriangles)
	}
	body := kids[i]
	count := 0
	switch body.Tag {
	case TagLoop:
		info.SingleLoop = true
	case TagTriangles:
		s, err := requireAttr(body, AttrCount)
		if err != nil {
			return info, err
		}
		if count, err = strconv.Atoi(s); err != nil || count < 0 {
			return info, errAt(body, ErrBadAttribute, fmt.Sprintf("%s=%q", AttrCount, s))
		}
	default:
		return info, errAt(body, ErrUnexpectedElement, fmt.Sprintf("got <%s>, want <%s> or <%s>", body.Tag, TagLoop, TagTriangles))
	}
	if i+1 < len(kids) {
		return info, unexpected(kids[i+1])
	}

	for _, vel := range body.ChildElements() {
		v, err := readVertex(vel, info.HasFrontTexture, info.HasBackTexture)
		if err != nil {
			return info, err
		}
		info.Vertices = append(info.Vertices, v)
	}

	if !info.SingleLoop && count*3 != len(info.Vertices) {
		return info, errAt(body, ErrTriangleCount, fmt.Sprintf("count %d, %d vertices", count, len(info.Vertices)))
	}
	return info, nil
}

// readVertex reads a Point followed by the texture coordinates the face
// flags call for.
func readVertex(el *etree.Element, front, back bool) (scene.FaceVertex, error) {
	var v scene.FaceVertex
	if err := expectTag(el, TagVertex); err != nil {
		return v, err
	}
	kids := el.ChildElements()
	if len(kids) == 0 {
		return v, errAt(el, ErrMissingElement, TagPoint)
	}
	if err := expectTag(kids[0], TagPoint); err != nil {
		return v, err
	}
	var err error
	if v.Position, err = readPoint(kids[0]); err != nil {
		return v, err
	}

	i := 1
	for _, uv := range []struct {
		want bool
		tag  string
		dst  *math.Vec2
	}{
		{front, TagFrontTextureCoords, &v.FrontUV},
		{back, TagBackTextureCoords, &v.BackUV},
	} {
		if !uv.want {
			continue
		}
		if i >= len(kids) {
			return v, errAt(el, ErrMissingElement, uv.tag)
		}
		if err := expectTag(kids[i], uv.tag); err != nil {
			return v, err
		}
		if *uv.dst, err = readUV(kids[i]); err != nil {
			return v, err
		}
		i++
	}
	if i < len(kids) {
		return v, unexpected(kids[i])
	}
	return v, nil
}
