package exporter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/skp2xml/pkg/scene"
	"github.com/Faultbox/skp2xml/pkg/scope"
	"github.com/Faultbox/skp2xml/pkg/skpxml"
	"github.com/Faultbox/skp2xml/pkg/source"
	"github.com/Faultbox/skp2xml/pkg/texture"
)

// conversion is the state of one Convert call.
type conversion struct {
	ctx      context.Context
	opts     Options
	logger   *zap.Logger
	progress Progress

	model    source.Model
	file     *skpxml.File
	resolver *scope.Resolver
	stats    Stats
}

func srcErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSource, what, err)
}

// checkpoint is called between phases. It reports progress and stops the
// conversion when the context is done or the progress collaborator asks to
// cancel.
func (c *conversion) checkpoint(percent float64, msg string) error {
	if err := c.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if c.progress != nil && c.progress.Cancelled() {
		return ErrCancelled
	}
	c.report(percent, msg)
	return nil
}

func (c *conversion) report(percent float64, msg string) {
	c.logger.Info(msg, zap.Float64("percent", percent))
	if c.progress != nil {
		c.progress.SetPercentDone(percent)
		c.progress.SetMessage(msg)
	}
}

func (c *conversion) run() error {
	phases := []struct {
		percent float64
		msg     string
		fn      func() error
	}{
		{0, "Writing Texture Files", c.writeTextures},
		{10, "Writing Header", c.writeHeader},
		{20, "Writing Layers", c.writeLayers},
		{30, "Writing Materials", c.writeMaterials},
		{40, "Writing Definitions", c.writeDefinitions},
		{60, "Writing Geometry", c.writeGeometry},
	}
	for _, p := range phases {
		if err := c.checkpoint(p.percent, p.msg); err != nil {
			return err
		}
		if err := p.fn(); err != nil {
			return err
		}
	}
	if c.resolver.Depth() != 0 {
		panic("exporter: unbalanced scopes")
	}
	return nil
}

func (c *conversion) writeTextures() error {
	if !c.opts.ExportMaterials {
		return nil
	}
	w := texture.NewWriter(c.logger)
	n, err := w.Load(c.model, c.opts.MaterialsByLayer)
	if err != nil {
		return srcErr("loading textures", err)
	}
	c.stats.Textures = n
	if n == 0 {
		return nil
	}
	written, err := w.WriteAll(c.file.TextureDirectory())
	if err != nil {
		return fmt.Errorf("writing textures: %w", err)
	}
	c.logger.Debug("textures written", zap.Int("found", n), zap.Int("written", written))
	return nil
}

func (c *conversion) writeHeader() error {
	major, minor, build, err := c.model.Version()
	if err != nil {
		return srcErr("version", err)
	}
	c.file.WriteHeader(major, minor, build)
	return nil
}

func (c *conversion) writeLayers() error {
	if !c.opts.ExportLayers {
		return nil
	}
	layers, err := c.model.Layers()
	if err != nil {
		return srcErr("layers", err)
	}
	c.file.StartLayers()
	for _, l := range layers {
		info, err := layerInfo(l)
		if err != nil {
			return err
		}
		c.file.WriteLayer(info)
		c.stats.Layers++
	}
	c.file.Pop()
	return nil
}

func (c *conversion) writeMaterials() error {
	if !c.opts.ExportMaterials {
		return nil
	}
	var mats []source.Material
	if c.opts.MaterialsByLayer {
		layers, err := c.model.Layers()
		if err != nil {
			return srcErr("layers", err)
		}
		if len(layers) == 0 {
			return nil
		}
		for _, l := range layers {
			if m, ok := l.Material(); ok {
				mats = append(mats, m)
			}
		}
	} else {
		var err error
		if mats, err = c.model.Materials(); err != nil {
			return srcErr("materials", err)
		}
		if len(mats) == 0 {
			return nil
		}
	}

	c.file.StartMaterials()
	for _, m := range mats {
		info, err := materialInfo(m)
		if err != nil {
			return err
		}
		c.file.WriteMaterial(info)
	}
	c.file.Pop()
	return nil
}

func (c *conversion) writeDefinitions() error {
	defs, err := c.model.ComponentDefinitions()
	if err != nil {
		return srcErr("component definitions", err)
	}
	if len(defs) == 0 {
		return nil
	}
	c.file.StartComponentDefinitions()
	for _, d := range defs {
		name, err := d.Name()
		if err != nil {
			return srcErr("definition name", err)
		}
		ents, err := d.Entities()
		if err != nil {
			return srcErr("definition "+name, err)
		}
		c.file.StartComponentDefinition(name)
		if err := c.writeEntities(ents); err != nil {
			return err
		}
		c.file.Pop()
	}
	c.file.Pop()
	return nil
}

func (c *conversion) writeGeometry() error {
	if !c.opts.ExportFaces && !c.opts.ExportEdges {
		return nil
	}
	ents, err := c.model.Entities()
	if err != nil {
		return srcErr("entities", err)
	}
	c.file.StartGeometry()
	if err := c.writeEntities(ents); err != nil {
		return err
	}
	c.file.Pop()
	return nil
}

// writeEntities writes one level in schema order. Groups, faces and
// standalone edges enter the resolver; curve edges resolve against the
// enclosing scope.
func (c *conversion) writeEntities(ents source.Entities) error {
	insts, err := ents.Instances()
	if err != nil {
		return srcErr("instances", err)
	}
	for _, inst := range insts {
		info, err := instanceInfo(inst)
		if err != nil {
			return err
		}
		c.file.WriteComponentInstance(info)
	}

	groups, err := ents.Groups()
	if err != nil {
		return srcErr("groups", err)
	}
	for _, g := range groups {
		if err := c.resolver.Within(scope.GroupScope(g), func() error { return c.writeGroup(g) }); err != nil {
			return err
		}
	}

	if c.opts.ExportFaces {
		faces, err := ents.Faces()
		if err != nil {
			return srcErr("faces", err)
		}
		for _, f := range faces {
			if err := c.resolver.Within(scope.FaceScope(f), func() error { return c.writeFace(f) }); err != nil {
				return err
			}
		}
	}

	if c.opts.ExportEdges {
		edges, err := ents.Edges(true)
		if err != nil {
			return srcErr("edges", err)
		}
		for _, e := range edges {
			err := c.resolver.Within(scope.EdgeScope(e), func() error {
				info, err := c.edgeInfo(e)
				if err != nil {
					return err
				}
				c.file.WriteEdge(info)
				c.stats.Edges++
				return nil
			})
			if err != nil {
				return err
			}
		}

		curves, err := ents.Curves()
		if err != nil {
			return srcErr("curves", err)
		}
		for _, cv := range curves {
			if err := c.writeCurve(cv); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *conversion) writeGroup(g source.Group) error {
	children, err := g.Entities()
	if err != nil {
		return srcErr("group entities", err)
	}
	c.file.StartGroup()
	if err := c.writeEntities(children); err != nil {
		return err
	}
	xf, err := g.Transform()
	if err != nil {
		return srcErr("group transform", err)
	}
	c.file.WriteTransformation(xf)
	c.file.Pop()
	return nil
}

// writeFace writes the face's triangulated mesh. SingleLoop only records
// whether the face has holes; the vertices always come from the mesh, so a
// single-loop face is written as a Loop holding a triangle list.
func (c *conversion) writeFace(f source.Face) error {
	var info scene.FaceInfo

	if l := c.resolver.CurrentLayer(); l != nil {
		name, err := l.Name()
		if err != nil {
			return srcErr("layer name", err)
		}
		info.LayerName = name
	}

	if c.opts.ExportMaterials {
		var err error
		if info.FrontMaterial, info.HasFrontTexture, err = faceMaterial(c.resolver.CurrentFrontMaterial()); err != nil {
			return err
		}
		if info.BackMaterial, info.HasBackTexture, err = faceMaterial(c.resolver.CurrentBackMaterial()); err != nil {
			return err
		}
	}

	inner, err := f.InnerLoopCount()
	if err != nil {
		return srcErr("inner loops", err)
	}
	info.SingleLoop = inner == 0

	mesh, err := f.Mesh()
	if err != nil {
		return srcErr("face mesh", err)
	}
	if len(mesh.Vertices) == 0 {
		return nil
	}
	if err := mesh.Check(); err != nil {
		return srcErr("face mesh", err)
	}

	info.Vertices = make([]scene.FaceVertex, 0, len(mesh.Indices))
	for _, idx := range mesh.Indices {
		v := scene.FaceVertex{Position: mesh.Vertices[idx]}
		if info.HasFrontTexture && idx < len(mesh.FrontUV) {
			v.FrontUV = mesh.FrontUV[idx]
		}
		if info.HasBackTexture && idx < len(mesh.BackUV) {
			v.BackUV = mesh.BackUV[idx]
		}
		info.Vertices = append(info.Vertices, v)
	}

	c.file.WriteFace(info)
	c.stats.Faces++
	return nil
}

func faceMaterial(m source.Material) (string, bool, error) {
	if m == nil {
		return "", false, nil
	}
	name, err := m.Name()
	if err != nil {
		return "", false, srcErr("material name", err)
	}
	_, hasTexture := m.Texture()
	return name, hasTexture, nil
}

// edgeInfo flattens the inherited layer and color into an edge. The layer
// reference is written whenever layers are exported; its name is the edge's
// own layer, or the inherited one, and stays empty when nothing applies.
// The color is written whenever materials are exported and is black when no
// scope supplies one.
func (c *conversion) edgeInfo(e source.Edge) (scene.EdgeInfo, error) {
	var info scene.EdgeInfo

	if c.opts.ExportLayers {
		info.HasLayer = true
		if cur := c.resolver.CurrentLayer(); cur != nil {
			l, ok := e.Layer()
			if !ok {
				l = cur
			}
			name, err := l.Name()
			if err != nil {
				return info, srcErr("layer name", err)
			}
			info.LayerName = name
		}
	}

	if c.opts.ExportMaterials {
		info.HasColor = true
		info.Color, _ = c.resolver.CurrentEdgeColor()
	}

	var err error
	if info.Start, err = e.Start(); err != nil {
		return info, srcErr("edge start", err)
	}
	if info.End, err = e.End(); err != nil {
		return info, srcErr("edge end", err)
	}
	return info, nil
}

func (c *conversion) writeCurve(cv source.Curve) error {
	edges, err := cv.Edges()
	if err != nil {
		return srcErr("curve edges", err)
	}
	var info scene.CurveInfo
	for _, e := range edges {
		ei, err := c.edgeInfo(e)
		if err != nil {
			return err
		}
		info.Edges = append(info.Edges, ei)
	}
	c.file.WriteCurve(info)
	return nil
}

func instanceInfo(inst source.ComponentInstance) (scene.ComponentInstanceInfo, error) {
	var info scene.ComponentInstanceInfo

	def, err := inst.Definition()
	if err != nil {
		return info, srcErr("instance definition", err)
	}
	if info.DefinitionName, err = def.Name(); err != nil {
		return info, srcErr("definition name", err)
	}
	if l, ok := inst.Layer(); ok {
		if info.LayerName, err = l.Name(); err != nil {
			return info, srcErr("layer name", err)
		}
	}
	if m, ok := inst.Material(); ok {
		if info.MaterialName, err = m.Name(); err != nil {
			return info, srcErr("material name", err)
		}
	}
	if info.Transform, err = inst.Transform(); err != nil {
		return info, srcErr("instance transform", err)
	}
	return info, nil
}

func layerInfo(l source.Layer) (scene.LayerInfo, error) {
	var info scene.LayerInfo
	var err error
	if info.Name, err = l.Name(); err != nil {
		return info, srcErr("layer name", err)
	}
	if info.Visible, err = l.Visible(); err != nil {
		return info, srcErr("layer visibility", err)
	}
	if m, ok := l.Material(); ok {
		if info.Material, err = materialInfo(m); err != nil {
			return info, err
		}
		info.HasMaterial = true
	}
	return info, nil
}

// materialInfo reads color only for colored material types and texture
// data only for textured ones.
func materialInfo(m source.Material) (scene.MaterialInfo, error) {
	var info scene.MaterialInfo
	var err error
	if info.Name, err = m.Name(); err != nil {
		return info, srcErr("material name", err)
	}
	typ, err := m.Type()
	if err != nil {
		return info, srcErr("material type", err)
	}

	if typ.HasColor() {
		info.Color, info.HasColor = m.Color()
	}
	if info.Alpha, info.HasAlpha, err = m.Opacity(); err != nil {
		return info, srcErr("material opacity", err)
	}
	if typ.HasTexture() {
		if tex, ok := m.Texture(); ok {
			if info.TexturePath, err = tex.FileName(); err != nil {
				return info, srcErr("texture file name", err)
			}
			if info.TextureSScale, info.TextureTScale, err = tex.Scale(); err != nil {
				return info, srcErr("texture scale", err)
			}
			info.HasTexture = true
		}
	}
	return info, nil
}
