package scene

// Counts tallies the records in a model, descending into groups and
// definitions.
type Counts struct {
	Layers      int
	Materials   int
	Definitions int
	Instances   int
	Groups      int
	Faces       int
	Triangles   int
	Edges       int // standalone edges plus curve edges
	Curves      int
}

// Counts returns the record totals of the model.
func (m *ModelInfo) Counts() Counts {
	c := Counts{
		Layers:      len(m.Layers),
		Materials:   len(m.Materials),
		Definitions: len(m.Definitions),
	}
	for _, d := range m.Definitions {
		c.addEntities(d.Entities)
	}
	c.addEntities(m.Entities)
	return c
}

func (c *Counts) addEntities(e EntitiesInfo) {
	c.Instances += len(e.Instances)
	c.Groups += len(e.Groups)
	c.Faces += len(e.Faces)
	c.Edges += len(e.Edges)
	c.Curves += len(e.Curves)
	for _, f := range e.Faces {
		if !f.SingleLoop {
			c.Triangles += f.TriangleCount()
		}
	}
	for _, cv := range e.Curves {
		c.Edges += len(cv.Edges)
	}
	for _, g := range e.Groups {
		c.addEntities(g.Entities)
	}
}
