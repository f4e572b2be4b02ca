package exporter

// Options selects what a conversion writes.
type Options struct {
	// ExportMaterials writes the Materials section, face material
	// references, edge colors and texture files.
	ExportMaterials bool
	// ExportFaces writes faces into the entity trees.
	ExportFaces bool
	// ExportEdges writes standalone edges and curves.
	ExportEdges bool
	// ExportLayers writes the Layers section and edge layer references.
	ExportLayers bool
	// MaterialsByLayer replaces every element's material with the material
	// of its effective layer.
	MaterialsByLayer bool
	// StrictReferences makes ReadBack reject documents with dangling or
	// duplicate names.
	StrictReferences bool
}

// DefaultOptions exports everything with per-element materials.
func DefaultOptions() Options {
	return Options{
		ExportMaterials: true,
		ExportFaces:     true,
		ExportEdges:     true,
		ExportLayers:    true,
	}
}

// Stats counts what a conversion wrote.
type Stats struct {
	Textures int
	Faces    int
	Edges    int
	Layers   int
}

// Progress receives phase updates and may cancel a conversion.
type Progress interface {
	SetPercentDone(percent float64)
	SetMessage(msg string)
	Cancelled() bool
}
