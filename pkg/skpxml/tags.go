package skpxml

// Element names.
const (
	TagSkpToXML             = "SkpToXML"
	TagLayers               = "Layers"
	TagLayer                = "Layer"
	TagMaterials            = "Materials"
	TagMaterial             = "Material"
	TagTexture              = "Texture"
	TagComponentDefinitions = "ComponentDefinitions"
	TagComponentDefinition  = "ComponentDefinition"
	TagComponentInstance    = "ComponentInstance"
	TagGeometry             = "Geometry"
	TagGroup                = "Group"
	TagTransformation       = "Transformation"
	TagFace                 = "Face"
	TagFrontMaterial        = "FrontMaterial"
	TagBackMaterial         = "BackMaterial"
	TagLoop                 = "Loop"
	TagTriangles            = "Triangles"
	TagVertex               = "Vertex"
	TagPoint                = "Point"
	TagFrontTextureCoords   = "FrontTextureCoords"
	TagBackTextureCoords    = "BackTextureCoords"
	TagEdge                 = "Edge"
	TagStart                = "Start"
	TagEnd                  = "End"
	TagCurve                = "Curve"
)

// Attribute names.
const (
	AttrXMLVersion = "xmlversion"
	AttrSkpVersion = "skpversion"
	AttrUnits      = "units"
	AttrName       = "Name"
	AttrVisible    = "Visible"
	AttrColor      = "Color"
	AttrAlpha      = "Alpha"
	AttrPath       = "Path"
	AttrSScale     = "Scale_s"
	AttrTScale     = "Scale_t"
	AttrHasTexture = "HasTexture"
	AttrCount      = "Count"
	AttrX          = "x"
	AttrY          = "y"
	AttrZ          = "z"
	AttrU          = "u"
	AttrV          = "v"
)

// Fixed header values.
const (
	SchemaVersion = 3
	Units         = "inches"
)

// matrixAttr returns the Transformation attribute name for (row, col).
func matrixAttr(row, col int) string {
	return string([]byte{'m', byte('0' + row), byte('0' + col)})
}
