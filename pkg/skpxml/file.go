// Package skpxml reads and writes SkpToXML documents.
//
// A File opened with Create is written through a cursor: StartX opens an
// element as the last child of the cursor and moves into it, Pop moves back
// out. The WriteX helpers open, fill and pop their element so they never
// leave the cursor somewhere else. Nothing reaches disk until Close.
//
// A File opened with Open or Decode is read with ModelInfo.
package skpxml

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/beevik/etree"
)

// Document errors.
var (
	ErrNotSkpToXML           = errors.New("not a SkpToXML document")
	ErrVersionMismatch       = errors.New("unsupported xmlversion")
	ErrUnexpectedElement     = errors.New("unexpected element")
	ErrMissingElement        = errors.New("missing element")
	ErrMissingAttribute      = errors.New("missing attribute")
	ErrBadAttribute          = errors.New("malformed attribute")
	ErrMissingTransformation = errors.New("missing trailing Transformation")
	ErrTriangleCount         = errors.New("triangle count does not match vertex count")
	ErrClosed                = errors.New("document is closed")
)

// Version is the source model's version triple.
type Version struct {
	Major, Minor, Build int
}

// String returns "major.minor.build".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Header is the root element's metadata.
type Header struct {
	XMLVersion int
	// SourceVersion is nil when the document has no skpversion.
	SourceVersion *semver.Version
	Units         string
}

// File is an SkpToXML document being written or read.
type File struct {
	path   string
	create bool
	doc    *etree.Document

	cursor *etree.Element
	depth  int
	root   *etree.Element

	header Header
}

// Create starts a new document that will be saved to path on Close. The
// destination directory is created if needed.
func Create(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("skpxml: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return &File{
		path:   path,
		create: true,
		doc:    doc,
		cursor: &doc.Element,
	}, nil
}

// Open reads the document at path and checks its header.
func Open(path string) (*File, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := newReader(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Decode reads a document from r and checks its header.
func Decode(r io.Reader) (*File, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return newReader(doc)
}

func newReader(doc *etree.Document) (*File, error) {
	f := &File{doc: doc, cursor: &doc.Element}
	if err := f.readHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// readHeader checks that the first element is SkpToXML with xmlversion 3.
func (f *File) readHeader() error {
	root := f.doc.Root()
	if root == nil || root.Tag != TagSkpToXML {
		return ErrNotSkpToXML
	}

	attr := root.SelectAttr(AttrXMLVersion)
	if attr == nil {
		return fmt.Errorf("%w: no %s attribute", ErrVersionMismatch, AttrXMLVersion)
	}
	version, err := strconv.Atoi(attr.Value)
	if err != nil || version != SchemaVersion {
		return fmt.Errorf("%w: %q", ErrVersionMismatch, attr.Value)
	}

	f.root = root
	f.header = Header{
		XMLVersion: version,
		Units:      root.SelectAttrValue(AttrUnits, ""),
	}
	if s := root.SelectAttrValue(AttrSkpVersion, ""); s != "" {
		v, err := semver.NewVersion(s)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrBadAttribute, AttrSkpVersion, s, err)
		}
		f.header.SourceVersion = v
	}
	return nil
}

// Header returns the root metadata. It is zero for a created document until
// WriteHeader is called.
func (f *File) Header() Header {
	return f.header
}

// Path returns the document path, empty for decoded documents.
func (f *File) Path() string {
	return f.path
}

// TextureDirectory returns the directory of the document with a trailing
// separator.
func (f *File) TextureDirectory() string {
	return filepath.Dir(f.path) + string(filepath.Separator)
}

// Close releases the document. A created document is saved first unless
// cancelled is set; the save goes through a temporary file in the same
// directory, so the destination is either the complete document or absent.
func (f *File) Close(cancelled bool) error {
	if f.doc == nil {
		return nil
	}
	doc := f.doc
	f.doc, f.cursor, f.root = nil, nil, nil
	if !f.create || cancelled {
		return nil
	}
	return save(doc, f.path)
}

func save(doc *etree.Document, path string) error {
	doc.Indent(2)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := doc.WriteTo(tmp); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	ok = true
	return nil
}

// WriteHeader adds the SkpToXML root element and moves the cursor into it.
// Sections written afterwards become children of the root.
func (f *File) WriteHeader(major, minor, build int) {
	if f.root != nil {
		panic("skpxml: header written twice")
	}
	if f.depth != 0 {
		panic("skpxml: WriteHeader with open elements")
	}
	v := Version{major, minor, build}
	root := f.doc.CreateElement(TagSkpToXML)
	root.CreateAttr(AttrXMLVersion, strconv.Itoa(SchemaVersion))
	root.CreateAttr(AttrSkpVersion, v.String())
	root.CreateAttr(AttrUnits, Units)

	f.root = root
	f.cursor = root
	f.header = Header{
		XMLVersion:    SchemaVersion,
		SourceVersion: semver.New(uint64(max(major, 0)), uint64(max(minor, 0)), uint64(max(build, 0)), "", ""),
		Units:         Units,
	}
}

// start opens a child of the cursor and moves into it.
func (f *File) start(tag string) *etree.Element {
	if f.doc == nil {
		panic("skpxml: write after Close")
	}
	el := f.cursor.CreateElement(tag)
	f.cursor = el
	f.depth++
	return el
}

// Pop moves the cursor to the parent of the current element. Popping past
// the root is a programming error and panics.
func (f *File) Pop() {
	if f.depth == 0 {
		panic("skpxml: Pop at root")
	}
	f.cursor = f.cursor.Parent()
	f.depth--
}

// Depth returns the number of elements opened below the root.
func (f *File) Depth() int {
	return f.depth
}

// StartLayers opens the Layers section.
func (f *File) StartLayers() { f.start(TagLayers) }

// StartMaterials opens the Materials section.
func (f *File) StartMaterials() { f.start(TagMaterials) }

// StartComponentDefinitions opens the ComponentDefinitions section.
func (f *File) StartComponentDefinitions() { f.start(TagComponentDefinitions) }

// StartComponentDefinition opens a named definition.
func (f *File) StartComponentDefinition(name string) {
	f.start(TagComponentDefinition).CreateAttr(AttrName, name)
}

// StartGeometry opens the Geometry section.
func (f *File) StartGeometry() { f.start(TagGeometry) }

// StartGroup opens a Group. The group's Transformation must be written last,
// right before the matching Pop.
func (f *File) StartGroup() { f.start(TagGroup) }
