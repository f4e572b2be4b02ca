package source

import (
	"errors"
	"fmt"

	"github.com/Faultbox/skp2xml/pkg/math"
)

// Mesh errors.
var (
	ErrMeshIndex  = errors.New("mesh index out of range")
	ErrMeshLength = errors.New("mesh buffer length mismatch")
)

// Mesh is a triangulated face: a vertex buffer, an index buffer with three
// entries per triangle, and optional per-vertex texture coordinates parallel
// to Vertices.
type Mesh struct {
	Vertices []math.Point3
	Normals  []math.Vec3
	Indices  []int
	FrontUV  []math.Vec2
	BackUV   []math.Vec2
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Check verifies the buffers agree with each other.
func (m *Mesh) Check() error {
	n := len(m.Vertices)
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrMeshLength, len(m.Indices))
	}
	for _, buf := range []struct {
		name string
		len  int
	}{
		{"normals", len(m.Normals)},
		{"front uv", len(m.FrontUV)},
		{"back uv", len(m.BackUV)},
	} {
		if buf.len != 0 && buf.len != n {
			return fmt.Errorf("%w: %s has %d entries for %d vertices", ErrMeshLength, buf.name, buf.len, n)
		}
	}
	for _, idx := range m.Indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: %d of %d", ErrMeshIndex, idx, n)
		}
	}
	return nil
}

// FanTriangulate builds a mesh for a convex polygon loop by fanning out from
// the first vertex. uv buffers may be nil.
func FanTriangulate(loop []math.Point3, front, back []math.Vec2) *Mesh {
	m := &Mesh{
		Vertices: loop,
		FrontUV:  front,
		BackUV:   back,
	}
	if len(loop) >= 3 {
		normal := loop[1].Sub(loop[0]).Cross(loop[2].Sub(loop[0])).Normalize()
		m.Normals = make([]math.Vec3, len(loop))
		for i := range m.Normals {
			m.Normals[i] = normal
		}
	}
	for i := 1; i+1 < len(loop); i++ {
		m.Indices = append(m.Indices, 0, i, i+1)
	}
	return m
}
