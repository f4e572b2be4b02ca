package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skp2xml/pkg/math"
)

func TestFanTriangulate(t *testing.T) {
	quad := []math.Point3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}}
	m := FanTriangulate(quad, nil, nil)

	require.NoError(t, m.Check())
	assert.Equal(t, 2, m.TriangleCount())
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, m.Indices)
	require.Len(t, m.Normals, 4)
	assert.Equal(t, math.NewVec3(0, 0, 1), m.Normals[0])
}

func TestMeshCheck(t *testing.T) {
	tests := []struct {
		name    string
		mesh    Mesh
		wantErr error
	}{
		{"ok", Mesh{Vertices: make([]math.Point3, 3), Indices: []int{0, 1, 2}}, nil},
		{"partial triangle", Mesh{Vertices: make([]math.Point3, 3), Indices: []int{0, 1}}, ErrMeshLength},
		{"index out of range", Mesh{Vertices: make([]math.Point3, 3), Indices: []int{0, 1, 3}}, ErrMeshIndex},
		{"uv length", Mesh{Vertices: make([]math.Point3, 3), Indices: []int{0, 1, 2}, FrontUV: make([]math.Vec2, 2)}, ErrMeshLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Check()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMaterialType(t *testing.T) {
	assert.True(t, MaterialColored.HasColor())
	assert.False(t, MaterialColored.HasTexture())
	assert.False(t, MaterialTextured.HasColor())
	assert.True(t, MaterialColorizedTexture.HasColor())
	assert.True(t, MaterialColorizedTexture.HasTexture())
	assert.Equal(t, "Textured", MaterialTextured.String())
}
