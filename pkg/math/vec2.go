package math

// Vec2 is a 2D vector. Texture coordinates use X as u and Y as v.
type Vec2 struct {
	X, Y float64
}

// UV returns the texture coordinate (u, v).
func UV(u, v float64) Vec2 {
	return Vec2{X: u, Y: v}
}

// U returns the horizontal texture coordinate.
func (v Vec2) U() float64 { return v.X }

// V returns the vertical texture coordinate.
func (v Vec2) V() float64 { return v.Y }

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}
