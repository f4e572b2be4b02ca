package scene

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidColor is returned for color strings not in #rrggbb form.
var ErrInvalidColor = errors.New("invalid color: expected #rrggbb")

// Color is an 8-bit RGB color.
type Color struct {
	R, G, B uint8
}

// RGB returns the color (r, g, b).
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Hex returns the color as lowercase "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// Float returns the channels scaled to 0..1.
func (c Color) Float() (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// ParseHexColor parses "#rrggbb". Upper case digits are accepted.
func ParseHexColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	var ch [3]uint8
	for i := range ch {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		ch[i] = uint8(v)
	}
	return Color{R: ch[0], G: ch[1], B: ch[2]}, nil
}
