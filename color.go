package densitymap

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBA represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1]. The components are not
// premultiplied.
type RGBA struct {
	R, G, B, A float64
}

// RGBA implements the color.Color interface.
func (c RGBA) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// NRGBA converts c to an 8-bit non-premultiplied color, rounding each
// channel to the nearest value.
func (c RGBA) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: to8(c.R),
		G: to8(c.G),
		B: to8(c.B),
		A: to8(c.A),
	}
}

// FromColor converts a standard color.Color to RGBA.
func FromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA) //nolint:errcheck // NRGBAModel always returns NRGBA
	return RGBA{
		R: float64(n.R) / 255,
		G: float64(n.G) / 255,
		B: float64(n.B) / 255,
		A: float64(n.A) / 255,
	}
}

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float64) RGBA {
	return RGBA{R: r, G: g, B: b, A: 1.0}
}

// Hex creates a color from a hex string.
// Supports formats: "RGB", "RGBA", "RRGGBB", "RRGGBBAA", with or without
// a leading '#'. Malformed input yields opaque black.
func Hex(hex string) RGBA {
	c, ok := ParseHex(hex)
	if !ok {
		return RGB(0, 0, 0)
	}
	return c
}

// ParseHex is like Hex but reports whether hex was well formed.
// The color digits are decoded by go-colorful; the alpha pair, if any,
// is decoded here.
func ParseHex(hex string) (RGBA, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 || len(hex) == 4 {
		hex = expandShortHex(hex)
	}
	if len(hex) != 6 && len(hex) != 8 {
		return RGBA{}, false
	}
	// fmt.Sscanf inside colorful.Hex tolerates signs, ParseUint does not.
	if _, err := strconv.ParseUint(hex, 16, 64); err != nil {
		return RGBA{}, false
	}

	c, err := colorful.Hex("#" + hex[:6])
	if err != nil {
		return RGBA{}, false
	}
	a := uint64(0xFF)
	if len(hex) == 8 {
		a, _ = strconv.ParseUint(hex[6:], 16, 8)
	}
	return RGBA{R: c.R, G: c.G, B: c.B, A: float64(a) / 255}, true
}

// expandShortHex turns "f0a" into "ff00aa".
func expandShortHex(s string) string {
	var b strings.Builder
	for i := range len(s) {
		b.WriteByte(s[i])
		b.WriteByte(s[i])
	}
	return b.String()
}

// Hex returns c as "#RRGGBB", or "#RRGGBBAA" when c is not opaque.
func (c RGBA) Hex() string {
	out := strings.ToUpper(c.toColorful().Clamped().Hex())
	if a := to8(c.A); a != 0xFF {
		out += fmt.Sprintf("%02X", a)
	}
	return out
}

// toColorful drops alpha.
func (c RGBA) toColorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

// Lerp performs linear interpolation between two colors. t = 0 yields c
// and t = 1 yields other exactly.
func (c RGBA) Lerp(other RGBA, t float64) RGBA {
	s := 1 - t
	return RGBA{
		R: c.R*s + other.R*t,
		G: c.G*s + other.G*t,
		B: c.B*s + other.B*t,
		A: c.A*s + other.A*t,
	}
}

// to8 converts a [0, 1] channel to 8 bits.
func to8(v float64) uint8 {
	return uint8(math.Round(clamp255(v * 255)))
}

// clamp255 restricts a value to [0, 255] range.
func clamp255(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return x
}

// Common colors
var (
	Black = RGB(0, 0, 0)
	White = RGB(1, 1, 1)
)
