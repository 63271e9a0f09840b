package densitymap

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Blend selects the color space a Gradient interpolates in.
type Blend int

const (
	// BlendRGB interpolates sRGB components directly.
	BlendRGB Blend = iota

	// BlendLinear interpolates in linear RGB, which brightens the middle of
	// dark ramps.
	BlendLinear

	// BlendLab interpolates in CIE L*a*b* for perceptually even steps.
	BlendLab

	// BlendHCL interpolates hue, chroma and luminance.
	BlendHCL
)

var blendNames = [...]string{"rgb", "linear", "lab", "hcl"}

// String returns the flag name of b.
func (b Blend) String() string {
	if b >= 0 && int(b) < len(blendNames) {
		return blendNames[b]
	}
	return fmt.Sprintf("Blend(%d)", int(b))
}

// ParseBlend parses a blend name as printed by Blend.String.
func ParseBlend(s string) (Blend, error) {
	for i, name := range blendNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Blend(i), nil
		}
	}
	return BlendRGB, fmt.Errorf("%w: unknown blend %q", ErrInvalidOptions, s)
}

// Gradient maps entropy scores to colors.
//
// Scores run from MinScore (uniform bytes) to MaxScore (every byte in the
// window distinct). Known pixels blend from Start at MinScore to End at
// MaxScore, in sRGB unless Blend says otherwise. Pixels without a
// successful sample are drawn in Unknown.
type Gradient struct {
	Start   RGBA // color at MinScore
	End     RGBA // color at MaxScore
	Unknown RGBA // color of pixels with no samples
	Blend   Blend
}

// DefaultGradient is the dark-red to salmon ramp used by the CLI.
var DefaultGradient = Gradient{
	Start:   Hex("#8E1616"),
	End:     Hex("#FF6363"),
	Unknown: Hex("#1D1616"),
}

// IsZero reports whether none of the colors of g are set.
func (g Gradient) IsZero() bool {
	return g.Start == RGBA{} && g.End == RGBA{} && g.Unknown == RGBA{}
}

// OrDefault returns g, or the DefaultGradient colors with g's Blend when g
// has no colors.
func (g Gradient) OrDefault() Gradient {
	if !g.IsZero() {
		return g
	}
	d := DefaultGradient
	d.Blend = g.Blend
	return d
}

// ColorFor returns the color of an average score. Averages outside
// [MinScore, MaxScore] are clamped.
func (g Gradient) ColorFor(avg float64) RGBA {
	t := clamp01((avg - MinScore) / (MaxScore - MinScore))
	switch t {
	case 0:
		return g.Start
	case 1:
		return g.End
	}
	if g.Blend == BlendRGB {
		return g.Start.Lerp(g.End, t)
	}

	a, b := g.Start.toColorful(), g.End.toColorful()
	var c colorful.Color
	switch g.Blend {
	case BlendLinear:
		c = blendLinear(a, b, t)
	case BlendLab:
		c = a.BlendLab(b, t)
	case BlendHCL:
		c = a.BlendHcl(b, t)
	default:
		return g.Start.Lerp(g.End, t)
	}
	c = c.Clamped()
	return RGBA{R: c.R, G: c.G, B: c.B, A: g.Start.A*(1-t) + g.End.A*t}
}

// PixelColor returns the color of a pixel state.
func (g Gradient) PixelColor(st PixelState) RGBA {
	avg, ok := st.Average()
	if !ok {
		return g.Unknown
	}
	return g.ColorFor(avg)
}

// blendLinear interpolates a and b in linear RGB.
func blendLinear(a, b colorful.Color, t float64) colorful.Color {
	ar, ag, ab := a.LinearRgb()
	br, bg, bb := b.LinearRgb()
	s := 1 - t
	return colorful.LinearRgb(ar*s+br*t, ag*s+bg*t, ab*s+bb*t)
}

// clamp01 clamps a value to [0, 1] range.
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
