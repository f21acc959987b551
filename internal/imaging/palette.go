package imaging

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Style sets the overlay colours of renders, as "#RRGGBB" or "#RRGGBBAA".
type Style struct {
	Click   string `json:"click"`
	Maximum string `json:"maximum"`
	Best    string `json:"best"`
	Outline string `json:"outline"`
	Mask    string `json:"mask"`
	Text    string `json:"text"`

	// HeatAlpha is the opacity of the heat layer, 0 to 255.
	HeatAlpha uint8 `json:"heat_alpha"`
}

// DefaultStyle returns red clicks and outlines, blue maxima with the best
// one in green, and a white mask.
func DefaultStyle() Style {
	return Style{
		Click:     "#FF0000",
		Maximum:   "#1E64FF",
		Best:      "#00FF00",
		Outline:   "#FF0000",
		Mask:      "#FFFFFF",
		Text:      "#FFFFFF",
		HeatAlpha: 170,
	}
}

// palette is a parsed Style.
type palette struct {
	click, maximum, best, outline, mask, text color.RGBA
	heatAlpha                                 uint8
}

func (s Style) parse() (palette, error) {
	var p palette
	for _, c := range []struct {
		name string
		hex  string
		dst  *color.RGBA
	}{
		{"click", s.Click, &p.click},
		{"maximum", s.Maximum, &p.maximum},
		{"best", s.Best, &p.best},
		{"outline", s.Outline, &p.outline},
		{"mask", s.Mask, &p.mask},
		{"text", s.Text, &p.text},
	} {
		v, err := parseHexColor(c.hex)
		if err != nil {
			return palette{}, fmt.Errorf("invalid %s colour %q: %w", c.name, c.hex, err)
		}
		*c.dst = v
	}
	p.heatAlpha = s.HeatAlpha
	return p, nil
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// heatStops run from cold to hot.
var heatStops = []colorful.Color{
	mustHex("#00007F"),
	mustHex("#0000FF"),
	mustHex("#00FFFF"),
	mustHex("#FFFF00"),
	mustHex("#FF0000"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// heat maps t in [0, 1] onto the ramp, blending neighbouring stops in Lab
// space. Values outside the range are clamped.
func heat(t float64, alpha uint8) color.NRGBA {
	switch {
	case t <= 0:
		t = 0
	case t >= 1:
		t = 1
	}
	pos := t * float64(len(heatStops)-1)
	i := int(pos)
	c := heatStops[len(heatStops)-1]
	if i < len(heatStops)-1 {
		c = heatStops[i].BlendLab(heatStops[i+1], pos-float64(i)).Clamped()
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}
