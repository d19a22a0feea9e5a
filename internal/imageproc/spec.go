package imageproc

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var (
	ErrBadColor   = errors.New("color must be #rrggbb or #rgb")
	ErrBadOpacity = errors.New("opacity percent must be within 0..100")
)

// RGB is a watermark text color; alpha is never taken from here.
type RGB struct {
	R, G, B uint8
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// WithOpacity returns the fill color of the text layer.
func (c RGB) WithOpacity(a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}

// ParseHexColor accepts "#ff8800", "ff8800" and the short form "#f80".
func ParseHexColor(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// OpacityFromPercent converts the 0..100 slider scale to the 0..255 alpha scale.
func OpacityFromPercent(p int) (uint8, error) {
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: %d", ErrBadOpacity, p)
	}
	return uint8(math.Round(float64(p) * 255 / 100)), nil
}

// WatermarkSpec holds every parameter of one compositing pass. It is a value:
// build a new one for each apply instead of changing fields of a shared one.
type WatermarkSpec struct {
	Text    string
	Font    FontRef
	Size    int
	Color   RGB
	Opacity uint8
	Anchor  Anchor
}

// NewWatermarkSpec validates what the caller collected and returns a WatermarkSpec.
// Empty text is allowed and makes the pass a no-op.
func NewWatermarkSpec(text string, ref FontRef, size int, c RGB, opacity uint8, a Anchor) (WatermarkSpec, error) {
	spec := WatermarkSpec{
		Text:    text,
		Font:    ref,
		Size:    size,
		Color:   c,
		Opacity: opacity,
		Anchor:  a,
	}
	if err := spec.Validate(); err != nil {
		return WatermarkSpec{}, err
	}
	return spec, nil
}

func (s WatermarkSpec) Validate() error {
	if s.Size <= 0 {
		return &FontResolutionError{Font: s.Font, Size: s.Size, Err: errBadFontSize}
	}
	if s.Font == "" {
		return &FontResolutionError{Font: s.Font, Size: s.Size, Err: errors.New("empty font reference")}
	}
	if !s.Anchor.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAnchor, string(s.Anchor))
	}
	return nil
}
