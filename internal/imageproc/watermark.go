// Package imageproc provides the watermark engine: display scaling, anchor layout,
// text compositing and image decoding/encoding.
package imageproc

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// TextLayout describes where a single line of text lands on the original.
type TextLayout struct {
	Dot     fixed.Point26_6 // baseline origin for the rasterizer
	Advance fixed.Int26_6
	Box     image.Rectangle // advance width x (ascender..descender), in pixels
}

// LayoutText aligns the line box of text against loc. The alignment point is
// taken on the line box, never on the overlay image corner.
func LayoutText(face font.Face, text string, loc Location) TextLayout {
	m := face.Metrics()
	adv := font.MeasureString(face, text)

	x := loc.Point.X
	switch loc.HAlign {
	case AlignMiddle:
		x -= adv / 2
	case AlignRight:
		x -= adv
	}

	y := loc.Point.Y
	switch loc.VAlign {
	case AlignAscender:
		y += m.Ascent
	case AlignCenterLine:
		y += (m.Ascent - m.Descent) / 2
	case AlignDescender:
		y -= m.Descent
	}

	return TextLayout{
		Dot:     fixed.Point26_6{X: x, Y: y},
		Advance: adv,
		Box: image.Rect(
			x.Floor(), (y - m.Ascent).Floor(),
			(x + adv).Ceil(), (y + m.Descent).Ceil(),
		),
	}
}

// Compositor renders a WatermarkSpec onto full resolution originals.
type Compositor struct {
	fonts FaceResolver
}

func NewCompositor(fonts FaceResolver) *Compositor {
	return &Compositor{fonts: fonts}
}

// Composite returns a new image with spec.Text blended over a copy of original.
// original is only read. Font problems abort the pass before anything is drawn.
func (c *Compositor) Composite(original image.Image, spec WatermarkSpec) (*image.NRGBA, error) {
	if original == nil {
		return nil, &InvalidImageError{Op: "composite"}
	}
	b := original.Bounds()
	if err := checkDimensions("composite", b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if c.fonts == nil {
		return nil, &FontResolutionError{Font: spec.Font, Size: spec.Size, Err: errors.New("no font resolver configured")}
	}

	face, err := c.fonts.Face(spec.Font, spec.Size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	// нечего рисовать - отдаем копию с альфа-каналом
	if spec.Text == "" || spec.Opacity == 0 {
		return imaging.Clone(original), nil
	}

	loc, err := LocationFor(spec.Anchor, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	layout := LayoutText(face, spec.Text, loc)

	// прозрачный слой размером с оригинал
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetFontFace(face)
	dc.SetColor(spec.Color.WithOpacity(spec.Opacity))
	dc.DrawString(spec.Text, float64(layout.Dot.X)/64, float64(layout.Dot.Y)/64)

	ink := inkRect(face, spec.Text, layout.Dot).Intersect(image.Rect(0, 0, b.Dx(), b.Dy()))
	if ink.Empty() {
		return imaging.Clone(original), nil
	}

	overlay, ok := dc.Image().(*image.RGBA)
	if !ok {
		return imaging.Overlay(original, dc.Image(), b.Min, 1.0), nil
	}
	return imaging.Overlay(original, overlay.SubImage(ink), b.Min.Add(ink.Min), 1.0), nil
}

// inkRect is the pixel area glyphs may touch, padded by a pixel for antialiasing.
func inkRect(face font.Face, text string, dot fixed.Point26_6) image.Rectangle {
	bounds, _ := font.BoundString(face, text)
	return image.Rect(
		(dot.X+bounds.Min.X).Floor()-1, (dot.Y+bounds.Min.Y).Floor()-1,
		(dot.X+bounds.Max.X).Ceil()+1, (dot.Y+bounds.Max.Y).Ceil()+1,
	)
}
