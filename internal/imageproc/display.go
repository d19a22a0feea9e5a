package imageproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Viewport is the fixed area available for previews.
type Viewport struct {
	Width  int
	Height int
}

// DefaultViewport matches the preview canvas of the desktop editor (1200x800
// window minus the 450px sidebar and two 50px header rows).
var DefaultViewport = Viewport{Width: 750, Height: 700}

func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return ErrInvalidViewport
	}
	return nil
}

// ScaledView is a preview-only image. Scale is the divisor applied to the
// source dimensions, 1.0 when the image was returned as is.
type ScaledView struct {
	Image image.Image
	Scale float64
}

// ToSource maps a preview pixel back to source coordinates.
func (v ScaledView) ToSource(p image.Point) image.Point {
	return image.Pt(
		int(math.Round(float64(p.X)*v.Scale)),
		int(math.Round(float64(p.Y)*v.Scale)),
	)
}

// ScaleForDisplay fits img into vp keeping the aspect ratio. Images that
// already fit are returned unchanged. New sizes are rounded with math.Round
// (half away from zero).
func ScaleForDisplay(img image.Image, vp Viewport) (ScaledView, error) {
	if err := vp.Validate(); err != nil {
		return ScaledView{}, err
	}
	if img == nil {
		return ScaledView{}, &InvalidImageError{Op: "scale"}
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if err := checkDimensions("scale", w, h); err != nil {
		return ScaledView{}, err
	}

	if h <= vp.Height && w <= vp.Width {
		return ScaledView{Image: img, Scale: 1.0}, nil
	}

	hRatio := float64(h) / float64(vp.Height)
	wRatio := float64(w) / float64(vp.Width)
	ratio := math.Max(hRatio, wRatio)

	newW := max(1, int(math.Round(float64(w)/ratio)))
	newH := max(1, int(math.Round(float64(h)/ratio)))

	return ScaledView{
		Image: imaging.Resize(img, newW, newH, imaging.Lanczos),
		Scale: ratio,
	}, nil
}
