package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

var testFill = color.NRGBA{R: 100, G: 100, B: 200, A: 255}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, testFill)
		}
	}
	return img
}

func testImageReader(t *testing.T, w, h int, format imaging.Format) *bytes.Reader {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, testImage(w, h), format))

	return bytes.NewReader(buf.Bytes())
}

func testSpec(text string, anchor Anchor) WatermarkSpec {
	return WatermarkSpec{
		Text:    text,
		Font:    BuiltinRegular,
		Size:    48,
		Color:   RGB{R: 255},
		Opacity: 255,
		Anchor:  anchor,
	}
}

func clonePix(img *image.NRGBA) []byte {
	res := make([]byte, len(img.Pix))
	copy(res, img.Pix)
	return res
}
