package imageproc

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

type faceResolverMock struct {
	FaceFunc func(ref FontRef, size int) (font.Face, error)
}

func (m *faceResolverMock) Face(ref FontRef, size int) (font.Face, error) {
	return m.FaceFunc(ref, size)
}

func TestLayoutText_EdgeAnchors(t *testing.T) {
	loader := NewFontLoader(0)
	texts := []string{"Watermark", "i", "WWWWWW", "© 2024 photo"}
	fonts := []FontRef{BuiltinRegular, BuiltinBold, BuiltinMono}

	for _, ref := range fonts {
		for _, size := range []int{24, 90, 333} {
			face, err := loader.Face(ref, size)
			require.NoError(t, err)

			for _, text := range texts {
				loc, err := LocationFor(AnchorBottomRight, 1000, 800)
				require.NoError(t, err)
				box := LayoutText(face, text, loc).Box
				require.Equal(t, image.Pt(980, 800), box.Max, "%s %d %q", ref, size, text)

				loc, err = LocationFor(AnchorTopLeft, 1000, 800)
				require.NoError(t, err)
				box = LayoutText(face, text, loc).Box
				require.Equal(t, image.Pt(20, 20), box.Min, "%s %d %q", ref, size, text)
			}
			require.NoError(t, face.Close())
		}
	}
}

func TestLayoutText_CenterIsSymmetric(t *testing.T) {
	face, err := NewFontLoader(0).Face(BuiltinRegular, 100)
	require.NoError(t, err)

	loc, err := LocationFor(AnchorCenter, 1000, 800)
	require.NoError(t, err)
	box := LayoutText(face, "centered", loc).Box

	require.InDelta(t, 1000-box.Max.X, box.Min.X, 1)
	require.InDelta(t, 800-box.Max.Y, box.Min.Y, 1)
}

func TestCompositor_Composite(t *testing.T) {
	c := NewCompositor(NewFontLoader(0))

	t.Run("does not touch the original", func(t *testing.T) {
		img := testImage(400, 300)
		before := clonePix(img)

		res, err := c.Composite(img, testSpec("Hello", AnchorCenter))
		require.NoError(t, err)
		require.Equal(t, before, img.Pix)
		require.NotEqual(t, img.Pix, res.Pix)
		require.Equal(t, img.Bounds(), res.Bounds())
	})

	t.Run("empty text is a no-op", func(t *testing.T) {
		img := testImage(200, 100)
		res, err := c.Composite(img, testSpec("", AnchorTopLeft))
		require.NoError(t, err)
		require.Equal(t, img.Pix, res.Pix)
		require.NotSame(t, img, res)
	})

	t.Run("zero opacity is a no-op", func(t *testing.T) {
		img := testImage(200, 100)
		spec := testSpec("invisible", AnchorCenter)
		spec.Opacity = 0

		res, err := c.Composite(img, spec)
		require.NoError(t, err)
		require.Equal(t, img.Pix, res.Pix)
	})

	t.Run("full opacity paints solid text color", func(t *testing.T) {
		img := testImage(400, 400)
		spec := testSpec("H", AnchorCenter)
		spec.Size = 200

		res, err := c.Composite(img, spec)
		require.NoError(t, err)

		solid := 0
		for y := 0; y < 400; y++ {
			for x := 0; x < 400; x++ {
				p := res.NRGBAAt(x, y)
				if p.A == 255 && p.R >= 254 && p.G <= 1 && p.B <= 1 {
					solid++
				}
			}
		}
		require.Positive(t, solid)
	})

	t.Run("half opacity blends with the original", func(t *testing.T) {
		img := testImage(400, 400)
		spec := testSpec("H", AnchorCenter)
		spec.Size = 200
		spec.Opacity = 128

		res, err := c.Composite(img, spec)
		require.NoError(t, err)

		blended := 0
		for y := 0; y < 400; y++ {
			for x := 0; x < 400; x++ {
				p := res.NRGBAAt(x, y)
				require.LessOrEqual(t, p.R, uint8(190), "no pixel may reach the pure text color")
				if p.A == 255 && p.R >= 170 && p.R <= 185 && p.B >= 95 && p.B <= 105 {
					blended++
				}
			}
		}
		require.Positive(t, blended)
	})

	t.Run("bottom right text stays inside the inset", func(t *testing.T) {
		img := testImage(1000, 800)
		spec := testSpec("Watermark", AnchorBottomRight)
		spec.Size = 90

		res, err := c.Composite(img, spec)
		require.NoError(t, err)

		changed := 0
		for y := 0; y < 800; y++ {
			for x := 0; x < 1000; x++ {
				if res.NRGBAAt(x, y) == testFill {
					continue
				}
				changed++
				require.LessOrEqual(t, x, 981, "ink at (%d,%d)", x, y)
			}
		}
		require.Positive(t, changed)
	})

	t.Run("text larger than the image is clipped", func(t *testing.T) {
		img := testImage(50, 40)
		spec := testSpec("ENORMOUS", AnchorCenter)
		spec.Size = 300

		res, err := c.Composite(img, spec)
		require.NoError(t, err)
		require.Equal(t, img.Bounds(), res.Bounds())
	})

	t.Run("non zero origin", func(t *testing.T) {
		src := testImage(300, 300)
		sub := src.SubImage(image.Rect(100, 100, 300, 300))

		res, err := c.Composite(sub, testSpec("sub", AnchorTopLeft))
		require.NoError(t, err)
		require.Equal(t, 200, res.Bounds().Dx())
		require.Equal(t, 200, res.Bounds().Dy())
	})
}

func TestCompositor_Composite_Errors(t *testing.T) {
	loader := NewFontLoader(0)

	tests := []struct {
		name   string
		fonts  FaceResolver
		img    image.Image
		spec   WatermarkSpec
		assert func(t *testing.T, err error)
	}{
		{
			name:  "zero font size",
			fonts: loader,
			img:   testImage(100, 100),
			spec:  WatermarkSpec{Text: "x", Font: BuiltinRegular, Size: 0, Opacity: 255, Anchor: AnchorCenter},
			assert: func(t *testing.T, err error) {
				var target *FontResolutionError
				require.ErrorAs(t, err, &target)
				require.Equal(t, 0, target.Size)
			},
		},
		{
			name:  "missing font file",
			fonts: loader,
			img:   testImage(100, 100),
			spec:  WatermarkSpec{Text: "x", Font: "/nonexistent/font.ttf", Size: 12, Opacity: 255, Anchor: AnchorCenter},
			assert: func(t *testing.T, err error) {
				var target *FontResolutionError
				require.ErrorAs(t, err, &target)
				require.Equal(t, FontRef("/nonexistent/font.ttf"), target.Font)
			},
		},
		{
			name:  "unknown anchor",
			fonts: loader,
			img:   testImage(100, 100),
			spec:  WatermarkSpec{Text: "x", Font: BuiltinRegular, Size: 12, Opacity: 255, Anchor: "nowhere"},
			assert: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrUnknownAnchor)
			},
		},
		{
			name:  "nil image",
			fonts: loader,
			img:   nil,
			spec:  testSpec("x", AnchorCenter),
			assert: func(t *testing.T, err error) {
				var target *InvalidImageError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name:  "empty image",
			fonts: loader,
			img:   image.NewNRGBA(image.Rect(0, 0, 0, 0)),
			spec:  testSpec("x", AnchorCenter),
			assert: func(t *testing.T, err error) {
				var target *InvalidImageError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "resolver failure",
			fonts: &faceResolverMock{FaceFunc: func(ref FontRef, size int) (font.Face, error) {
				return nil, &FontResolutionError{Font: ref, Size: size, Err: errors.New("boom")}
			}},
			img:  testImage(100, 100),
			spec: testSpec("x", AnchorCenter),
			assert: func(t *testing.T, err error) {
				var target *FontResolutionError
				require.ErrorAs(t, err, &target)
				require.EqualError(t, target.Err, "boom")
			},
		},
		{
			name:  "no resolver",
			fonts: nil,
			img:   testImage(100, 100),
			spec:  testSpec("x", AnchorCenter),
			assert: func(t *testing.T, err error) {
				var target *FontResolutionError
				require.ErrorAs(t, err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before []byte
			if nrgba, ok := tt.img.(*image.NRGBA); ok {
				before = clonePix(nrgba)
			}

			res, err := NewCompositor(tt.fonts).Composite(tt.img, tt.spec)
			require.Error(t, err)
			require.Nil(t, res)
			tt.assert(t, err)

			if nrgba, ok := tt.img.(*image.NRGBA); ok {
				require.Equal(t, before, nrgba.Pix)
			}
		})
	}
}

func TestNewWatermarkSpec(t *testing.T) {
	_, err := NewWatermarkSpec("ok", BuiltinRegular, 90, RGB{R: 255, G: 255, B: 255}, 128, AnchorCenter)
	require.NoError(t, err)

	_, err = NewWatermarkSpec("", BuiltinRegular, 90, RGB{}, 0, AnchorCenter)
	require.NoError(t, err)

	_, err = NewWatermarkSpec("bad", BuiltinRegular, -1, RGB{}, 10, AnchorCenter)
	var target *FontResolutionError
	require.ErrorAs(t, err, &target)

	_, err = NewWatermarkSpec("bad", "", 10, RGB{}, 10, AnchorCenter)
	require.ErrorAs(t, err, &target)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{in: "#ff8800", want: RGB{R: 0xff, G: 0x88}},
		{in: "FFFFFF", want: RGB{R: 255, G: 255, B: 255}},
		{in: "#f80", want: RGB{R: 0xff, G: 0x88}},
		{in: " #000000 ", want: RGB{}},
		{in: "#12345", wantErr: true},
		{in: "#gg0000", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadColor)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	require.Equal(t, "#ff8800", RGB{R: 0xff, G: 0x88}.Hex())
}

func TestOpacityFromPercent(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{0, 0},
		{50, 128},
		{100, 255},
		{1, 3},
		{99, 252},
	}
	for _, tt := range tests {
		got, err := OpacityFromPercent(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "percent %d", tt.in)
	}

	_, err := OpacityFromPercent(101)
	require.ErrorIs(t, err, ErrBadOpacity)
	_, err = OpacityFromPercent(-1)
	require.ErrorIs(t, err, ErrBadOpacity)
}
