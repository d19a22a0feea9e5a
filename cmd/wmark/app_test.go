package main

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 40, B: 60, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, imageproc.Save(img, path))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"wmark"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestApply(t *testing.T) {
	in := writeTestImage(t, 1000, 800)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.png")
	preview := filepath.Join(dir, "preview.png")

	stdout, stderr, err := run(t, "apply",
		"--in", in, "--out", out, "--preview", preview,
		"--text", "Sample", "--font", "Go Bold", "--size", "60",
		"--color", "#ffffff", "--opacity", "100", "--anchor", "bottom-right",
	)
	require.NoError(t, err)
	require.Empty(t, stderr)
	require.Contains(t, stdout, "saved "+out)
	require.Contains(t, stdout, "preview "+preview+" 750x600")

	src, err := imageproc.Load(in)
	require.NoError(t, err)
	res, err := imageproc.Load(out)
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), res.Bounds())
	require.NotEqual(t, src.Pix, res.Pix)

	// левый верхний угол не задет знаком в правом нижнем
	require.Equal(t, src.NRGBAAt(10, 10), res.NRGBAAt(10, 10))
}

func TestApply_NoTextSavesOriginal(t *testing.T) {
	in := writeTestImage(t, 64, 48)
	out := filepath.Join(t.TempDir(), "out.png")

	stdout, stderr, err := run(t, "apply", "--in", in, "--out", out)
	require.NoError(t, err)
	require.Contains(t, stdout, "saved")
	require.Contains(t, stderr, imageproc.ErrCompositeNotReady.Error())

	src, err := imageproc.Load(in)
	require.NoError(t, err)
	res, err := imageproc.Load(out)
	require.NoError(t, err)
	require.Equal(t, src.Pix, res.Pix)
}

func TestApply_Errors(t *testing.T) {
	in := writeTestImage(t, 64, 48)
	out := filepath.Join(t.TempDir(), "out.png")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing input", args: []string{"apply", "--out", out}},
		{name: "no such file", args: []string{"apply", "--in", filepath.Join(t.TempDir(), "nope.png"), "--out", out, "--text", "x"}},
		{name: "unknown font", args: []string{"apply", "--in", in, "--out", out, "--text", "x", "--font", "Papyrus"}},
		{name: "bad anchor", args: []string{"apply", "--in", in, "--out", out, "--text", "x", "--anchor", "left-ish"}},
		{name: "bad opacity", args: []string{"apply", "--in", in, "--out", out, "--text", "x", "--opacity", "150"}},
		{name: "zero size", args: []string{"apply", "--in", in, "--out", out, "--text", "x", "--size", "0"}},
		{name: "bad viewport", args: []string{"apply", "--in", in, "--out", out, "--viewport", "big"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestPreview(t *testing.T) {
	in := writeTestImage(t, 1500, 700)
	out := filepath.Join(t.TempDir(), "small.jpg")

	stdout, _, err := run(t, "preview", "--in", in, "--out", out)
	require.NoError(t, err)
	require.Contains(t, stdout, "750x350 scale 2.000")

	res, err := imageproc.Load(out)
	require.NoError(t, err)
	require.Equal(t, 750, res.Bounds().Dx())
	require.Equal(t, 350, res.Bounds().Dy())
}

func TestFontsAndAnchors(t *testing.T) {
	stdout, _, err := run(t, "fonts")
	require.NoError(t, err)
	require.Equal(t, []string{"Go Bold", "Go Italic", "Go Mono", "Go Regular"}, strings.Split(strings.TrimSpace(stdout), "\n"))

	stdout, _, err = run(t, "anchors")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 9)
	require.Equal(t, "center", lines[0])
}

func TestParseViewport(t *testing.T) {
	tests := []struct {
		in      string
		want    imageproc.Viewport
		wantErr bool
	}{
		{in: "750x700", want: imageproc.Viewport{Width: 750, Height: 700}},
		{in: " 1024X768 ", want: imageproc.Viewport{Width: 1024, Height: 768}},
		{in: "750", wantErr: true},
		{in: "0x700", wantErr: true},
		{in: "wide x tall", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			vp, err := parseViewport(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, vp)
		})
	}
}
