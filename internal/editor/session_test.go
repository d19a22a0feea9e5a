package editor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

type compositorMock struct {
	CompositeFunc func(original image.Image, spec imageproc.WatermarkSpec) (*image.NRGBA, error)
}

func (m *compositorMock) Composite(original image.Image, spec imageproc.WatermarkSpec) (*image.NRGBA, error) {
	return m.CompositeFunc(original, spec)
}

func writeImage(t *testing.T, w, h int) string {
	t.Helper()

	img := imaging.New(w, h, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
	path := filepath.Join(t.TempDir(), "src.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func spec(text string) imageproc.WatermarkSpec {
	return imageproc.WatermarkSpec{
		Text:    text,
		Font:    imageproc.BuiltinRegular,
		Size:    40,
		Color:   imageproc.RGB{R: 255, G: 255, B: 255},
		Opacity: 128,
		Anchor:  imageproc.AnchorBottomRight,
	}
}

func newRealSession() *Session {
	return NewSession(imageproc.NewCompositor(imageproc.NewFontLoader(0)), imageproc.DefaultViewport)
}

func TestSession_OpenApplySave(t *testing.T) {
	s := newRealSession()

	view, err := s.Open(writeImage(t, 1500, 700))
	require.NoError(t, err)
	require.Equal(t, 750, view.Image.Bounds().Dx())
	require.InDelta(t, 2.0, view.Scale, 1e-9)

	view, err = s.Apply(spec("© me"))
	require.NoError(t, err)
	require.Equal(t, 750, view.Image.Bounds().Dx())

	last, ok := s.LastSpec()
	require.True(t, ok)
	require.Equal(t, "© me", last.Text)

	out := filepath.Join(t.TempDir(), "out.png")
	report, err := s.Save(out)
	require.NoError(t, err)
	require.False(t, report.Fallback)
	require.NoError(t, report.Notice)

	saved, err := imageproc.Load(out)
	require.NoError(t, err)
	require.Equal(t, 1500, saved.Bounds().Dx())
	require.Equal(t, 700, saved.Bounds().Dy())
}

func TestSession_ReapplyDoesNotAccumulate(t *testing.T) {
	s := newRealSession()
	_, err := s.Open(writeImage(t, 400, 300))
	require.NoError(t, err)

	dir := t.TempDir()
	first := filepath.Join(dir, "first.png")
	second := filepath.Join(dir, "second.png")

	_, err = s.Apply(spec("stamp"))
	require.NoError(t, err)
	_, err = s.Save(first)
	require.NoError(t, err)

	_, err = s.Apply(spec("stamp"))
	require.NoError(t, err)
	_, err = s.Save(second)
	require.NoError(t, err)

	a, err := imageproc.Load(first)
	require.NoError(t, err)
	b, err := imageproc.Load(second)
	require.NoError(t, err)
	require.Equal(t, a.Pix, b.Pix)
}

func TestSession_SaveWithoutApplyFallsBack(t *testing.T) {
	s := newRealSession()
	src := writeImage(t, 50, 40)
	_, err := s.Open(src)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.png")
	report, err := s.Save(out)
	require.NoError(t, err)
	require.True(t, report.Fallback)
	require.ErrorIs(t, report.Notice, imageproc.ErrCompositeNotReady)

	orig, err := imageproc.Load(src)
	require.NoError(t, err)
	saved, err := imageproc.Load(out)
	require.NoError(t, err)
	require.Equal(t, orig.Pix, saved.Pix)
}

func TestSession_OpenDropsComposite(t *testing.T) {
	s := newRealSession()
	_, err := s.Open(writeImage(t, 100, 100))
	require.NoError(t, err)
	_, err = s.Apply(spec("x"))
	require.NoError(t, err)

	_, err = s.Open(writeImage(t, 80, 60))
	require.NoError(t, err)

	_, ok := s.LastSpec()
	require.False(t, ok)

	report, err := s.Save(filepath.Join(t.TempDir(), "out.png"))
	require.NoError(t, err)
	require.True(t, report.Fallback)
}

func TestSession_NoImage(t *testing.T) {
	s := newRealSession()

	_, err := s.Apply(spec("x"))
	require.ErrorIs(t, err, ErrNoImage)

	_, err = s.Preview()
	require.ErrorIs(t, err, ErrNoImage)

	_, err = s.Save(filepath.Join(t.TempDir(), "out.png"))
	require.ErrorIs(t, err, ErrNoImage)
}

func TestSession_OpenErrorKeepsState(t *testing.T) {
	s := newRealSession()
	src := writeImage(t, 60, 60)
	_, err := s.Open(src)
	require.NoError(t, err)

	_, err = s.Open(filepath.Join(t.TempDir(), "missing.png"))
	var loadErr *imageproc.ImageLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, src, s.Source())
}

func TestSession_ApplyErrorKeepsPreviousComposite(t *testing.T) {
	s := newRealSession()
	_, err := s.Open(writeImage(t, 200, 100))
	require.NoError(t, err)
	_, err = s.Apply(spec("ok"))
	require.NoError(t, err)

	bad := spec("bad")
	bad.Size = 0
	_, err = s.Apply(bad)
	var fontErr *imageproc.FontResolutionError
	require.ErrorAs(t, err, &fontErr)

	last, ok := s.LastSpec()
	require.True(t, ok)
	require.Equal(t, "ok", last.Text)
}

func TestSession_ApplyAsync(t *testing.T) {
	release := make(chan struct{})
	mock := &compositorMock{CompositeFunc: func(original image.Image, _ imageproc.WatermarkSpec) (*image.NRGBA, error) {
		<-release
		return imaging.Clone(original), nil
	}}

	s := NewSession(mock, imageproc.DefaultViewport)
	_, err := s.Open(writeImage(t, 100, 100))
	require.NoError(t, err)

	results := s.ApplyAsync(context.Background(), spec("async"))

	// пока первый проход висит, второй и Open отбиваются сразу
	_, err = s.Apply(spec("second"))
	require.ErrorIs(t, err, ErrBusy)
	_, err = s.Open(writeImage(t, 10, 10))
	require.ErrorIs(t, err, ErrBusy)

	busy := <-s.ApplyAsync(context.Background(), spec("third"))
	require.ErrorIs(t, busy.Err, ErrBusy)

	close(release)

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		require.Equal(t, 100, res.View.Image.Bounds().Dx())
	case <-time.After(5 * time.Second):
		t.Fatal("apply did not finish")
	}

	_, ok := <-results
	require.False(t, ok, "channel must be closed after the result")

	_, err = s.Apply(spec("after"))
	require.NoError(t, err)
}

func TestSession_ApplyAsyncCancelled(t *testing.T) {
	called := false
	mock := &compositorMock{CompositeFunc: func(original image.Image, _ imageproc.WatermarkSpec) (*image.NRGBA, error) {
		called = true
		return nil, errors.New("must not be called")
	}}

	s := NewSession(mock, imageproc.DefaultViewport)
	_, err := s.Open(writeImage(t, 20, 20))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := <-s.ApplyAsync(ctx, spec("x"))
	require.ErrorIs(t, res.Err, context.Canceled)
	require.False(t, called)
}
