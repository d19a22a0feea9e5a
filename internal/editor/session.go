// Package editor keeps the state of one interactive watermarking session:
// the opened original, the latest composite and their display previews.
package editor

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/wb-go/wbf/zlog"
)

var (
	ErrNoImage = errors.New("no image is open")
	ErrBusy    = errors.New("another watermark pass is still running")
)

// Compositor - контракт движка наложения текста
type Compositor interface {
	Composite(original image.Image, spec imageproc.WatermarkSpec) (*image.NRGBA, error)
}

// ApplyResult is delivered once per ApplyAsync call.
type ApplyResult struct {
	View imageproc.ScaledView
	Err  error
}

// SaveReport tells what actually went to disk. When Fallback is set the
// original was written and Notice explains why.
type SaveReport struct {
	Path     string
	Fallback bool
	Notice   error
}

type Session struct {
	compositor Compositor
	viewport   imageproc.Viewport
	logger     zlog.Zerolog

	// один проход за раз: Open и Apply не пересекаются
	busy atomic.Bool

	mu        sync.RWMutex
	path      string
	original  *image.NRGBA
	composite *image.NRGBA
	lastSpec  *imageproc.WatermarkSpec
}

func NewSession(c Compositor, vp imageproc.Viewport) *Session {
	return &Session{
		compositor: c,
		viewport:   vp,
		logger:     zlog.Logger.With().Str("component", "editor").Logger(),
	}
}

// Open replaces the original and drops the previous composite.
func (s *Session) Open(path string) (imageproc.ScaledView, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return imageproc.ScaledView{}, ErrBusy
	}
	defer s.busy.Store(false)

	start := time.Now()
	img, err := imageproc.Load(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to open image")
		return imageproc.ScaledView{}, err
	}

	view, err := imageproc.ScaleForDisplay(img, s.viewport)
	if err != nil {
		return imageproc.ScaledView{}, err
	}

	s.mu.Lock()
	s.path = path
	s.original = img
	s.composite = nil
	s.lastSpec = nil
	s.mu.Unlock()

	s.logger.Info().
		Str("path", path).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Float64("scale", view.Scale).
		Dur("took", time.Since(start)).
		Msg("Image opened")
	return view, nil
}

// Apply composites spec over the original, never over a previous composite,
// and returns the preview of the new result.
func (s *Session) Apply(spec imageproc.WatermarkSpec) (imageproc.ScaledView, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return imageproc.ScaledView{}, ErrBusy
	}
	defer s.busy.Store(false)

	return s.apply(spec)
}

// ApplyAsync runs Apply on its own goroutine. The busy check happens before
// it returns, so a second call while a pass is running gets ErrBusy at once.
func (s *Session) ApplyAsync(ctx context.Context, spec imageproc.WatermarkSpec) <-chan ApplyResult {
	res := make(chan ApplyResult, 1)

	if !s.busy.CompareAndSwap(false, true) {
		res <- ApplyResult{Err: ErrBusy}
		close(res)
		return res
	}

	go func() {
		defer close(res)
		defer s.busy.Store(false)

		if err := ctx.Err(); err != nil {
			res <- ApplyResult{Err: err}
			return
		}
		view, err := s.apply(spec)
		res <- ApplyResult{View: view, Err: err}
	}()
	return res
}

func (s *Session) apply(spec imageproc.WatermarkSpec) (imageproc.ScaledView, error) {
	s.mu.RLock()
	original := s.original
	s.mu.RUnlock()

	if original == nil {
		return imageproc.ScaledView{}, ErrNoImage
	}

	start := time.Now()
	result, err := s.compositor.Composite(original, spec)
	if err != nil {
		s.logger.Error().Err(err).Str("anchor", string(spec.Anchor)).Msg("Failed to apply watermark")
		return imageproc.ScaledView{}, err
	}

	view, err := imageproc.ScaleForDisplay(result, s.viewport)
	if err != nil {
		return imageproc.ScaledView{}, err
	}

	s.mu.Lock()
	s.composite = result
	s.lastSpec = &spec
	s.mu.Unlock()

	s.logger.Info().
		Str("font", string(spec.Font)).
		Int("size", spec.Size).
		Str("anchor", string(spec.Anchor)).
		Uint8("opacity", spec.Opacity).
		Dur("took", time.Since(start)).
		Msg("Watermark applied")
	return view, nil
}

// Preview shows the composite, or the original while nothing was applied.
func (s *Session) Preview() (imageproc.ScaledView, error) {
	s.mu.RLock()
	img := s.composite
	if img == nil {
		img = s.original
	}
	s.mu.RUnlock()

	if img == nil {
		return imageproc.ScaledView{}, ErrNoImage
	}
	return imageproc.ScaleForDisplay(img, s.viewport)
}

// Save writes the composite at full resolution. Without one the original is
// written and the report says so.
func (s *Session) Save(path string) (SaveReport, error) {
	s.mu.RLock()
	img, original := s.composite, s.original
	s.mu.RUnlock()

	if original == nil {
		return SaveReport{}, ErrNoImage
	}

	report := SaveReport{Path: path}
	if img == nil {
		img = original
		report.Fallback = true
		report.Notice = imageproc.ErrCompositeNotReady
	}

	if err := imageproc.Save(img, path); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to save image")
		return SaveReport{}, err
	}

	ev := s.logger.Info()
	if report.Fallback {
		ev = s.logger.Warn().Err(report.Notice)
	}
	ev.Str("path", path).Msg("Image saved")
	return report, nil
}

// Source returns the path of the opened original.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// LastSpec returns the parameters of the current composite, if any.
func (s *Session) LastSpec() (imageproc.WatermarkSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSpec == nil {
		return imageproc.WatermarkSpec{}, false
	}
	return *s.lastSpec, true
}
