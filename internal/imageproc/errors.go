package imageproc

import (
	"errors"
	"fmt"
)

var (
	ErrCompositeNotReady = errors.New("no watermark applied yet: original image is used instead")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrUnknownAnchor     = errors.New("unknown anchor")
	ErrInvalidViewport   = errors.New("viewport dimensions must be positive")
)

// InvalidImageError - картинка без пикселей или с отрицательными размерами
type InvalidImageError struct {
	Op     string
	Width  int
	Height int
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("%s: invalid image dimensions %dx%d", e.Op, e.Width, e.Height)
}

// ImageLoadError wraps every failure of opening/decoding a source file.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %q: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// FontResolutionError - шрифт не найден/не читается или размер <= 0
type FontResolutionError struct {
	Font FontRef
	Size int
	Err  error
}

func (e *FontResolutionError) Error() string {
	return fmt.Sprintf("resolve font %q size %d: %v", e.Font, e.Size, e.Err)
}

func (e *FontResolutionError) Unwrap() error {
	return e.Err
}

func checkDimensions(op string, w, h int) error {
	if w <= 0 || h <= 0 {
		return &InvalidImageError{Op: op, Width: w, Height: h}
	}
	return nil
}
