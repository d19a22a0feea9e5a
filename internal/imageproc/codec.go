package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

type Format = imaging.Format

const jpegQuality = 95

// Load opens a source image and promotes it to NRGBA so it always carries an
// alpha channel. Any failure is reported as *ImageLoadError.
func Load(path string) (*image.NRGBA, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ImageLoadError{Path: path, Err: errors.New("path is a directory")}
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: decodeErr(err)}
	}

	res := imaging.Clone(img)
	if err := checkDimensions("load", res.Bounds().Dx(), res.Bounds().Dy()); err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	return res, nil
}

// Save writes img in the format implied by the extension of path.
func Save(img image.Image, path string) error {
	if img == nil {
		return &InvalidImageError{Op: "save"}
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("save %q: %w", path, ErrUnsupportedFormat)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("save %q: %w", path, err)
	}
	return nil
}

// Decode reads an encoded image and reports its format.
func Decode(r io.Reader) (*image.NRGBA, Format, error) {
	if r == nil {
		return nil, -1, errors.New("nil-reader provided to Decode")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, -1, err
	}

	// формат определяем по сигнатуре, а не по content-type
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, -1, decodeErr(err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return nil, -1, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, -1, decodeErr(err)
	}
	res := imaging.Clone(img)
	if err := checkDimensions("decode", res.Bounds().Dx(), res.Bounds().Dy()); err != nil {
		return nil, -1, err
	}
	return res, format, nil
}

// Encode serializes img, returning the payload and its size for object storage.
func Encode(img image.Image, format Format) (io.Reader, int64, error) {
	if img == nil {
		return nil, 0, &InvalidImageError{Op: "encode"}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, 0, err
	}
	return &buf, int64(buf.Len()), nil
}

func decodeErr(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return err
}
