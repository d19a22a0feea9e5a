package imageproc

import (
	"errors"
	"fmt"
	"io"
)

// Preview decodes an encoded image, fits it into vp and encodes it back.
func Preview(r io.Reader, vp Viewport, format Format) (io.Reader, int64, error) {
	if r == nil {
		return nil, -1, errors.New("nil-reader provided to Preview")
	}
	img, _, err := Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode image in Preview: %w", err)
	}

	view, err := ScaleForDisplay(img, vp)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scale image in Preview: %w", err)
	}

	res, size, err := Encode(view.Image, format)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode preview: %w", err)
	}
	return res, size, nil
}
