package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/UnendingLoop/TextWatermark/internal/mwlogger"
	"github.com/gabriel-vasile/mimetype"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrJobNotFound):
		return 404
	case errors.Is(err, model.ErrJobBusy):
		return 409
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrUnsupportedFormat),
		errors.Is(err, model.ErrIncorrectText),
		errors.Is(err, model.ErrIncorrectFont),
		errors.Is(err, model.ErrIncorrectSize),
		errors.Is(err, model.ErrIncorrectColor),
		errors.Is(err, model.ErrIncorrectOpacity),
		errors.Is(err, model.ErrIncorrectAnchor),
		errors.Is(err, model.ErrIncorrectStatus):
		return 400
	default:
		return 500
	}
}

func optionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// detectContentType trusts the part header only when it names a supported
// image type, otherwise the type is sniffed from the file signature.
func detectContentType(f io.ReadSeeker, declared string) (string, error) {
	if model.InImageTypeMap[declared] {
		return declared, nil
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to sniff content-type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind uploaded file: %w", err)
	}
	return mt.String(), nil
}

func closeFileFlow(ctx context.Context, res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Handler failed to close fileflow")
	}
}
