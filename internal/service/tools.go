package service

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/UnendingLoop/TextWatermark/internal/fontcatalog"
	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/UnendingLoop/TextWatermark/internal/mwlogger"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки - в запрос попадает только имя колонки из этого списка
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "job_uid"
	case strings.Contains(req.Sort, model.ByStatus):
		req.Sort = "status"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

// validateNormalizeJob fills clean with validated parameters, using the
// editor defaults for everything the client left empty.
func validateNormalizeJob(raw *model.JobCreateData, clean *model.Job, fonts FontCatalog) error {
	// корректен ли исходник
	if raw.Image == nil || raw.ImageSize <= 0 {
		return model.ErrEmptySource
	}
	if !model.InImageTypeMap[raw.ContentType] {
		return model.ErrUnsupportedFormat
	}

	// текст может быть пустым - тогда результат совпадет с оригиналом
	if !utf8.ValidString(raw.Text) || utf8.RuneCountInString(raw.Text) > model.MaxTextLength {
		return model.ErrIncorrectText
	}
	clean.Text = raw.Text
	if clean.Text == "" {
		clean.ErrMsg = append(clean.ErrMsg, "empty text: result is a copy of the original")
	}

	// шрифт по имени из каталога
	clean.FontName = strings.TrimSpace(raw.Font)
	if clean.FontName == "" {
		clean.FontName = fontcatalog.DefaultName
	}
	if fonts == nil {
		return model.ErrIncorrectFont
	}
	ref, err := fonts.Resolve(clean.FontName)
	if err != nil {
		return model.ErrIncorrectFont
	}
	clean.FontRef = string(ref)

	clean.FontSize = model.DefaultFontSize
	if raw.FontSize != nil {
		clean.FontSize = *raw.FontSize
	}
	if clean.FontSize < model.MinFontSize || clean.FontSize > model.MaxFontSize {
		return model.ErrIncorrectSize
	}

	color := model.DefaultColor
	if strings.TrimSpace(raw.Color) != "" {
		color = raw.Color
	}
	rgb, err := imageproc.ParseHexColor(color)
	if err != nil {
		return model.ErrIncorrectColor
	}
	clean.Color = rgb.Hex()

	clean.Opacity = model.DefaultOpacity
	if raw.Opacity != nil {
		clean.Opacity = *raw.Opacity
	}
	if _, err := imageproc.OpacityFromPercent(clean.Opacity); err != nil {
		return model.ErrIncorrectOpacity
	}

	anchor := model.DefaultAnchor
	if strings.TrimSpace(raw.Anchor) != "" {
		if anchor, err = imageproc.ParseAnchor(raw.Anchor); err != nil {
			return model.ErrIncorrectAnchor
		}
	}
	clean.Anchor = string(anchor)

	return nil
}

func closeFileFlow(ctx context.Context, res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Service failed to close fileflow")
	}
}
