// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"
	"strconv"

	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/UnendingLoop/TextWatermark/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

// FallbackHeader is set on /result and /preview when the original is sent
// instead of the watermarked image.
const FallbackHeader = "X-Watermark-Fallback"

type JobHandler struct {
	service JobService
}

type JobService interface {
	Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)  // получить список
	LoadResult(ctx context.Context, id string) (*model.ImageFile, error)       // скачать результат или оригинал
	LoadPreview(ctx context.Context, id string) (*model.ImageFile, error)      // то же, вписанное в окно предпросмотра
	Delete(ctx context.Context, id string) error                               // удалить как в базе, так и в minio
	Fonts() []string
	Anchors() []string
}

func NewJobHandler(svc JobService) *JobHandler {
	return &JobHandler{
		service: svc,
	}
}

func (h JobHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h JobHandler) Create(ctx *ginext.Context) {
	var raw model.JobCreateData

	// числовые поля опциональны: пусто - значит дефолт
	var err error
	if raw.FontSize, err = optionalInt(ctx.PostForm("size")); err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrIncorrectSize.Error()})
		return
	}
	if raw.Opacity, err = optionalInt(ctx.PostForm("opacity")); err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrIncorrectOpacity.Error()})
		return
	}
	raw.Text = ctx.PostForm("text")
	raw.Font = ctx.PostForm("font")
	raw.Color = ctx.PostForm("color")
	raw.Anchor = ctx.PostForm("anchor")

	// парсинг исходника
	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), imageFile)

	raw.Image = imageFile
	raw.ImageSize = imageHeader.Size
	raw.ContentType, err = detectContentType(imageFile, imageHeader.Header.Get("Content-Type"))
	if err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrEmptySource.Error()})
		return
	}

	// передаем в сервис
	res, err := h.service.Create(ctx.Request.Context(), &raw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h JobHandler) GetAllJobs(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrIncorrectQuery.Error()})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) GetJob(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) LoadResult(ctx *ginext.Context) {
	res, err := h.service.LoadResult(ctx.Request.Context(), ctx.Param("id"))
	h.sendImage(ctx, res, err)
}

func (h JobHandler) LoadPreview(ctx *ginext.Context) {
	res, err := h.service.LoadPreview(ctx.Request.Context(), ctx.Param("id"))
	h.sendImage(ctx, res, err)
}

func (h JobHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

func (h JobHandler) Fonts(ctx *ginext.Context) {
	ctx.JSON(200, map[string][]string{"fonts": h.service.Fonts()})
}

func (h JobHandler) Anchors(ctx *ginext.Context) {
	ctx.JSON(200, map[string][]string{"anchors": h.service.Anchors()})
}

func (h JobHandler) sendImage(ctx *ginext.Context, res *model.ImageFile, err error) {
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), res.Data)

	if res.Fallback {
		ctx.Writer.Header().Set(FallbackHeader, "original")
	}
	ctx.Writer.Header().Set("Content-Type", res.ContentType)
	if res.Size > 0 {
		ctx.Writer.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	}
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res.Data); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Int64("written", n).Str("job_uid", ctx.Param("id")).Msg("Failed to write image response")
	}
}
