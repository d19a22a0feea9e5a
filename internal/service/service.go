// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/UnendingLoop/TextWatermark/internal/mwlogger"
	"github.com/UnendingLoop/TextWatermark/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type JobService struct {
	repo         repository.JobRepo
	publisher    TaskPublisher
	storage      JobStorage
	fonts        FontCatalog
	metrics      JobMetrics
	viewport     imageproc.Viewport
	srcKeyPrefix string
}

// Options - префикс ключей исходников в хранилище и размер окна предпросмотра
type Options struct {
	SourcePrefix string
	Viewport     imageproc.Viewport
	Metrics      JobMetrics
}

func NewJobService(repo repository.JobRepo, pub TaskPublisher, strg JobStorage, fonts FontCatalog, opts Options) *JobService {
	if opts.Viewport.Validate() != nil {
		opts.Viewport = imageproc.DefaultViewport
	}
	return &JobService{
		repo:         repo,
		publisher:    pub,
		storage:      strg,
		fonts:        fonts,
		metrics:      opts.Metrics,
		viewport:     opts.Viewport,
		srcKeyPrefix: opts.SourcePrefix,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// JobStorage - контракт для работы с хранилищем
type JobStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// FontCatalog - имена шрифтов, доступные клиентам
type FontCatalog interface {
	Resolve(name string) (imageproc.FontRef, error)
	Names() []string
}

type JobMetrics interface {
	JobCreated()
}

// Стратегия ретрая отправки в очередь - можно потом вынести значения в конфиг/env
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (c JobService) Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newJob := &model.Job{}

	// Валидируем параметры водяного знака и исходник
	if err := validateNormalizeJob(data, newJob, c.fonts); err != nil {
		return nil, err
	}

	// генерируем UUID
	newJob.UID = uuid.New()

	// кладем в хранилище сорсник
	newJob.SourceKey = c.srcKeyPrefix + newJob.UID.String() + model.GetImageFileExt[data.ContentType]
	newJob.ContentType = data.ContentType

	if err := c.storage.Put(ctx, newJob.SourceKey, data.ImageSize, data.ContentType, data.Image); err != nil {
		logger.Error().Err(err).Msg("Failed to save src-image in Storage")
		return nil, model.ErrCommon500
	}

	// ставим статус и таймстамп
	newJob.Status = model.StatusCreated
	now := time.Now().UTC()
	newJob.CreatedAt = &now
	newJob.UpdatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newJob); err != nil {
		logger.Error().Err(err).Msg("Failed to create job in DB")
		c.dropObject(ctx, newJob.SourceKey)
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку); при неудаче задачу подберет ReviveOrphans
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newJob.UID.String()), nil); err != nil {
		logger.Error().Err(err).Str("job_uid", newJob.UID.String()).Msg("Failed to publish job to task-queue")
		return nil, model.ErrCommon500
	}

	if c.metrics != nil {
		c.metrics.JobCreated()
	}
	logger.Info().Str("job_uid", newJob.UID.String()).Str("anchor", newJob.Anchor).Msg("Job created")
	return newJob, nil
}

func (c JobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch jobs list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}
	return c.fetch(ctx, id)
}

// LoadResult returns the composite when the job is done. Otherwise the
// original is returned and the file is marked as a fallback.
func (c JobService) LoadResult(ctx context.Context, id string) (*model.ImageFile, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	job, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	key, fallback := job.ResultKey, false
	if job.Status != model.StatusDone || job.ResultKey == "" {
		key, fallback = job.SourceKey, true
	}

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, key)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Failed to fetch image from Storage")
		return nil, model.ErrCommon500
	}
	if cType == "" {
		cType = job.ContentType
	}

	if fallback {
		logger.Info().Str("job_uid", id).Str("status", string(job.Status)).Msg(model.ErrResultNotReady.Error())
	}
	return &model.ImageFile{Data: data, ContentType: cType, Size: -1, Fallback: fallback}, nil
}

// LoadPreview is LoadResult fitted into the display viewport.
func (c JobService) LoadPreview(ctx context.Context, id string) (*model.ImageFile, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	file, err := c.LoadResult(ctx, id)
	if err != nil {
		return nil, err
	}
	defer closeFileFlow(ctx, file.Data)

	format, ok := model.GetFormat[file.ContentType]
	if !ok {
		// неизвестный content-type в хранилище - отдаем jpeg
		file.ContentType = model.JPEG
		format = model.GetFormat[model.JPEG]
	}

	preview, size, err := imageproc.Preview(file.Data, c.viewport, format)
	if err != nil {
		logger.Error().Err(err).Str("job_uid", id).Msg("Failed to build preview")
		return nil, model.ErrCommon500
	}

	return &model.ImageFile{
		Data:        io.NopCloser(preview),
		ContentType: file.ContentType,
		Size:        size,
		Fallback:    file.Fallback,
	}, nil
}

func (c JobService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	// читаем из базы
	res, err := c.fetch(ctx, id)
	if err != nil {
		return err
	}
	if res.Status == model.StatusInProgress {
		return model.ErrJobBusy // 409
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.ErrJobNotFound
		}
		logger.Error().Err(err).Msg("Failed to delete job from DB")
		return model.ErrCommon500
	}

	// удаляем из хранилища сорсник и результат(если он есть)
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
		return model.ErrCommon500
	}
	if res.ResultKey != "" {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete result-image from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

// Claim marks the job as in_progress for the calling worker.
func (c JobService) Claim(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	if err := c.repo.Claim(ctx, id); err != nil {
		switch {
		case errors.Is(err, model.ErrJobBusy):
			return model.ErrJobBusy // 409
		default:
			logger.Error().Err(err).Msg("Failed to claim job in DB")
			return model.ErrCommon500
		}
	}
	return nil
}

func (c JobService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectStatus
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update job status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c JobService) SaveResult(ctx context.Context, input *model.Job) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save job result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// ReviveOrphans republishes jobs that were never picked up or whose worker died.
func (c JobService) ReviveOrphans(ctx context.Context, limit int) int {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return 0
	}

	revived := 0
	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Str("job_uid", v).Msg("Failed to publish orphan to queue")
			continue
		}
		revived++
	}
	if revived > 0 {
		logger.Info().Int("revived", revived).Msg("Orphan jobs republished")
	}
	return revived
}

func (c JobService) Fonts() []string {
	if c.fonts == nil {
		return nil
	}
	return c.fonts.Names()
}

func (c JobService) Anchors() []string {
	anchors := imageproc.Anchors()
	res := make([]string, 0, len(anchors))
	for _, a := range anchors {
		res = append(res, string(a))
	}
	return res
}

func (c JobService) fetch(ctx context.Context, id string) (*model.Job, error) {
	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, model.ErrJobNotFound // 404
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
		return nil, model.ErrCommon500
	}
	return res, nil
}

func (c JobService) dropObject(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, key); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("key", key).Msg("Failed to clean up object after DB error")
	}
}
