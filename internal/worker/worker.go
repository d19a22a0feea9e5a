// Package worker consumes job UIDs from the queue and renders watermarks
package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/UnendingLoop/TextWatermark/internal/mwlogger"
	"github.com/UnendingLoop/TextWatermark/internal/service"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

type JobWorkerService interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	Claim(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
}

// Compositor - движок наложения текста, *imageproc.Compositor
type Compositor interface {
	Composite(original image.Image, spec imageproc.WatermarkSpec) (*image.NRGBA, error)
}

// Committer - подтверждение обработанного сообщения очереди
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type JobMetrics interface {
	JobProcessed(status string, render time.Duration)
}

type Worker struct {
	storage      service.JobStorage
	service      JobWorkerService
	compositor   Compositor
	queue        <-chan kafkago.Message
	consumer     Committer
	metrics      JobMetrics
	resultPrefix string
}

func NewWorkerInstance(strg service.JobStorage, svc JobWorkerService, comp Compositor, q <-chan kafkago.Message, cons Committer, m JobMetrics, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, compositor: comp, queue: q, consumer: cons, metrics: m, resultPrefix: resPr}
}

// StartWorker handles messages one by one so commits keep the queue order.
func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
				zlog.Logger.Error().Err(err).Str("job_uid", id).Msg("Task failed, message is left uncommitted")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Str("job_uid", id).Msg("Failed to commit queue-message")
			}
		}
	}
}

// initProcessor returns an error only when the message should be redelivered.
// Render failures are stored in the job and are not errors here.
func (w *Worker) initProcessor(ctx context.Context, id string) error {
	ctx = mwlogger.WithLogger(ctx, zlog.Logger.With().Str("job_uid", id).Logger())
	logger := mwlogger.LoggerFromContext(ctx)

	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch job %q from DB: %w", id, err)
	}
	if task.Status == model.StatusDone {
		logger.Info().Msg("Job is already done, skipping")
		return nil
	}

	// забираем задачу себе; занята живым воркером - пропускаем
	if err := w.service.Claim(ctx, id); err != nil {
		if errors.Is(err, model.ErrJobBusy) {
			logger.Info().Msg("Job is claimed by another worker, skipping")
			return nil
		}
		return fmt.Errorf("failed to claim job %q: %w", id, err)
	}

	render, pErr := w.processTask(ctx, task)
	if pErr == nil {
		w.observe(model.StatusDone, render)
		logger.Info().Dur("render", render).Str("result_key", task.ResultKey).Msg("Watermark applied")
		return nil
	}

	// остановка воркера посреди обработки - возвращаем задачу в очередь
	if ctx.Err() != nil {
		if uErr := w.service.UpdateStatus(context.WithoutCancel(ctx), id, model.StatusCreated); uErr != nil {
			logger.Error().Err(uErr).Msg("Failed to release interrupted job")
		}
		return fmt.Errorf("job %q interrupted: %w", id, pErr)
	}

	// сохраняем причину падения, чтобы клиент ее увидел
	logger.Error().Err(pErr).Msg("Failed to process job")
	task.Status = model.StatusFailed
	task.ResultKey = ""
	task.ErrMsg = append(task.ErrMsg, pErr.Error())
	if sErr := w.service.SaveResult(ctx, task); sErr != nil {
		return fmt.Errorf("failed to set status of job %q to `failed` in DB: %w \nAFTER\n error while processing job: %w", id, sErr, pErr)
	}
	w.observe(model.StatusFailed, render)
	return nil
}

// processTask always renders from the source object, so a re-run never stacks
// a second watermark over a previous result.
func (w *Worker) processTask(ctx context.Context, task *model.Job) (time.Duration, error) {
	src, _, err := w.storage.Get(ctx, task.SourceKey)
	if err != nil {
		return 0, fmt.Errorf("worker failed to fetch source image from storage: %w", err)
	}
	defer closeFileFlow(ctx, src)

	original, format, err := imageproc.Decode(src)
	if err != nil {
		return 0, fmt.Errorf("worker failed to decode source image: %w", err)
	}

	spec, err := task.Spec()
	if err != nil {
		return 0, fmt.Errorf("worker failed to build watermark spec: %w", err)
	}

	start := time.Now()
	composite, err := w.compositor.Composite(original, spec)
	render := time.Since(start)
	if err != nil {
		return render, fmt.Errorf("worker failed to apply watermark: %w", err)
	}

	// результат кодируем в формате исходника
	result, size, err := imageproc.Encode(composite, format)
	if err != nil {
		return render, fmt.Errorf("worker failed to encode result: %w", err)
	}

	resCType := model.GetCType[format]
	resKey := w.resultPrefix + task.UID.String() + model.GetImageFileExt[resCType]
	if err := w.storage.Put(ctx, resKey, size, resCType, result); err != nil {
		return render, fmt.Errorf("worker failed to put result image to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.ResultKey = resKey

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return render, fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return render, nil
}

func (w *Worker) observe(st model.Status, render time.Duration) {
	if w.metrics != nil {
		w.metrics.JobProcessed(string(st), render)
	}
}

func closeFileFlow(ctx context.Context, res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Worker failed to close fileflow")
	}
}
