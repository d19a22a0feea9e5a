package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/appconfig"
	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/UnendingLoop/TextWatermark/internal/kafka"
	"github.com/UnendingLoop/TextWatermark/internal/metrics"
	"github.com/UnendingLoop/TextWatermark/internal/repository"
	"github.com/UnendingLoop/TextWatermark/internal/service"
	"github.com/UnendingLoop/TextWatermark/internal/storage"
	"github.com/UnendingLoop/TextWatermark/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, err := appconfig.Load("./.env")
	if err != nil {
		log.Fatalf("%s\nExiting app...", err)
	}
	if err := appconfig.InitLogger(appConfig); err != nil {
		log.Fatal(err)
	}
	if err := appconfig.Required(appConfig, "POSTGRES_DSN", "KAFKA_BROKER", "KAFKA_TOPIC", "KAFKA_GROUPID", "RESULT_KEY"); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Incomplete config")
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к базе
	dbConn, err := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("DB is unreachable")
	}
	// подключиться к хранилищу
	strg, err := storage.NewJobStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Job storage is unreachable")
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresJobRepo(dbConn)
	// создаем экземпляр сервиса; шрифты воркеру не нужны - путь к файлу уже лежит в задаче
	var svc JobWorkerService = service.NewJobService(repo, NoopPublisher{}, strg, nil, service.Options{})

	// метрики отдаем отдельным сервером
	appMetrics := metrics.New()
	metricsSrv := &http.Server{
		Addr:              ":" + appConfig.GetString("METRICS_PORT"),
		Handler:           appMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if appConfig.GetString("METRICS_PORT") != "" {
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unreachable")
	}
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	compositor := imageproc.NewCompositor(imageproc.NewFontLoader(16))
	w := worker.NewWorkerInstance(strg, svc, compositor, queue, cons, appMetrics, appConfig.GetString("RESULT_KEY"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.StartWorker(ctx)
	}()

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()
	wg.Wait()

	shutdown(metricsSrv, cons, dbConn)
	zlog.Logger.Info().Msg("Exiting worker...")
}

func shutdown(metricsSrv *http.Server, cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to stop metrics server")
	}

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-reader")
	}
	zlog.Logger.Info().Msg("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
