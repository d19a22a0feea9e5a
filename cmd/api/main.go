// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/appconfig"
	"github.com/UnendingLoop/TextWatermark/internal/kafka"
	"github.com/UnendingLoop/TextWatermark/internal/metrics"
	"github.com/UnendingLoop/TextWatermark/internal/mwlogger"
	"github.com/UnendingLoop/TextWatermark/internal/repository"
	"github.com/UnendingLoop/TextWatermark/internal/service"
	"github.com/UnendingLoop/TextWatermark/internal/storage"
	"github.com/UnendingLoop/TextWatermark/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, err := appconfig.Load("./.env")
	if err != nil {
		log.Fatalf("%s\nExiting app...", err)
	}

	// стартуем логгер
	if err := appconfig.InitLogger(appConfig); err != nil {
		log.Fatal(err)
	}
	if err := appconfig.Required(appConfig, "APP_PORT", "POSTGRES_DSN", "KAFKA_BROKER", "KAFKA_TOPIC"); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Incomplete config")
	}

	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	viewport, err := appconfig.Viewport(appConfig)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Incorrect viewport config")
	}
	fonts, err := appconfig.FontCatalog(appConfig)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load font catalog")
	}

	// подключиться к базе
	dbConn, err := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("DB is unreachable")
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// подключиться к хранилищу
	strg, err := storage.NewJobStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Job storage is unreachable")
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresJobRepo(dbConn)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unreachable")
	}
	// подключиться к кафке как продюсер
	topic := appConfig.GetString("KAFKA_TOPIC")
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to create Kafka topics")
	}
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	appMetrics := metrics.New()

	// создаем экземпляр сервиса
	var svc JobAPIService = service.NewJobService(repo, pub, strg, fonts, service.Options{
		SourcePrefix: appConfig.GetString("SOURCE_KEY"),
		Viewport:     viewport,
		Metrics:      appMetrics,
	})
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewJobHandler(svc)

	// сетапим сервер
	middlewares := []gin.HandlerFunc{transport.RequestMetrics(appMetrics)}
	if rate := strings.TrimSpace(appConfig.GetString("RATE_LIMIT")); rate != "" {
		limiter, err := transport.NewRateLimiter(rate)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("Incorrect RATE_LIMIT")
		}
		middlewares = append(middlewares, limiter)
	}
	engine := ginext.New(appConfig.GetString("GIN_MODE"))
	transport.RegisterRoutes(engine, handlers, appMetrics.Handler(), middlewares...)

	srv := &http.Server{
		Addr:              ":" + appConfig.GetString("APP_PORT"),
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Str("addr", srv.Addr).Msg("Server running")
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// запускаем фонового воркера для отслеживания подвисших задач
	go recoveryLoop(ctx, svc, time.Minute)

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	zlog.Logger.Info().Msg("Exiting API...")
}

func recoveryLoop(ctx context.Context, svc JobAPIService, every time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("Recovery loop crashed")
		}
	}()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(ctx, 20)
		}
	}
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	// даем дописать текущие ответы
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown HTTP-server gracefully")
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-writer")
	}
	zlog.Logger.Info().Msg("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
