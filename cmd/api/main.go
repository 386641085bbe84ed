package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"drivebook/internal/api"
	"drivebook/internal/booking"
	"drivebook/internal/config"
	"drivebook/internal/database"
	"drivebook/internal/domain"
	"drivebook/internal/events"
	"drivebook/internal/export"
	"drivebook/internal/logging"
	"drivebook/internal/metrics"
	"drivebook/internal/models"
	"drivebook/internal/notify"
	"drivebook/internal/repository"
	"drivebook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, vehicles, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, vehicles, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, availabilityCache := initAvailabilityCache(ctx, cfg, &logger)

	var notifyWorker *worker.NotifyWorker
	if cfg.Notifications.Enabled {
		sink := notify.NewStoreSink(db, &logger)
		retryPolicy := worker.RetryPolicy{
			MaxRetries:    cfg.Notifications.MaxRetries,
			InitialDelay:  2 * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		}
		notifyWorker = worker.NewNotifyWorker(db, sink, redisClient, retryPolicy, &logger)
		if cfg.Notifications.PollInterval > 0 {
			notifyWorker.SetPollInterval(time.Duration(cfg.Notifications.PollInterval) * time.Second)
		}
		if cfg.Notifications.BatchSize > 0 {
			notifyWorker.SetBatchSize(cfg.Notifications.BatchSize)
		}
		go notifyWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, &logger)

	var notifier domain.NotifyWorker
	if notifyWorker != nil {
		notifier = notifyWorker
	}
	bookingService := booking.NewService(db, availabilityCache, eventBus, notifier, &logger)

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	apiServer := api.NewHTTPServer(cfg.API, bookingService, db, exporter, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}
	if redisClient != nil {
		_ = repository.Close(redisClient)
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.Vehicle, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	vehiclesPath := cfg.Database.VehiclesPath
	if envPath := os.Getenv("VEHICLES_PATH"); envPath != "" {
		vehiclesPath = envPath
	}
	if vehiclesPath == "" {
		vehiclesPath = "configs/vehicles.yaml"
	}
	vehiclesData, err := os.ReadFile(vehiclesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", vehiclesPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var vehiclesConfig struct {
		Vehicles []models.Vehicle `yaml:"vehicles"`
	}
	if err := yaml.Unmarshal(vehiclesData, &vehiclesConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга vehicles.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateVehicles(vehiclesConfig.Vehicles); err != nil {
		logger.Error().Err(err).Msg("Vehicles validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, vehiclesConfig.Vehicles, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, vehicles []models.Vehicle, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	ctx := context.Background()
	for i := range vehicles {
		if err := db.UpsertVehicle(ctx, &vehicles[i]); err != nil {
			logger.Error().Err(err).Int64("vehicle_id", vehicles[i].ID).Msg("Ошибка синхронизации автопарка")
		}
	}
	return db, nil
}

func initAvailabilityCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.AvailabilityCache) {
	ttl := time.Duration(models.DefaultAvailabilityTTL) * time.Second
	fallback := repository.NewMemoryAvailabilityRepository(ttl)

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
		primary := repository.NewRedisAvailabilityRepository(redisClient, ttl)
		return redisClient, repository.NewFailoverAvailabilityRepository(primary, fallback, logger)
	}

	return nil, fallback
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	auditHandler := func(ev *events.Event) error {
		var payload events.ReservationEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Str("event", ev.Type).
			Int64("reservation_id", payload.ReservationID).
			Int64("vehicle_id", payload.VehicleID).
			Str("status", payload.Status).
			Msg("reservation event")
		return nil
	}

	bus.Subscribe(events.EventReservationCreated, auditHandler)
	bus.Subscribe(events.EventReservationConfirmed, auditHandler)
	bus.Subscribe(events.EventReservationCancelled, auditHandler)
	bus.Subscribe(events.EventReservationCompleted, auditHandler)
	bus.Subscribe(events.EventReservationReopened, auditHandler)
	bus.Subscribe(events.EventReservationDeleted, auditHandler)
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
