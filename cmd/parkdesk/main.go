package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"parkdesk/internal/api"
	"parkdesk/internal/config"
	"parkdesk/internal/database"
	"parkdesk/internal/domain"
	"parkdesk/internal/events"
	"parkdesk/internal/logging"
	"parkdesk/internal/metrics"
	"parkdesk/internal/models"
	"parkdesk/internal/notify"
	"parkdesk/internal/pricing"
	"parkdesk/internal/repository"
	"parkdesk/internal/service"
	"parkdesk/internal/worker"

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
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var locker domain.SlotLocker = repository.NewMemorySlotLocker()
	if redisClient != nil {
		locker = repository.NewFailoverSlotLocker(
			repository.NewRedisSlotLocker(redisClient), locker, logging.Component(baseLogger, "slot-locker"))
	}

	eventBus := events.NewEventBus(logging.Component(baseLogger, "events"))
	subscribeAuditLog(eventBus, logging.Component(baseLogger, "audit"))

	notifiers := initNotifiers(ctx, cfg, logger)
	_, _, poll := cfg.Notify.Durations()
	notifyWorker := worker.NewNotifyWorker(db, notifiers, redisClient,
		worker.RetryPolicyFromConfig(cfg.Notify), poll, logging.Component(baseLogger, "notify-worker"))
	go notifyWorker.Run(ctx)

	rates := pricing.NewRateTable(cfg.Pricing.HourlyRates)
	svc := api.Services{
		Bookings: service.NewBookingService(db, locker, rates, eventBus, logging.Component(baseLogger, "bookings")),
		Payments: service.NewPaymentService(db, notifyWorker, eventBus, logging.Component(baseLogger, "payments")),
		Slots:    service.NewSlotService(db, logging.Component(baseLogger, "slots")),
		Vehicles: service.NewVehicleService(db, logging.Component(baseLogger, "vehicles")),
		Users:    service.NewUserService(db, logging.Component(baseLogger, "users")),
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(baseLogger, "backup"))
		go backupService.Run(ctx)
	}

	startMetrics(ctx, cfg, logger)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config; running background workers only")
		<-ctx.Done()
		return nil
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, logging.Component(baseLogger, "api"))
	return serve(ctx, httpServer, logger)
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	db.SetPoolSize(cfg.Database.MaxOpenConns)

	if err := db.EnsureCategories(ctx, models.CategoryCar, models.CategoryMotorcycle, models.CategoryTruck, models.CategoryVan); err != nil {
		db.Close()
		return nil, err
	}

	slotsPath := os.Getenv("SLOTS_PATH")
	if slotsPath == "" {
		slotsPath = filepath.Join("configs", "slots.yaml")
	}
	slots, err := loadSlots(slotsPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info().Str("slots_path", slotsPath).Msg("no slot seed file")
	case err != nil:
		db.Close()
		return nil, err
	default:
		if err := db.SyncSlots(ctx, slots); err != nil {
			logger.Error().Err(err).Msg("sync slots")
		} else {
			logger.Info().Int("count", len(slots)).Msg("slots synced")
		}
	}
	return db, nil
}

// loadSlots reads the slot seed file.
func loadSlots(path string) ([]*models.ParkingSlot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed struct {
		Slots []*models.ParkingSlot `yaml:"slots"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(seed.Slots))
	for i, s := range seed.Slots {
		if s == nil || s.SlotNumber == "" {
			return nil, fmt.Errorf("%s: slot %d has no slot_number", path, i)
		}
		if seen[s.SlotNumber] {
			return nil, fmt.Errorf("%s: duplicate slot_number %s", path, s.SlotNumber)
		}
		seen[s.SlotNumber] = true
	}
	return seed.Slots, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initNotifiers(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) []domain.Notifier {
	var notifiers []domain.Notifier

	if cfg.Telegram.Enabled {
		bot, err := notify.NewTelegramBot(cfg.Telegram.BotToken, cfg.Telegram.Debug)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without telegram")
		} else {
			notifiers = append(notifiers, notify.NewTelegramNotifier(bot, cfg.Telegram.ChatID, logger))
		}
	}

	if cfg.Google.CredentialsFile != "" && cfg.Google.LedgerSpreadsheetID != "" {
		ledger, err := notify.NewSheetsLedger(ctx, cfg.Google.CredentialsFile, cfg.Google.LedgerSpreadsheetID, cfg.Google.LedgerRange)
		if err != nil {
			logger.Warn().Err(err).Msg("google sheets init failed, continuing without ledger")
		} else {
			notifiers = append(notifiers, ledger)
		}
	}

	if len(notifiers) == 0 {
		logger.Warn().Msg("no notification channels configured")
	}
	return notifiers
}

// subscribeAuditLog writes every lifecycle event to the log.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	handler := func(e *events.Event) error {
		logger.Info().Str("event", e.Type).RawJSON("payload", e.Payload).Msg("lifecycle event")
		return nil
	}
	for _, t := range []string{
		events.EventBookingCreated, events.EventBookingApproved, events.EventBookingRejected,
		events.EventBookingCancelled, events.EventBookingCompleted,
		events.EventPaymentReceived, events.EventPaymentCompleted,
	} {
		bus.Subscribe(t, handler)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("server stopped")
	return nil
}
