package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"huette/internal/api"
	"huette/internal/config"
	"huette/internal/database"
	"huette/internal/events"
	"huette/internal/hrs"
	"huette/internal/metrics"
	"huette/internal/notify"
	"huette/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("HUETTE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	bus.OnError(func(e events.Event, err error) {
		logger.Error().Err(err).Str("event", e.Type).Msg("event handler failed")
	})
	for _, t := range []string{
		events.ReservationCreated,
		events.ReservationUpdated,
		events.ReservationCancelled,
		events.ReservationCheckedIn,
		events.ReservationCheckedOut,
	} {
		bus.Subscribe(t, func(e events.Event) error {
			metrics.IncReservationEvent(e.Type)
			return nil
		})
	}

	reservations := service.NewReservationService(db, bus, &logger)
	reports := service.NewReportService(db, cfg.ReportMaxDays(), &logger)
	quotas := service.NewQuotaService(db, &logger)

	scheduler := cron.New()

	var rdb *redis.Client
	var importer *hrs.Importer
	if cfg.HRS.Enabled {
		client := hrs.NewClient(hrs.Options{
			BaseURL:           cfg.HRS.BaseURL,
			APIKey:            cfg.HRS.APIKey,
			Timeout:           cfg.HRSTimeout(),
			RetryCount:        cfg.HRS.RetryCount,
			RequestsPerSecond: cfg.HRSRequestsPerSecond(),
		}, &logger)
		if cfg.Redis.Address != "" && cfg.HRSCacheTTL() > 0 {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			client.UseRedisCache(rdb, cfg.HRSCacheTTL())
		}

		importer = hrs.NewImporter(client, db, bus, cfg.HRS.HutID, cfg.HRSWindowDays(), &logger)
		if err := importer.Register(scheduler, cfg.HRSSchedule()); err != nil {
			logger.Fatal().Err(err).Msg("schedule HRS import")
		}
	}

	backups := database.NewBackupService(db, cfg.Backup, &logger)
	if err := backups.Register(scheduler, cfg.BackupSchedule()); err != nil {
		logger.Fatal().Err(err).Msg("schedule backups")
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
			logger.Fatal().Msg("set telegram.bot_token in config")
		}
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram bot error")
		}
		notifier := notify.NewNotifier(bot, cfg.Telegram.ChatIDs, reports, &logger)
		bus.Subscribe(events.ImportCompleted, notifier.HandleImport)
		if err := notifier.Register(scheduler, cfg.DigestSchedule()); err != nil {
			logger.Fatal().Err(err).Msg("schedule digest")
		}
	}

	deps := api.Deps{
		Reservations: reservations,
		Reports:      reports,
		Quotas:       quotas,
		Tables:       db,
	}
	if importer != nil {
		deps.Importer = importer
	}
	server := api.NewHTTPServer(api.Options{
		Address:        cfg.HTTPAddress(),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		ReadTimeout:    cfg.HTTPReadTimeout(),
		WriteTimeout:   cfg.HTTPWriteTimeout(),
		DefaultTarget:  cfg.ReportTarget(),
		WindowDays:     cfg.ReportWindowDays(),
		MaxDays:        cfg.ReportMaxDays(),
	}, deps, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	scheduler.Start()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	logger.Info().Str("address", cfg.HTTPAddress()).Msg("huette started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	<-scheduler.Stop().Done()
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info().Msg("huette stopped")
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serveUntilDone(ctx, fmt.Sprintf(":%d", port), mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serveUntilDone(ctx, fmt.Sprintf(":%d", port), mux, "metrics", logger)
}

func serveUntilDone(ctx context.Context, addr string, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}
