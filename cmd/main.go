package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/bracket-relay/config"
	"github.com/Dosada05/bracket-relay/db"
	"github.com/Dosada05/bracket-relay/handlers"
	"github.com/Dosada05/bracket-relay/provider"
	"github.com/Dosada05/bracket-relay/realtime"
	"github.com/Dosada05/bracket-relay/repositories"
	api "github.com/Dosada05/bracket-relay/routes"
	"github.com/Dosada05/bracket-relay/services"
	"github.com/Dosada05/bracket-relay/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Архиватор вебхуков (Cloudflare R2, опционально)
	var archiver storage.NotificationArchiver = storage.NoopArchiver{}
	if cfg.R2BucketName != "" {
		archiver, err = storage.NewCloudflareR2Archiver(storage.CloudflareR2ArchiverConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 archiver", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 archiver initialized")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	txManager := repositories.NewTxManager(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	credentialRepo := repositories.NewPostgresCredentialRepository(dbConn)
	logger.Info("Repositories initialized")

	// Клиент провайдера сеток
	bracketProvider := provider.NewChallongeClient(cfg.ProviderBaseURL)

	// Инициализация сервисов
	registrationService := services.NewRegistrationService(registrationRepo, tournamentRepo)
	tournamentService := services.NewTournamentService(
		txManager,
		tournamentRepo,
		registrationRepo,
		matchRepo,
		credentialRepo,
		bracketProvider,
		logger,
	)
	reconcileService := services.NewReconcileService(
		tournamentRepo,
		matchRepo,
		credentialRepo,
		bracketProvider,
		wsHub,
		logger,
	)
	logger.Info("Services initialized")

	// Планировщик полного сверочного прохода
	var scheduler gocron.Scheduler
	if cfg.SweepInterval > 0 {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			logger.Error("failed to create scheduler", slog.Any("error", err))
			os.Exit(1)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.SweepInterval),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.SweepInterval)
				defer cancel()
				if err := reconcileService.SweepAll(ctx); err != nil {
					logger.Error("reconcile sweep failed", slog.Any("error", err))
				}
			}),
		)
		if err != nil {
			logger.Error("failed to schedule reconcile sweep", slog.Any("error", err))
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("reconcile sweep scheduler started", slog.Duration("interval", cfg.SweepInterval))
	}

	// Инициализация обработчиков HTTP
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, reconcileService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	matchHandler := handlers.NewMatchHandler(reconcileService)
	webhookHandler := handlers.NewWebhookHandler(reconcileService, archiver, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		[]byte(cfg.JWTSecretKey),
		tournamentHandler,
		registrationHandler,
		matchHandler,
		webhookHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		if scheduler != nil {
			if err := scheduler.Shutdown(); err != nil {
				logger.Error("failed to shut down scheduler", slog.Any("error", err))
			}
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
