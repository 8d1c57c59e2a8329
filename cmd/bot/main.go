package main

import (
	"context"
	"hr-time-bot/internal/clock"
	"hr-time-bot/internal/config"
	"hr-time-bot/internal/handler"
	"hr-time-bot/internal/repository"
	"hr-time-bot/internal/service"
	"hr-time-bot/pkg/telegram"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logger.Info("Initializing config...")
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Fatal("Invalid log level")
	}
	logger.SetLevel(level)
	logger.WithField("timezone", cfg.Timezone.String()).Info("Config initialized...")

	// Инициализируем SQLite базу данных
	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true, // SQLite ограничения
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("Failed to get database instance")
	}
	// Одно соединение: записи SQLite сериализуются, транзакции не получают SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	store, err := repository.NewGormStore(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}

	clk := clock.New(cfg.Timezone)
	ledger := service.NewTimeLedger(cfg, clk, logger)

	sessionService := service.NewWorkSessionService(store, ledger, clk, cfg.Timezone, logger)
	approvalService := service.NewApprovalService(store, sessionService, clk, logger)
	userService := service.NewUserService(store, logger)
	absenceService := service.NewAbsenceService(store, logger)
	reportService := service.NewReportService(store, userService, ledger, clk, cfg.Timezone, logger)
	calendarService := service.NewCalendarService(store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализируем администраторов из конфига
	if err := userService.InitializeAdmins(ctx, cfg.AdminIDs); err != nil {
		logger.WithError(err).Fatal("Failed to initialize admins")
	}

	if err := calendarService.Reload(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to load work calendar")
	}
	if cfg.HolidaysFile != "" {
		if _, err := calendarService.LoadFromJSON(ctx, cfg.HolidaysFile); err != nil {
			logger.WithError(err).Warn("Failed to load holidays file")
		}
	}

	// Создаем клиент Telegram
	client, err := telegram.NewClient(cfg.TelegramToken, cfg.Debug, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Telegram client")
	}

	logger.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(
		client.Bot,
		sessionService,
		approvalService,
		userService,
		absenceService,
		reportService,
		calendarService,
		clk,
		cfg,
		logger,
	)

	logger.Info("Bot started. Press Ctrl+C to stop.")
	botHandler.HandleUpdates(ctx, client.Updates())

	client.Stop()

	// Закрываем соединение с БД
	if err := store.Close(); err != nil {
		logger.WithError(err).Warn("Error closing database")
	}

	logger.Info("Bot stopped gracefully")
}
