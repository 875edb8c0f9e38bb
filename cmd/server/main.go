package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/app"
	"github.com/Freeeeeet/venue_booking/internal/config"
	"github.com/Freeeeeet/venue_booking/internal/controller/api"
	"github.com/Freeeeeet/venue_booking/internal/controller/telegram"
	"github.com/Freeeeeet/venue_booking/internal/gateway"
	"github.com/Freeeeeet/venue_booking/internal/lock"
	"github.com/Freeeeeet/venue_booking/internal/notify"
	"github.com/Freeeeeet/venue_booking/internal/pricing"
	"github.com/Freeeeeet/venue_booking/internal/refund"
	"github.com/Freeeeeet/venue_booking/internal/repository"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	logger.Info("Starting venue booking service",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", location.String()),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	db := base.NewRepository(pool)
	bookingRepo := repository.NewBookingRepository(db)
	proofRepo := repository.NewPaymentProofRepository(db)

	var locker service.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, logger)
		logger.Info("Using redis calendar lock", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR is not set, calendar lock is local to this process")
	}

	paymentGateway, err := gateway.New(gateway.Settings{
		Name:           cfg.PaymentGateway,
		StripeKey:      cfg.StripeKey,
		PayPalClientID: cfg.PayPalClientID,
		PayPalSecret:   cfg.PayPalSecret,
		PayPalSandbox:  cfg.PayPalSandbox,
	})
	if err != nil {
		return err
	}

	refundPolicy, err := refund.ByName(cfg.RefundPolicy)
	if err != nil {
		return err
	}
	calculator := pricing.NewCalculator(cfg.PriceWeekday, cfg.PriceWeekend, cfg.IncludedGuests, cfg.ExcessGuestFee)

	// Каналы уведомлений
	var channels notify.Multi
	var tgBot *bot.Bot
	if cfg.TelegramToken != "" {
		tgBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		if cfg.AdminChatID != 0 {
			channels = append(channels, telegram.NewAdminNotifier(tgBot, cfg.AdminChatID, location))
		}
	}
	if cfg.SMTPHost != "" {
		mailClient, err := notify.NewSMTPClient(notify.SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			return err
		}
		channels = append(channels, notify.NewEmailNotifier(mailClient, cfg.SMTPFrom))
	}
	if len(channels) == 0 {
		logger.Warn("No notification channels configured")
	}

	dispatcher := notify.NewDispatcher(channels, 256, 2, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	bookingService := service.NewBookingService(bookingRepo, calculator, refundPolicy, locker, dispatcher, paymentGateway, logger)
	paymentService := service.NewPaymentService(db, bookingRepo, proofRepo, dispatcher, logger)
	sweeper := service.NewSweeper(bookingRepo, dispatcher, logger)

	scheduler := app.NewScheduler(sweeper, bookingService, location, cfg.JobInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if tgBot != nil {
		botController := telegram.NewBotController(tgBot, bookingService, paymentService, cfg.AdminChatID, location, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot handlers registered without commands menu", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := api.Options{
		AdminToken: cfg.AdminToken,
		Location:   location,
	}
	handler := api.NewHandler(bookingService, paymentService, sweeper, opts, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
