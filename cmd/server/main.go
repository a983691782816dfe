package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cocochutney-reservations/internal/config"
	"github.com/iliyamo/cocochutney-reservations/internal/database"
	"github.com/iliyamo/cocochutney-reservations/internal/gateway"
	"github.com/iliyamo/cocochutney-reservations/internal/handler"
	"github.com/iliyamo/cocochutney-reservations/internal/middleware"
	"github.com/iliyamo/cocochutney-reservations/internal/queue"
	"github.com/iliyamo/cocochutney-reservations/internal/repository"
	"github.com/iliyamo/cocochutney-reservations/internal/router"
	"github.com/iliyamo/cocochutney-reservations/internal/service"
	"github.com/iliyamo/cocochutney-reservations/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatalf("migrate database: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	var pending repository.PendingPaymentStore
	if rdb != nil {
		defer rdb.Close()
		pending = repository.NewRedisPendingStore(rdb, cfg.PendingPaymentTTL)
	} else {
		log.Println("redis unavailable: pending payments kept in memory, rate limiting disabled")
		pending = repository.NewMemoryPendingStore(cfg.PendingPaymentTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	renderer, err := handler.NewTemplateRenderer(web.Templates)
	if err != nil {
		log.Fatalf("load templates: %v", err)
	}
	e.Renderer = renderer

	bookings := repository.NewBookingRepo(db)
	intake := service.NewReservationService(bookings, cfg.Location)
	payments := service.NewPaymentService(
		service.PaymentConfig{
			KeyID:         cfg.Gateway.KeyID,
			KeySecret:     cfg.Gateway.KeySecret,
			WebhookSecret: cfg.Gateway.WebhookSecret,
			FeeMinor:      cfg.Gateway.FeeMinor,
			Currency:      cfg.Gateway.Currency,
			BusinessName:  cfg.Gateway.BusinessName,
		},
		bookings,
		pending,
		gateway.NewClient(cfg.Gateway.APIBase, cfg.Gateway.KeyID, cfg.Gateway.KeySecret),
		service.NewQueuePublisher(cfg.AMQPURL),
		e.Logger,
	)

	session := middleware.GuestSession(cfg.JWTSecret, time.Duration(cfg.GuestSessionTTLMin)*time.Minute, cfg.Env == "prod")
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterReservation(e,
		handler.NewReservationHandler(intake, payments),
		handler.NewPaymentHandler(payments),
		session, limit)
	router.RegisterWebhooks(e, handler.NewPaymentHandler(payments))
	router.RegisterAccount(e,
		handler.NewAccountHandler(handler.AccountConfig{
			JWTSecret:    cfg.JWTSecret,
			AccessTTLMin: cfg.AccessTTLMin,
			BcryptCost:   cfg.BcryptCost,
		}, repository.NewUserRepo(db)),
		handler.NewAddressHandler(repository.NewAddressRepo(db)),
		handler.NewContactHandler(repository.NewContactRepo(db)),
		cfg.JWTSecret, limit)
	router.RegisterAdmin(e, handler.NewAdminBookingHandler(bookings, cfg.Location), cfg.JWTSecret)

	if cfg.BookingConsumerEnabled {
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.AMQPURL, "logs"); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := payments.Drain(shutdownCtx); err != nil {
		log.Printf("drain booking events: %v", err)
	}
}
