package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"cinebook/internal/auth"
	"cinebook/internal/booking"
	bookingapi "cinebook/internal/booking/api"
	bookingdb "cinebook/internal/booking/db"
	rediswrap "cinebook/internal/booking/redis"
	"cinebook/internal/catalog"
	catalogapi "cinebook/internal/catalog/api"
	catalogdb "cinebook/internal/catalog/db"
	"cinebook/internal/config"
	"cinebook/internal/kafka"
	"cinebook/internal/logger"
	"cinebook/internal/notify"
	"cinebook/internal/payment"
	"cinebook/internal/qr"
	"cinebook/internal/tasks"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	bookingdb.Migrate(bunDB)

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	// --- Kafka Setup ---
	var events booking.EventPublisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled {
		topics := []string{
			cfg.Kafka.Topics.BookingCreated,
			cfg.Kafka.Topics.BookingPaid,
			cfg.Kafka.Topics.BookingExpired,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic setup failed, continuing: %v", err))
		}
		events = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
	} else {
		log.Warn("KAFKA", "Kafka disabled, booking events will not be published")
	}

	// --- Stripe Setup ---
	payment.InitStripe(cfg.Stripe.SecretKey)
	checkout := payment.NewCheckout(cfg.Stripe, log)

	// --- Core wiring ---
	store := &bookingdb.DB{Bun: bunDB}
	catalogStore := &catalogdb.DB{Bun: bunDB}

	// Holds get a minute of slack past the booking window so the DB guard,
	// not a lock expiry, decides contested seats.
	holds := rediswrap.NewRedis(redisClient, cfg.Booking.HoldWindow+time.Minute)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	scheduler := tasks.NewScheduler(redisOpt, log)
	defer scheduler.Close()

	bookingService := booking.NewBookingService(
		store, store, holds, checkout, scheduler, events, cfg.Booking.HoldWindow, log,
	)

	tmdbClient := catalog.NewTMDBClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL)
	catalogService := catalog.NewCatalogService(catalogStore, catalogStore, tmdbClient, log)

	qrGen := qr.NewGenerator(cfg.Booking.QRSecret)
	mailer := notify.NewMailer(cfg.Email, store, qrGen, log)

	// --- Task worker (expiry + confirmation email) ---
	worker := tasks.NewWorker(bookingService, mailer, log)
	go func() {
		if err := worker.Run(redisOpt); err != nil {
			log.Fatal("TASK", fmt.Sprintf("Task worker stopped: %v", err))
		}
	}()

	// --- HTTP surface ---
	validate := validator.New()
	bookingHandler := &bookingapi.Handler{BookingService: bookingService, Validator: validate, Logger: log}
	catalogHandler := &catalogapi.Handler{CatalogService: catalogService, Validator: validate, Logger: log}
	webhookHandler := payment.NewWebhookHandler(cfg.Stripe.WebhookSecret, bookingService, log)

	authMiddleware, err := auth.Middleware(cfg.Auth.OIDCIssuer)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("OIDC setup failed: %v", err))
	}

	r := chi.NewRouter()

	// Stripe delivers unauthenticated, signature-verified raw bodies.
	r.Post("/api/stripe/webhook", webhookHandler.ServeHTTP)

	r.Get("/api/show", catalogHandler.ListMovies)
	r.Get("/api/show/{movieId}", catalogHandler.MovieShowTimes)
	r.Get("/api/booking/seats/{showId}", bookingHandler.OccupiedSeats)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/api/booking", bookingHandler.CreateBooking)
		r.Get("/api/booking/me", bookingHandler.MyBookings)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/api/show/now-playing", catalogHandler.NowPlaying)
			r.Post("/api/show", catalogHandler.AddShows)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Booking service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	worker.Shutdown()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
