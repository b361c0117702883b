package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/ledger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
	"github.com/iliyamo/bus-seat-reservation/internal/scheduler"
	queue_publisher "github.com/iliyamo/bus-seat-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // read .env when present; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	tripRepo := repository.NewTripRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	// Every reaped hold, whether swept by the scheduler or reaped lazily
	// on a request path, is published as a hold.expired event.
	onExpire := func(h model.Hold) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev := queue.HoldExpiredEvent{
			HoldID:        h.ID,
			OwnerToken:    h.OwnerToken,
			RouteID:       h.RouteID,
			DepartureDate: h.DepartureDate,
			SeatLabels:    h.SeatLabels,
			ExpiredAt:     h.ExpiresAt.Format(time.RFC3339),
		}
		if err := queue_publisher.PublishHoldExpired(ctx, ev); err != nil {
			log.Printf("publish hold.expired failed: %v", err)
		}
	}

	ledgerCfg := ledger.Config{
		MaxSeatsPerHold: cfg.HoldMaxSeats,
		DefaultTTL:      time.Duration(cfg.HoldTTLSec) * time.Second,
		MaxTTL:          time.Duration(cfg.HoldMaxTTLSec) * time.Second,
	}
	ldg := ledger.New(tripRepo, ledgerCfg, nil, onExpire)

	reaper, err := scheduler.Start(ldg, time.Duration(cfg.ReapIntervalSec)*time.Second)
	if err != nil {
		log.Fatalf("start reaper: %v", err)
	}
	defer func() { _ = reaper.Stop() }()

	// Background consumer appending reservation events to logs/reservation.log.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	// Redis backs the rate limiter and the trip browse cache.  A nil
	// client disables both and the service degrades gracefully.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response caching disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.Validator = handler.NewValidator()

	resHandler := handler.NewReservationHandler(ldg, bookingRepo)
	tripHandler := handler.NewTripHandler(tripRepo)
	sessHandler := handler.NewSessionHandler(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)

	router.RegisterRoutes(e)
	router.RegisterSession(e, sessHandler)
	router.RegisterPublic(e, tripHandler, resHandler, cache)
	router.RegisterReservation(e, resHandler, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
