package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/seatly/internal/broadcast"
	"github.com/iliyamo/seatly/internal/clock"
	"github.com/iliyamo/seatly/internal/config"
	"github.com/iliyamo/seatly/internal/handler"
	"github.com/iliyamo/seatly/internal/middleware"
	"github.com/iliyamo/seatly/internal/queue"
	"github.com/iliyamo/seatly/internal/reservation"
	"github.com/iliyamo/seatly/internal/router"
	queue_publisher "github.com/iliyamo/seatly/internal/service"
	"github.com/iliyamo/seatly/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()
	st, checks, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	if cfg.StoreSeed {
		seeded, err := store.Seed(ctx, st, clk.Now().UTC())
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if seeded {
			log.Printf("seed: default fleet loaded")
		}
	}

	// Background workers share this context so shutdown can stop them
	// after the HTTP server has drained.
	workCtx, cancelWork := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	hub := broadcast.NewHub()
	var notifier reservation.Notifier = hub
	rdb := config.NewRedisClient()
	if rdb != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		if cfg.SeatRelayEnabled {
			relay := broadcast.NewRelay(rdb, hub)
			if err := relay.Start(workCtx); err != nil {
				log.Printf("relay: disabled: %v", err)
			} else {
				notifier = relay
			}
		}
	}

	var opts []reservation.Option
	var publisher *queue_publisher.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue_publisher.New(cfg.RabbitURL, cfg.ReservationExchange)
		opts = append(opts, reservation.WithRecorder(publisher))
	}
	coord := reservation.NewCoordinator(st, st, notifier, clk, opts...)

	sweeper := reservation.NewSweeper(coord, st, clk,
		reservation.WithInterval(cfg.SweepInterval),
		reservation.WithHoldBudget(cfg.HoldBudget))
	workers.Add(1)
	go func() {
		defer workers.Done()
		sweeper.Run(workCtx)
	}()

	if cfg.RabbitURL != "" {
		subs := []struct {
			sub queue.Subscription
			h   queue.Handler
		}{
			{queue.Subscription{Name: "payment-consumer", URL: cfg.RabbitURL, Queue: cfg.PaymentQueue, Prefetch: 50},
				queue.PaymentHandler(coord)},
			{queue.Subscription{Name: "audit-consumer", URL: cfg.RabbitURL, Exchange: cfg.ReservationExchange,
				Queue: cfg.AuditQueue, Keys: []string{"reservation.*"}, Prefetch: 50},
				queue.NewAuditLog(cfg.AuditLogPath).Handle},
		}
		for _, s := range subs {
			workers.Add(1)
			go func() {
				defer workers.Done()
				_ = queue.Run(workCtx, s.sub, s.h)
			}()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.FrontendURLs,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	catalog := handler.NewCatalogHandler(st, clk.Now)
	reservations := handler.NewReservationHandler(coord)
	socket := handler.NewSocketHandler(hub, st, cfg.FrontendURLs, cfg.SubscriberBuffer)
	router.RegisterPublic(e, handler.Health(checks...), catalog, reservations, socket,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, reservations, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAdmin(e, catalog, reservations, handler.NewStatsHandler(st, coord), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, store=%s, hold=%s)", addr, cfg.Env, cfg.StoreBackend, cfg.HoldBudget)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	cancelWork()
	workers.Wait()
	hub.Close()
	if publisher != nil {
		_ = publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := st.Close(); err != nil {
		log.Printf("store close: %v", err)
	}
}
