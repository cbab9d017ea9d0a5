package main // Entry point package

import (
	"context"   // cancellation for background workers
	"log"       // Logging library
	"os"        // signal plumbing
	"os/signal" // graceful shutdown on interrupt
	"syscall"   // SIGTERM

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/workspace-reservation/internal/booking"    // availability engine and lifecycle state machine
	"github.com/iliyamo/workspace-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/workspace-reservation/internal/database"   // MySQL pool
	"github.com/iliyamo/workspace-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/workspace-reservation/internal/middleware" // rate limiting and response cache
	"github.com/iliyamo/workspace-reservation/internal/queue"      // notification consumer
	"github.com/iliyamo/workspace-reservation/internal/repository" // DB repositories
	"github.com/iliyamo/workspace-reservation/internal/router"     // Internal router setup
	"github.com/iliyamo/workspace-reservation/internal/scheduler"  // reminder scheduler
	notifier "github.com/iliyamo/workspace-reservation/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared pool.
	bookings := repository.NewBookingRepo(db)
	checkins := repository.NewCheckInRepo(db)
	resources := repository.NewResourceRepo(db)
	users := repository.NewUserRepo(db)

	// The booking engine owns availability checks, the lifecycle state
	// machine and reminder dispatch.  nil clock means wall time.
	pub := notifier.NewPublisher(cfg.AMQPURL)
	svc := booking.NewService(bookings, checkins, resources, pub, nil)

	// Background workers share one cancellable context tied to SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(svc, cfg.SchedulerInterval, nil)
	go sched.Start(ctx)

	// The consumer drains the notification queue into the delivery log.
	// It reconnects on its own; an error here means it gave up for good.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// Redis-backed token bucket and response cache.  Both degrade to
	// no-ops when Redis is unreachable or disabled by config.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	slotCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e) // health check
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterBooking(e, handler.NewBookingHandler(svc), handler.NewResourceHandler(resources), cfg.JWTSecret, slotCache)
	router.RegisterAdmin(e, handler.NewResourceHandler(resources), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
