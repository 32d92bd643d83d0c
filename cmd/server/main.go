package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/kafaat/airline-seat-inventory/internal/config"
	"github.com/kafaat/airline-seat-inventory/internal/database"
	"github.com/kafaat/airline-seat-inventory/internal/handler"
	"github.com/kafaat/airline-seat-inventory/internal/queue"
	"github.com/kafaat/airline-seat-inventory/internal/repository"
	"github.com/kafaat/airline-seat-inventory/internal/router"
	"github.com/kafaat/airline-seat-inventory/internal/service"
	"github.com/kafaat/airline-seat-inventory/internal/service/queue_publisher"
	"github.com/kafaat/airline-seat-inventory/internal/sweeper"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	flightRepo := repository.NewFlightRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	holdRepo := repository.NewSeatHoldRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	overbookingRepo := repository.NewOverbookingRepo(db)
	deniedRepo := repository.NewDeniedBoardingRepo(db)

	events := queue_publisher.New()

	waitlistSvc := service.NewWaitlistService(db, inventoryRepo, waitlistRepo, events, cfg.OfferWindow)
	allocSvc := service.NewAllocationService(db, flightRepo, inventoryRepo, holdRepo, bookingRepo, waitlistSvc, events, cfg.HoldTTL, cfg.LimitedPercent)
	advisorSvc := service.NewOverbookingService(flightRepo, inventoryRepo, bookingRepo, overbookingRepo)
	deniedSvc := service.NewDeniedBoardingService(db, flightRepo, bookingRepo, deniedRepo, events, cfg.VoluntaryPct, cfg.InvoluntaryPct, cfg.CompCapCents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("consumer: %v", err)
		}
	}()
	go sweeper.New(allocSvc, waitlistSvc, cfg.SweepInterval).Run(ctx)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg.JWTSecret, rdb,
		handler.NewAllocationHandler(allocSvc),
		handler.NewWaitlistHandler(waitlistSvc),
		handler.NewAdminHandler(advisorSvc, deniedSvc),
	)

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		_ = e.Shutdown(context.Background())
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Println(err)
	}
}
