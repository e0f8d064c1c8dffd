package main // entry point for the reservation server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/router"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Repositories.
	identities := repository.NewIdentityRepo(db)
	tokens := repository.NewTokenRepo(db)
	addresses := repository.NewAddressRepo(db)
	restaurants := repository.NewRestaurantRepo(db)
	locations := repository.NewLocationRepo(db)
	reservations := repository.NewReservationRepo(db)
	employees := repository.NewEmployeeRepo(db)
	files := repository.NewFileRepo(db)

	// Core services.
	engine := service.NewAdmissionEngine(repository.NewTxRunner(db), locations, reservations)
	sweeper := service.NewSweeper(reservations, cfg.SweepInterval, cfg.SweepGrace)
	go sweeper.Run(ctx)

	// Event consumer keeps its own reconnect loop.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, identities, tokens),
		Identity:    handler.NewIdentityHandler(cfg, identities),
		Employee:    handler.NewEmployeeHandler(employees, addresses),
		Restaurant:  handler.NewRestaurantHandler(restaurants, locations),
		Location:    handler.NewLocationHandler(locations, addresses, employees),
		Reservation: handler.NewReservationHandler(engine, reservations, employees),
		File:        handler.NewFileHandler(files, identities),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	os.Exit(0)
}
