package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/artround/engagement-ledger/internal/config"
	"github.com/artround/engagement-ledger/internal/database"
	"github.com/artround/engagement-ledger/internal/handler"
	"github.com/artround/engagement-ledger/internal/queue"
	"github.com/artround/engagement-ledger/internal/repository"
	"github.com/artround/engagement-ledger/internal/router"
	"github.com/artround/engagement-ledger/internal/service/admission"
	"github.com/artround/engagement-ledger/internal/service/points"
	"github.com/artround/engagement-ledger/internal/service/review"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	reviewRepo := repository.NewReviewRepo(db)
	txRepo := repository.NewPointTransactionRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	freeStore := repository.NewFreeTicketStore(db)

	ledger := points.New(txRepo, rdb, cfg.ModerationWindow)
	reviews := review.New(reviewRepo, ledger, queue.PublishEngagementEvent)
	admissions := admission.New(freeStore)

	rh := handler.NewReviewHandler(reviews)
	ph := handler.NewPointsHandler(ledger)
	th := handler.NewTicketHandler(admissions, ticketRepo)

	// The consumer mirrors engagement events into the local audit log. It
	// reconnects on broker failure and never takes the server down.
	go func() {
		if err := queue.StartEngagementConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterEngagement(e, rh, ph, th, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
