package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/appletondrawingclub/registration-api/internal/config"
	"github.com/appletondrawingclub/registration-api/internal/database"
	"github.com/appletondrawingclub/registration-api/internal/email"
	"github.com/appletondrawingclub/registration-api/internal/handler"
	"github.com/appletondrawingclub/registration-api/internal/middleware"
	"github.com/appletondrawingclub/registration-api/internal/newsletter"
	"github.com/appletondrawingclub/registration-api/internal/payment"
	"github.com/appletondrawingclub/registration-api/internal/queue"
	"github.com/appletondrawingclub/registration-api/internal/repository"
	"github.com/appletondrawingclub/registration-api/internal/router"
	queue_publisher "github.com/appletondrawingclub/registration-api/internal/service"
)

func main() {
	// Load .env when present; real deployments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Stores and collaborators; everything is constructed here and handed
	// down, nothing reads the environment past this point.
	regRepo := repository.NewRegistrationRepo(db)
	eventRepo := repository.NewEventRepo(db)
	gateway := payment.NewGateway(cfg.StripeSecretKey)
	sender := email.NewSender(cfg.ResendAPIKey, cfg.FromEmail)
	news := newsletter.NewClient(cfg.ButtondownAPIKey)

	effects := &handler.SideEffects{
		Events:     eventRepo,
		Email:      sender,
		Newsletter: news,
		Publish:    queue_publisher.PublishRegistrationConfirmed,
	}

	regHandler := handler.NewRegistrationHandler(regRepo, gateway, effects)
	checkoutHandler := handler.NewCheckoutHandler(gateway, gateway, cfg.SiteOrigin)
	webhookHandler := handler.NewWebhookHandler(regRepo, gateway, effects, cfg.StripeWebhookSecret)
	eventHandler := handler.NewEventHandler(eventRepo)
	adminHandler := handler.NewAdminHandler(regRepo, cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AccessTTLMin)

	// Rate limiting degrades to a pass-through when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}
	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb)

	// Background consumer appends confirmed registrations to the audit log.
	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("registration consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, regHandler, checkoutHandler, webhookHandler, eventHandler, limiter)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
