package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/appletondrawingclub/registration-api/internal/handler"
	"github.com/appletondrawingclub/registration-api/internal/middleware"
)

// RegisterRoutes registers the health check and the global CORS policy on
// the provided Echo instance. The API is consumed from the statically
// generated site, so every endpoint answers OPTIONS preflights and carries
// permissive CORS headers on real responses.
func RegisterRoutes(e *echo.Echo) {
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"authorization", "x-client-info", "apikey", "content-type", "stripe-signature"},
	}))

	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the public registration, checkout and webhook
// endpoints. The rate limiter is applied only to the browser-facing form
// endpoints; the webhook is authenticated by its signature and must never
// be throttled away from Stripe.
func RegisterAPI(e *echo.Echo, reg *handler.RegistrationHandler, checkout *handler.CheckoutHandler, wh *handler.WebhookHandler, events *handler.EventHandler, limiter echo.MiddlewareFunc) {
	api := e.Group("/api")

	api.POST("/register", reg.Register, limiter)
	api.POST("/checkout", checkout.CreateCheckout, limiter)
	api.GET("/checkout/session", checkout.GetCheckoutSession)
	api.POST("/stripe/webhook", wh.HandleWebhook)
	api.GET("/events/:id", events.GetEvent)
}

// RegisterAdmin registers the admin login endpoint and the JWT-protected
// listing endpoints.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST("/api/admin/login", a.Login)

	g := e.Group("/api/admin")
	g.Use(middleware.AdminAuth(jwtSecret))
	g.GET("/registrations", a.ListRegistrations)
}
