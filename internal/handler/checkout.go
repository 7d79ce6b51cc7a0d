package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"

	"github.com/appletondrawingclub/registration-api/internal/model"
	"github.com/appletondrawingclub/registration-api/internal/payment"
	"github.com/appletondrawingclub/registration-api/internal/utils"
)

// CheckoutHandler opens Stripe checkout sessions for online registrations
// and serves the post-payment session lookup.
type CheckoutHandler struct {
	Resolver CustomerResolver
	Gateway  CheckoutGateway
	// SiteOrigin is the return-URL origin used when the request carries no
	// Origin header (server-to-server calls, curl).
	SiteOrigin string
}

// NewCheckoutHandler constructs a CheckoutHandler and panics if a required
// dependency is nil.
func NewCheckoutHandler(resolver CustomerResolver, gateway CheckoutGateway, siteOrigin string) *CheckoutHandler {
	if resolver == nil || gateway == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Resolver: resolver, Gateway: gateway, SiteOrigin: siteOrigin}
}

// CreateCheckout handles POST /api/checkout. It validates the registration
// intent, resolves the Stripe customer, and opens an embedded checkout
// session whose metadata the webhook reconciler reads back later. The
// response carries only the session's client secret.
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	var body model.CheckoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	if body.Website != "" {
		log.Printf("checkout: honeypot triggered, website=%q", body.Website)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid submission"})
	}

	if msg := utils.ValidateRequired(
		utils.Field{Name: "event_id", Value: body.EventID},
		utils.Field{Name: "event_title", Value: body.EventTitle},
		utils.Field{Name: "name", Value: body.Name},
		utils.Field{Name: "email", Value: body.Email},
		utils.Field{Name: "price", Value: body.Price},
		utils.Field{Name: "quantity", Value: body.Quantity},
	); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if !utils.IsValidEmail(body.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid email format"})
	}
	if body.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid price"})
	}
	if body.Quantity < 1 || body.Quantity > 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid quantity. Please select 1-6 people."})
	}

	ctx := c.Request().Context()

	customerID, err := h.Resolver.Resolve(ctx, body.Email, body.Name)
	if err != nil {
		log.Printf("checkout: customer resolution failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create checkout session"})
	}

	origin := c.Request().Header.Get("Origin")
	if origin == "" {
		origin = h.SiteOrigin
	}

	sess, err := h.Gateway.CreateSession(ctx, payment.SessionParams{
		EventID:          body.EventID,
		EventTitle:       body.EventTitle,
		Name:             body.Name,
		Email:            body.Email,
		Price:            body.Price,
		Quantity:         body.Quantity,
		DonationAmount:   body.DonationAmount,
		NewsletterSignup: body.NewsletterSignup,
		CustomerID:       customerID,
		RegistrationID:   body.RegistrationID,
		Origin:           origin,
	})
	if err != nil {
		log.Printf("checkout: session creation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create checkout session"})
	}

	return c.JSON(http.StatusOK, echo.Map{"clientSecret": sess.ClientSecret})
}

// sessionView is the normalized projection of a checkout session returned
// to the post-payment return page. Status is mapped onto the closed set
// {complete, open, expired, unknown}.
type sessionView struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
	CustomerEmail string            `json:"customer_email"`
	PaymentStatus string            `json:"payment_status"`
	Created       int64             `json:"created"`
}

// GetCheckoutSession handles GET /api/checkout/session?session_id=...
func (h *CheckoutHandler) GetCheckoutSession(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if msg := utils.ValidateRequired(utils.Field{Name: "session_id", Value: sessionID}); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	sess, err := h.Gateway.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		log.Printf("checkout: session lookup failed for %s: %v", sessionID, err)
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Invalid session ID or session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve checkout session"})
	}

	view := sessionView{
		ID:            sess.ID,
		Status:        payment.NormalizeStatus(sess.Status),
		AmountTotal:   sess.AmountTotal,
		Metadata:      sess.Metadata,
		CustomerEmail: sess.CustomerEmail,
		PaymentStatus: string(sess.PaymentStatus),
		Created:       sess.Created,
	}
	if view.CustomerEmail == "" && sess.CustomerDetails != nil {
		view.CustomerEmail = sess.CustomerDetails.Email
	}

	return c.JSON(http.StatusOK, echo.Map{"session": view})
}
