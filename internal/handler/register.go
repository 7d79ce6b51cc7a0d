package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/appletondrawingclub/registration-api/internal/model"
	"github.com/appletondrawingclub/registration-api/internal/repository"
	"github.com/appletondrawingclub/registration-api/internal/utils"
)

// RegistrationHandler creates registration rows for the door and online
// payment paths.
type RegistrationHandler struct {
	Store    RegistrationStore
	Resolver CustomerResolver
	Effects  *SideEffects
}

// NewRegistrationHandler constructs a RegistrationHandler and panics if a
// required dependency is nil.
func NewRegistrationHandler(store RegistrationStore, resolver CustomerResolver, effects *SideEffects) *RegistrationHandler {
	if store == nil || resolver == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Store: store, Resolver: resolver, Effects: effects}
}

// Register handles POST /api/register. Door registrations are completed
// immediately (cash is collected in person); online registrations stay
// pending until the Stripe webhook reconciles them. Validation is its own
// gate before any external call: nothing is written and no customer lookup
// happens for a rejected request.
func (h *RegistrationHandler) Register(c echo.Context) error {
	var body model.RegisterRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	// Honeypot: a filled website field marks an automated submission. The
	// response is the same generic 400 as any other validation failure so
	// bots learn nothing from it.
	if body.Website != "" {
		log.Printf("register: honeypot triggered, website=%q", body.Website)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid submission"})
	}

	if msg := utils.ValidateRequired(
		utils.Field{Name: "event_id", Value: body.EventID},
		utils.Field{Name: "name", Value: body.Name},
		utils.Field{Name: "email", Value: body.Email},
		utils.Field{Name: "quantity", Value: body.Quantity},
		utils.Field{Name: "payment_method", Value: body.PaymentMethod},
	); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if !utils.IsValidEmail(body.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid email format"})
	}
	if body.Quantity < 1 || body.Quantity > 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid quantity. Please select 1-6 people."})
	}
	if body.PaymentMethod != model.PaymentMethodDoor && body.PaymentMethod != model.PaymentMethodOnline {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid payment method"})
	}

	ctx := c.Request().Context()

	customerID, err := h.Resolver.Resolve(ctx, body.Email, body.Name)
	if err != nil {
		log.Printf("register: customer resolution failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	processing := model.ProcessingStatusPending
	if body.PaymentMethod == model.PaymentMethodDoor {
		processing = model.ProcessingStatusCompleted
	}

	reg := &model.Registration{
		ID:               uuid.NewString(),
		EventID:          body.EventID,
		Name:             body.Name,
		Email:            body.Email,
		Quantity:         body.Quantity,
		PaymentMethod:    body.PaymentMethod,
		PaymentStatus:    model.PaymentStatusPending,
		ProcessingStatus: processing,
		NewsletterSignup: body.NewsletterSignup,
		StripeCustomerID: customerID,
	}

	if err := h.Store.Insert(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRegistration):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "You have already registered for this event"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Event not found. Please check the event ID and try again."})
		}
		log.Printf("register: insert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	// Door registrations are done: fire the confirmation side effects now.
	// Online registrations wait for the webhook.
	if reg.ProcessingStatus == model.ProcessingStatusCompleted {
		h.Effects.DispatchConfirmed(ctx, *reg, 0)
	}

	return c.JSON(http.StatusOK, model.RegistrationResponse{Success: true, Registration: reg})
}
