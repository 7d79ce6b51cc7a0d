package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/appletondrawingclub/registration-api/internal/model"
	"github.com/appletondrawingclub/registration-api/internal/repository"
)

// webhookBodyLimit bounds the raw payload read from Stripe. 1MiB is far
// above any real event size.
const webhookBodyLimit = 1 << 20

// WebhookHandler reconciles signed Stripe events against the registration
// store. Signature verification is the authentication mechanism for this
// endpoint: nothing is read from or written to the store before it passes.
// Events may arrive out of order or be redelivered; the stripe_event_id
// stamp on the registration row makes completion idempotent, and any
// processing failure after verification returns 500 so Stripe redelivers
// the event later. Redelivery is the system's only retry loop.
type WebhookHandler struct {
	Store   RegistrationStore
	Gateway CheckoutGateway
	Effects *SideEffects
	Secret  string
}

// NewWebhookHandler constructs a WebhookHandler and panics if a required
// dependency is missing.
func NewWebhookHandler(store RegistrationStore, gateway CheckoutGateway, effects *SideEffects, secret string) *WebhookHandler {
	if store == nil || gateway == nil || secret == "" {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Store: store, Gateway: gateway, Effects: effects, Secret: secret}
}

// HandleWebhook handles POST /api/stripe/webhook.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, webhookBodyLimit)
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to read request body"})
	}

	sig := req.Header.Get("Stripe-Signature")
	if sig == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing stripe signature"})
	}

	// Tolerate API version drift between the SDK and the event payload;
	// signature verification is unaffected.
	event, err := webhook.ConstructEventWithOptions(payload, sig, h.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Printf("webhook: signature verification failed: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid signature"})
	}

	ctx := req.Context()

	switch event.Type {
	case "checkout.session.completed":
		if err := h.handleCheckoutCompleted(ctx, &event); err != nil {
			log.Printf("webhook: processing %s failed: %v", event.ID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
		}
	case "charge.refunded":
		if err := h.handleChargeRefunded(ctx, &event); err != nil {
			log.Printf("webhook: processing %s failed: %v", event.ID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
		}
	case "payment_intent.payment_failed":
		h.handlePaymentFailed(&event)
	default:
		log.Printf("webhook: unhandled event type %s", event.Type)
	}

	return c.String(http.StatusOK, "Success")
}

// handleCheckoutCompleted applies a completed checkout session to its
// pending registration: payment and processing go to completed, and the
// Stripe event and session ids are stamped on the row. The event id check
// up front makes redelivery a no-op; the remaining race between the check
// and the update is closed by the write-once predicate in the store.
func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decode checkout.session: %w", err)
	}

	applied, err := h.Store.ExistsByStripeEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if applied {
		log.Printf("webhook: event %s already processed, skipping", event.ID)
		return nil
	}

	registrationID := sess.Metadata["registration_id"]
	customerID := sess.Metadata["customer_id"]
	if customerID == "" && sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	// A session without a registration or customer id carries data this
	// handler cannot recover on its own. Fail loudly so Stripe retries;
	// if the metadata truly never existed the event needs operator eyes.
	if registrationID == "" || customerID == "" {
		return fmt.Errorf("session %s missing registration_id or customer id in metadata", sess.ID)
	}

	reg, err := h.Store.MarkCompleted(ctx, registrationID, event.ID, sess.ID)
	if err != nil {
		return fmt.Errorf("mark registration %s completed: %w", registrationID, err)
	}
	log.Printf("webhook: registration %s completed via session %s", reg.ID, sess.ID)

	donation := 0.0
	if raw := sess.Metadata["donation_amount"]; raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			donation = v
		}
	}
	h.Effects.DispatchConfirmed(ctx, *reg, donation)
	return nil
}

// handleChargeRefunded records a refund against the registration that paid
// the charge. Lookup prefers the checkout session behind the charge's
// payment intent; the fallback matches the most recent completed
// registration for the charge's billing email, a best-effort heuristic
// that has not been exercised against real refund traffic. When neither
// resolves, the event is logged and dropped rather than guessing a target.
func (h *WebhookHandler) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return fmt.Errorf("decode charge: %w", err)
	}

	reg, err := h.locateRefundTarget(ctx, &ch)
	if err != nil {
		return err
	}
	if reg == nil {
		log.Printf("webhook: no registration found for refunded charge %s, skipping", ch.ID)
		return nil
	}
	if reg.PaymentStatus != model.PaymentStatusCompleted {
		// Refunds only apply to completed payments; a pending row never
		// jumps straight to refunded.
		log.Printf("webhook: registration %s is %s, not completed; ignoring refund for charge %s",
			reg.ID, reg.PaymentStatus, ch.ID)
		return nil
	}

	ref := model.Refund{
		Amount:     float64(ch.AmountRefunded) / 100,
		RefundedAt: time.Now().UTC(),
	}
	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
		ref.StripeRefundID = ch.Refunds.Data[0].ID
		ref.Reason = string(ch.Refunds.Data[0].Reason)
	}

	if err := h.Store.MarkRefunded(ctx, reg.ID, ref); err != nil {
		if errors.Is(err, repository.ErrNotCompleted) {
			log.Printf("webhook: registration %s no longer completed, refund for charge %s dropped", reg.ID, ch.ID)
			return nil
		}
		return fmt.Errorf("mark registration %s refunded: %w", reg.ID, err)
	}
	log.Printf("webhook: registration %s refunded $%.2f (charge %s)", reg.ID, ref.Amount, ch.ID)
	return nil
}

// locateRefundTarget resolves the registration a refunded charge paid for,
// or nil when no candidate exists.
func (h *WebhookHandler) locateRefundTarget(ctx context.Context, ch *stripe.Charge) (*model.Registration, error) {
	if ch.PaymentIntent != nil && ch.PaymentIntent.ID != "" {
		sess, err := h.Gateway.SessionByPaymentIntent(ctx, ch.PaymentIntent.ID)
		if err != nil {
			return nil, fmt.Errorf("session lookup for charge %s: %w", ch.ID, err)
		}
		if sess != nil {
			reg, err := h.Store.FindBySession(ctx, sess.ID)
			if err == nil {
				return reg, nil
			}
			if !errors.Is(err, repository.ErrRegistrationNotFound) {
				return nil, err
			}
		}
	}

	billingEmail := ""
	if ch.BillingDetails != nil {
		billingEmail = ch.BillingDetails.Email
	}
	if billingEmail == "" {
		return nil, nil
	}
	reg, err := h.Store.LatestCompletedByEmail(ctx, billingEmail)
	if errors.Is(err, repository.ErrRegistrationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// handlePaymentFailed logs the failure and changes nothing: the embedded
// checkout UI handles retries and the registration stays pending for a
// user retry or the door fallback.
func (h *WebhookHandler) handlePaymentFailed(event *stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Printf("webhook: decode payment_intent failed: %v", err)
		return
	}
	log.Printf("webhook: payment failed for intent %s", pi.ID)
}
