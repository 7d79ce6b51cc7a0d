package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/appletondrawingclub/registration-api/internal/model"
	"github.com/appletondrawingclub/registration-api/internal/queue"
)

const testWebhookSecret = "whsec_test_registration_reconciler"

// signPayload signs a raw event body the way Stripe would and returns the
// body plus the Stripe-Signature header value.
func signPayload(t *testing.T, payload []byte) (body []byte, sigHeader string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func serveWebhook(t *testing.T, h *WebhookHandler, body []byte, sigHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	rec := httptest.NewRecorder()
	if err := h.HandleWebhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

// seedPending inserts a pending online registration and returns its id.
func seedPending(t *testing.T, store *fakeStore) string {
	t.Helper()
	reg := &model.Registration{
		ID:               "reg-pending-1",
		EventID:          "evt-figure-night",
		Name:             "Ann Artist",
		Email:            "ann@example.com",
		Quantity:         2,
		PaymentMethod:    model.PaymentMethodOnline,
		PaymentStatus:    model.PaymentStatusPending,
		ProcessingStatus: model.ProcessingStatusPending,
		StripeCustomerID: "cus_1",
		CreatedAt:        time.Now(),
	}
	if err := store.Insert(context.Background(), reg); err != nil {
		t.Fatalf("seeding registration: %v", err)
	}
	return reg.ID
}

func checkoutCompletedPayload(eventID, registrationID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_live_1",
				"object": "checkout.session",
				"metadata": {
					"registration_id": %q,
					"customer_id": "cus_1",
					"donation_amount": "5"
				}
			}
		}
	}`, eventID, registrationID))
}

func TestWebhookMissingSignature(t *testing.T) {
	store := newFakeStore()
	h := NewWebhookHandler(store, &fakeGateway{}, nil, testWebhookSecret)

	rec := serveWebhook(t, h, checkoutCompletedPayload("evt_1", "reg-x"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if store.completedCall != 0 {
		t.Errorf("store touched without a signature")
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	store := newFakeStore()
	h := NewWebhookHandler(store, &fakeGateway{}, nil, testWebhookSecret)

	payload := checkoutCompletedPayload("evt_1", "reg-x")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_wrong_secret",
		Timestamp: time.Now(),
	})

	rec := serveWebhook(t, h, signed.Payload, signed.Header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec); got != "Invalid signature" {
		t.Errorf("error = %q", got)
	}
	if store.completedCall != 0 {
		t.Errorf("store touched despite bad signature")
	}
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	store := newFakeStore()
	regID := seedPending(t, store)
	emails := &fakeEmail{}
	var published []queue.RegistrationConfirmedEvent
	effects := &SideEffects{
		Events:  &fakeEvents{detail: testEventDetail()},
		Email:   emails,
		Publish: collectPublished(&published),
	}
	h := NewWebhookHandler(store, &fakeGateway{}, effects, testWebhookSecret)

	body, sig := signPayload(t, checkoutCompletedPayload("evt_hook_1", regID))
	rec := serveWebhook(t, h, body, sig)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	reg := store.get(regID)
	if reg.PaymentStatus != model.PaymentStatusCompleted {
		t.Errorf("payment_status = %q, want completed", reg.PaymentStatus)
	}
	if reg.ProcessingStatus != model.ProcessingStatusCompleted {
		t.Errorf("processing_status = %q, want completed", reg.ProcessingStatus)
	}
	if reg.StripeEventID == nil || *reg.StripeEventID != "evt_hook_1" {
		t.Errorf("stripe_event_id = %v, want evt_hook_1 stamped on the row", reg.StripeEventID)
	}
	if reg.StripeSessionID == nil || *reg.StripeSessionID != "cs_live_1" {
		t.Errorf("stripe_session_id = %v, want cs_live_1", reg.StripeSessionID)
	}

	if len(emails.sent) != 1 {
		t.Fatalf("sent %d confirmation emails, want 1", len(emails.sent))
	}
	if emails.sent[0].DonationAmount != 5 {
		t.Errorf("donation = %v, want 5 (from session metadata)", emails.sent[0].DonationAmount)
	}
	if len(published) != 1 || published[0].Total != 45 {
		t.Errorf("published = %+v, want one event with total 45", published)
	}
}

func TestWebhookRedeliveryIsNoOp(t *testing.T) {
	store := newFakeStore()
	regID := seedPending(t, store)
	emails := &fakeEmail{}
	effects := &SideEffects{Events: &fakeEvents{detail: testEventDetail()}, Email: emails}
	h := NewWebhookHandler(store, &fakeGateway{}, effects, testWebhookSecret)

	payload := checkoutCompletedPayload("evt_hook_dup", regID)
	body, sig := signPayload(t, payload)
	if rec := serveWebhook(t, h, body, sig); rec.Code != http.StatusOK {
		t.Fatalf("first delivery: status = %d", rec.Code)
	}

	// Stripe redelivers the same event id. The handler must acknowledge it
	// without sending a second email or touching the row again.
	body, sig = signPayload(t, payload)
	rec := serveWebhook(t, h, body, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery: status = %d, want 200", rec.Code)
	}
	if len(emails.sent) != 1 {
		t.Errorf("redelivery sent %d extra emails", len(emails.sent)-1)
	}
	if store.completedCall != 1 {
		t.Errorf("MarkCompleted called %d times, want 1", store.completedCall)
	}
}

func TestWebhookCheckoutCompletedMissingMetadata(t *testing.T) {
	store := newFakeStore()
	h := NewWebhookHandler(store, &fakeGateway{}, nil, testWebhookSecret)

	body, sig := signPayload(t, []byte(`{
		"id": "evt_no_meta",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_no_meta", "object": "checkout.session", "metadata": {}}}
	}`))
	rec := serveWebhook(t, h, body, sig)

	// No registration id means the reconciler cannot act; 500 asks Stripe
	// to redeliver in case a race made the metadata readable later.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if store.completedCall != 0 {
		t.Errorf("MarkCompleted called for a session without metadata")
	}
}

func refundPayload(eventID, paymentIntentID, email string, amountRefunded int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "charge.refunded",
		"data": {
			"object": {
				"id": "ch_1",
				"object": "charge",
				"amount_refunded": %d,
				"payment_intent": %q,
				"billing_details": {"email": %q},
				"refunds": {"data": [{"id": "re_1", "object": "refund", "reason": "requested_by_customer"}]}
			}
		}
	}`, eventID, amountRefunded, paymentIntentID, email))
}

func completeViaWebhook(t *testing.T, h *WebhookHandler, regID string) {
	t.Helper()
	body, sig := signPayload(t, checkoutCompletedPayload("evt_complete_"+regID, regID))
	if rec := serveWebhook(t, h, body, sig); rec.Code != http.StatusOK {
		t.Fatalf("completing registration %s: status = %d", regID, rec.Code)
	}
}

func TestWebhookChargeRefundedViaSession(t *testing.T) {
	store := newFakeStore()
	regID := seedPending(t, store)
	gw := &fakeGateway{byIntent: map[string]*stripe.CheckoutSession{
		"pi_1": {ID: "cs_live_1"},
	}}
	h := NewWebhookHandler(store, gw, nil, testWebhookSecret)
	completeViaWebhook(t, h, regID)

	body, sig := signPayload(t, refundPayload("evt_refund_1", "pi_1", "ann@example.com", 2500))
	rec := serveWebhook(t, h, body, sig)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	reg := store.get(regID)
	if reg.PaymentStatus != model.PaymentStatusRefunded {
		t.Errorf("payment_status = %q, want refunded", reg.PaymentStatus)
	}
	if reg.RefundAmount == nil || *reg.RefundAmount != 25 {
		t.Errorf("refund_amount = %v, want 25.00 dollars from 2500 cents", reg.RefundAmount)
	}
	if reg.StripeRefundID == nil || *reg.StripeRefundID != "re_1" {
		t.Errorf("stripe_refund_id = %v, want re_1", reg.StripeRefundID)
	}
}

func TestWebhookChargeRefundedFallsBackToEmail(t *testing.T) {
	store := newFakeStore()
	regID := seedPending(t, store)
	// No session resolves for this payment intent, so the handler falls
	// back to the charge's billing email.
	gw := &fakeGateway{}
	h := NewWebhookHandler(store, gw, nil, testWebhookSecret)
	completeViaWebhook(t, h, regID)

	body, sig := signPayload(t, refundPayload("evt_refund_2", "pi_unknown", "ann@example.com", 4000))
	rec := serveWebhook(t, h, body, sig)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := store.get(regID).PaymentStatus; got != model.PaymentStatusRefunded {
		t.Errorf("payment_status = %q, want refunded via email fallback", got)
	}
}

func TestWebhookRefundOfPendingRegistrationIgnored(t *testing.T) {
	store := newFakeStore()
	regID := seedPending(t, store)
	gw := &fakeGateway{byIntent: map[string]*stripe.CheckoutSession{
		"pi_1": {ID: "cs_live_1"},
	}}
	h := NewWebhookHandler(store, gw, nil, testWebhookSecret)

	// Stamp the session id without completing so FindBySession resolves.
	store.mu.Lock()
	sid := "cs_live_1"
	store.rows[regID].StripeSessionID = &sid
	store.mu.Unlock()

	body, sig := signPayload(t, refundPayload("evt_refund_3", "pi_1", "ann@example.com", 2000))
	rec := serveWebhook(t, h, body, sig)

	// A pending row never jumps to refunded; the event is acknowledged and
	// dropped.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := store.get(regID).PaymentStatus; got != model.PaymentStatusPending {
		t.Errorf("payment_status = %q, want still pending", got)
	}
	if store.refundedCall != 0 {
		t.Errorf("MarkRefunded called %d times, want 0", store.refundedCall)
	}
}

func TestWebhookRefundWithNoTargetIsDropped(t *testing.T) {
	store := newFakeStore()
	h := NewWebhookHandler(store, &fakeGateway{}, nil, testWebhookSecret)

	body, sig := signPayload(t, refundPayload("evt_refund_4", "pi_none", "stranger@example.com", 1000))
	rec := serveWebhook(t, h, body, sig)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookPaymentFailedChangesNothing(t *testing.T) {
	store := newFakeStore()
	regID := seedPending(t, store)
	h := NewWebhookHandler(store, &fakeGateway{}, nil, testWebhookSecret)

	body, sig := signPayload(t, []byte(`{
		"id": "evt_fail_1",
		"type": "payment_intent.payment_failed",
		"data": {"object": {"id": "pi_failed", "object": "payment_intent"}}
	}`))
	rec := serveWebhook(t, h, body, sig)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := store.get(regID).PaymentStatus; got != model.PaymentStatusPending {
		t.Errorf("payment_status = %q, want untouched pending", got)
	}
}

func TestWebhookUnknownEventTypeAcknowledged(t *testing.T) {
	h := NewWebhookHandler(newFakeStore(), &fakeGateway{}, nil, testWebhookSecret)

	body, sig := signPayload(t, []byte(`{
		"id": "evt_other",
		"type": "customer.created",
		"data": {"object": {"id": "cus_9", "object": "customer"}}
	}`))
	rec := serveWebhook(t, h, body, sig)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
