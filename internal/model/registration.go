// Package model defines the core domain types for the registration service.
package model

import "time"

// Payment method values accepted on a registration.
const (
	PaymentMethodDoor   = "door"
	PaymentMethodOnline = "online"
)

// Payment status lifecycle. Transitions only move forward:
// pending -> completed -> refunded.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
)

// Processing status tracks whether the intake workflow for a registration
// has finished, independent of payment status. Door registrations complete
// immediately; online registrations stay pending until the Stripe webhook
// reconciles them.
const (
	ProcessingStatusPending   = "pending"
	ProcessingStatusCompleted = "completed"
)

// Registration represents one party's commitment to attend a priced event.
// StripeEventID doubles as the webhook idempotency key: it is set at most
// once and carries a unique index, so a redelivered checkout.session.completed
// event is applied at most once.
type Registration struct {
	ID               string     `json:"id"`
	EventID          string     `json:"event_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Quantity         int        `json:"quantity"`
	PaymentMethod    string     `json:"payment_method"`
	PaymentStatus    string     `json:"payment_status"`
	ProcessingStatus string     `json:"processing_status"`
	NewsletterSignup bool       `json:"newsletter_signup"`
	StripeCustomerID string     `json:"stripe_customer_id"`
	StripeSessionID  *string    `json:"stripe_session_id,omitempty"`
	StripeEventID    *string    `json:"stripe_event_id,omitempty"`
	StripeRefundID   *string    `json:"stripe_refund_id,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
	RefundReason     *string    `json:"refund_reason,omitempty"`
	RefundAmount     *float64   `json:"refund_amount,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Refund captures the fields stamped onto a registration when a
// charge.refunded event is reconciled. Amount is in dollars, converted
// from Stripe's refunded cents.
type Refund struct {
	StripeRefundID string
	Reason         string
	Amount         float64
	RefundedAt     time.Time
}

// RegisterRequest is the payload for POST /api/register. Website is a
// honeypot field: legitimate users never fill it, so any non-empty value
// flags an automated submission.
type RegisterRequest struct {
	EventID          string `json:"event_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Quantity         int    `json:"quantity"`
	PaymentMethod    string `json:"payment_method"`
	NewsletterSignup bool   `json:"newsletter_signup"`
	Website          string `json:"website"`
}

// CheckoutRequest is the payload for POST /api/checkout. Price and
// DonationAmount are dollars; they are converted to cents on the wire to
// Stripe. RegistrationID references a pending registration created ahead
// of the checkout session so the webhook can reconcile it later.
type CheckoutRequest struct {
	EventID          string  `json:"event_id"`
	EventTitle       string  `json:"event_title"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Price            float64 `json:"price"`
	Quantity         int     `json:"quantity"`
	RegistrationID   string  `json:"registration_id"`
	DonationAmount   float64 `json:"donation_amount"`
	NewsletterSignup bool    `json:"newsletter_signup"`
	Website          string  `json:"website"`
}

// RegistrationResponse is the success envelope for POST /api/register.
type RegistrationResponse struct {
	Success      bool          `json:"success"`
	Registration *Registration `json:"registration"`
}
