// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published when a registration reaches the
// completed state, either at door-registration time or when the Stripe
// webhook reconciles an online payment. It carries enough information for
// downstream consumers to log or trigger analytics without querying the
// primary database.
type RegistrationConfirmedEvent struct {
	RegistrationID string  `json:"registration_id"`
	EventID        string  `json:"event_id"`
	EventTitle     string  `json:"event_title"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Quantity       int     `json:"quantity"`
	PaymentMethod  string  `json:"payment_method"`
	DonationAmount float64 `json:"donation_amount"`
	Total          float64 `json:"total"`
	ConfirmedAt    string  `json:"confirmed_at"`
}
