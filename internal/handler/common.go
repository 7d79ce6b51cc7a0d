// Package handler contains the HTTP handlers for the registration API.
// Handlers depend on small interfaces rather than concrete repositories or
// SDK clients so every collaborator is injected at construction time;
// nothing in this package reads process-wide state.
package handler

import (
	"context"
	"log"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/appletondrawingclub/registration-api/internal/email"
	"github.com/appletondrawingclub/registration-api/internal/model"
	"github.com/appletondrawingclub/registration-api/internal/payment"
	"github.com/appletondrawingclub/registration-api/internal/queue"
)

// RegistrationStore is the persistence surface the handlers need for
// registration rows. Implemented by repository.RegistrationRepo.
type RegistrationStore interface {
	Insert(ctx context.Context, reg *model.Registration) error
	ExistsByStripeEvent(ctx context.Context, stripeEventID string) (bool, error)
	MarkCompleted(ctx context.Context, id, stripeEventID, stripeSessionID string) (*model.Registration, error)
	FindBySession(ctx context.Context, stripeSessionID string) (*model.Registration, error)
	LatestCompletedByEmail(ctx context.Context, email string) (*model.Registration, error)
	MarkRefunded(ctx context.Context, id string, ref model.Refund) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// EventStore reads the events/locations reference data. Implemented by
// repository.EventRepo.
type EventStore interface {
	GetDetail(ctx context.Context, id string) (*model.EventDetail, error)
}

// CustomerResolver finds-or-creates a billing customer keyed by email.
// Implemented by payment.Gateway.
type CustomerResolver interface {
	Resolve(ctx context.Context, email, name string) (string, error)
}

// CheckoutGateway is the slice of the payment gateway the handlers use.
// Implemented by payment.Gateway.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, p payment.SessionParams) (*stripe.CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.CheckoutSession, error)
}

// EmailSender delivers confirmation email. Implemented by email.Sender.
type EmailSender interface {
	SendConfirmation(ctx context.Context, p email.ConfirmationParams) error
}

// NewsletterClient subscribes an email to the newsletter. Implemented by
// newsletter.Client.
type NewsletterClient interface {
	Subscribe(ctx context.Context, email string) bool
}

// ConfirmedPublisher publishes a registration-confirmed domain event.
// Satisfied by queue_publisher.PublishRegistrationConfirmed.
type ConfirmedPublisher func(ctx context.Context, ev queue.RegistrationConfirmedEvent) error

// SideEffects groups the best-effort collaborators triggered after a
// registration reaches the completed state. Every dispatch failure is
// logged and swallowed: side effects never change the HTTP outcome and
// never roll back the state change that triggered them.
type SideEffects struct {
	Events     EventStore
	Email      EmailSender
	Newsletter NewsletterClient
	Publish    ConfirmedPublisher
}

// DispatchConfirmed sends the confirmation email, syncs the newsletter
// opt-in and publishes the domain event for a completed registration.
// donation is the dollar amount of any extra donation collected alongside
// admission.
func (s *SideEffects) DispatchConfirmed(ctx context.Context, reg model.Registration, donation float64) {
	if s == nil {
		return
	}

	var detail *model.EventDetail
	if s.Events != nil {
		d, err := s.Events.GetDetail(ctx, reg.EventID)
		if err != nil {
			log.Printf("side-effects: event lookup failed for registration %s: %v", reg.ID, err)
		} else {
			detail = d
		}
	}

	if s.Email != nil && detail != nil {
		err := s.Email.SendConfirmation(ctx, email.ConfirmationParams{
			Registration:   reg,
			Event:          *detail,
			DonationAmount: donation,
		})
		if err != nil {
			log.Printf("side-effects: confirmation email failed for registration %s: %v", reg.ID, err)
		}
	}

	if s.Newsletter != nil && reg.NewsletterSignup {
		s.Newsletter.Subscribe(ctx, reg.Email)
	}

	if s.Publish != nil {
		ev := queue.RegistrationConfirmedEvent{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			Name:           reg.Name,
			Email:          reg.Email,
			Quantity:       reg.Quantity,
			PaymentMethod:  reg.PaymentMethod,
			DonationAmount: donation,
			ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if detail != nil {
			ev.EventTitle = detail.Title
			ev.Total = detail.Price*float64(reg.Quantity) + donation
		}
		if err := s.Publish(ctx, ev); err != nil {
			log.Printf("side-effects: publish failed for registration %s: %v", reg.ID, err)
		}
	}
}
