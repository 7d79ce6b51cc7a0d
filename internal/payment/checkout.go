package payment

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v82"
)

// SessionParams carries everything needed to open an embedded checkout
// session. Price and DonationAmount are dollars; conversion to cents
// happens here at the gateway boundary.
type SessionParams struct {
	EventID          string
	EventTitle       string
	Name             string
	Email            string
	Price            float64
	Quantity         int
	DonationAmount   float64
	NewsletterSignup bool
	CustomerID       string
	RegistrationID   string
	Origin           string
}

// CreateSession opens an embedded-mode checkout session. The admission line
// charges the per-person price times quantity; a donation, when present, is
// an independent one-time line. All registration context rides along as
// opaque metadata for the webhook reconciler to read back.
func (g *Gateway) CreateSession(ctx context.Context, p SessionParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		UIMode:             stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          buildLineItems(p),
		Customer:           stripe.String(p.CustomerID),
		ReturnURL:          stripe.String(p.Origin + "/checkout/return?session_id={CHECKOUT_SESSION_ID}"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			StatementDescriptor: stripe.String(statementDescriptor),
		},
	}
	params.Context = ctx
	params.AddMetadata("event_id", p.EventID)
	params.AddMetadata("event_title", p.EventTitle)
	params.AddMetadata("name", p.Name)
	params.AddMetadata("email", p.Email)
	params.AddMetadata("quantity", strconv.Itoa(p.Quantity))
	params.AddMetadata("newsletter_signup", strconv.FormatBool(p.NewsletterSignup))
	params.AddMetadata("customer_id", p.CustomerID)
	params.AddMetadata("registration_id", p.RegistrationID)
	params.AddMetadata("donation_amount", strconv.FormatFloat(p.DonationAmount, 'f', -1, 64))

	return g.api.CheckoutSessions.New(params)
}

// buildLineItems assembles the priced line-item set: one admission line at
// the per-person price times quantity, plus an independent one-time
// donation line when a donation is present.
func buildLineItems(p SessionParams) []*stripe.CheckoutSessionLineItemParams {
	items := []*stripe.CheckoutSessionLineItemParams{
		{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(p.EventTitle),
					Description: stripe.String("Event registration for " + p.EventTitle),
				},
				UnitAmount: stripe.Int64(toCents(p.Price)),
			},
			Quantity: stripe.Int64(int64(p.Quantity)),
		},
	}
	if p.DonationAmount > 0 {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String("Additional Wildlife Rescue Donation"),
					Description: stripe.String("Optional donation to support raptor education and wildlife rescue"),
				},
				UnitAmount: stripe.Int64(toCents(p.DonationAmount)),
			},
			Quantity: stripe.Int64(1),
		})
	}
	return items
}

// GetSession retrieves a checkout session with line items and customer
// expanded, for the post-payment return page.
func (g *Gateway) GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("customer")
	return g.api.CheckoutSessions.Get(id, params)
}

// SessionByPaymentIntent returns the checkout session that produced a
// payment intent, or nil when none matches. Refund reconciliation uses
// this to walk from a charge back to the registration it paid for.
func (g *Gateway) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.CheckoutSession, error) {
	listParams := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := g.api.CheckoutSessions.List(listParams)
	if iter.Next() {
		return iter.CheckoutSession(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("session lookup by payment intent failed: %w", err)
	}
	return nil, nil
}

// NormalizeStatus maps Stripe's session status vocabulary onto the closed
// set the client understands.
func NormalizeStatus(s stripe.CheckoutSessionStatus) string {
	switch s {
	case stripe.CheckoutSessionStatusComplete:
		return "complete"
	case stripe.CheckoutSessionStatusOpen:
		return "open"
	case stripe.CheckoutSessionStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

func toCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}
