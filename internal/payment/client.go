// Package payment adapts the Stripe SDK for the registration service. The
// gateway is an explicitly constructed client: the API key is injected at
// startup instead of being set on the SDK's package-level global, so
// handlers receive a ready client and never touch process-wide state.
package payment

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Gateway wraps a Stripe API client scoped to this service's needs:
// customer resolution and checkout sessions.
type Gateway struct {
	api *client.API
}

// NewGateway constructs a Gateway from a Stripe secret key.
func NewGateway(apiKey string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Gateway{api: api}
}

// statementDescriptor appears on cardholder statements for event payments.
const statementDescriptor = "APPLETON DRAW CLUB"

// currency is the only currency the club charges in.
const currency = string(stripe.CurrencyUSD)
