package payment

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v82"
)

// Resolve finds an existing Stripe customer by email (exact match, first
// result) or creates a new one tagged with provenance metadata.
//
// Two concurrent calls with the same unseen email can both take the create
// branch and produce duplicate customers. That window is a known tradeoff:
// the upstream API offers no find-or-create primitive and the duplicate is
// harmless for billing, so no locking is attempted here.
func (g *Gateway) Resolve(ctx context.Context, email, name string) (string, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := g.api.Customers.List(listParams)
	if iter.Next() {
		existing := iter.Customer()
		log.Printf("payment: found existing customer %s for %s", existing.ID, email)
		return existing.ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("customer lookup failed: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("source", "appleton-drawing-club")
	params.AddMetadata("created_via", "registration")

	created, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("customer creation failed: %w", err)
	}
	log.Printf("payment: created customer %s for %s", created.ID, email)
	return created.ID, nil
}
