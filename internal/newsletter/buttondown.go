// Package newsletter syncs registrant emails to the Buttondown subscriber
// list. Buttondown has no Go SDK, so this is a thin HTTP client around its
// subscribers endpoint. Subscription is fire-and-forget relative to the
// registration flow: every failure path logs and returns false without
// propagating an error.
package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.buttondown.com/v1"

// Client talks to the Buttondown API. A Client constructed without an API
// key is disabled and reports every subscribe as failed (logged, non-fatal).
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient builds a Buttondown client. An empty apiKey yields a disabled
// client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type subscriberRequest struct {
	EmailAddress string `json:"email_address"`
	Type         string `json:"type"`
}

type errorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Subscribe adds an email to the newsletter. "Already subscribed" counts as
// success so the operation is idempotent from the caller's point of view.
// Blocked, invalid and rate-limited emails are logged and reported as
// failures, but the caller never treats a false return as fatal.
func (c *Client) Subscribe(ctx context.Context, email string) bool {
	if c.apiKey == "" {
		log.Printf("newsletter: sync skipped, BUTTONDOWN_API_KEY not configured")
		return false
	}
	if email == "" {
		log.Printf("newsletter: sync skipped, no email address provided")
		return false
	}

	body, err := json.Marshal(subscriberRequest{EmailAddress: email, Type: "regular"})
	if err != nil {
		log.Printf("newsletter: marshal request failed: %v", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/subscribers", bytes.NewReader(body))
	if err != nil {
		log.Printf("newsletter: build request failed: %v", err)
		return false
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("newsletter: network error for %s: %v", email, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("newsletter: sync successful for %s", email)
		return true
	}

	var apiErr errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch {
	case resp.StatusCode == http.StatusBadRequest && apiErr.Code == "email_already_exists":
		// Already on the list; idempotent subscribe.
		log.Printf("newsletter: %s already subscribed", email)
		return true
	case resp.StatusCode == http.StatusBadRequest && apiErr.Code == "email_blocked":
		log.Printf("newsletter: %s is blocked", email)
		return false
	case resp.StatusCode == http.StatusBadRequest && apiErr.Code == "email_invalid":
		log.Printf("newsletter: %s rejected as invalid", email)
		return false
	case resp.StatusCode == http.StatusTooManyRequests || apiErr.Code == "rate_limited":
		log.Printf("newsletter: rate limited while syncing %s", email)
		return false
	}

	log.Printf("newsletter: sync failed for %s: status=%d code=%q detail=%q",
		email, resp.StatusCode, apiErr.Code, apiErr.Detail)
	return false
}
