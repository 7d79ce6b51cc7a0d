package email

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// Sender delivers rendered messages through Resend. A Sender constructed
// without an API key is disabled: sends fail with an error the caller is
// expected to log and swallow, since confirmation mail is best-effort.
type Sender struct {
	client *resend.Client
	from   string
}

// NewSender builds a Sender. The from address is wrapped in the club's
// display name. An empty apiKey yields a disabled sender.
func NewSender(apiKey, from string) *Sender {
	s := &Sender{from: fmt.Sprintf("Appleton Drawing Club <%s>", from)}
	if apiKey != "" {
		s.client = resend.NewClient(apiKey)
	}
	return s
}

// SendConfirmation renders and sends a registration confirmation to the
// registrant. Errors are returned for the caller to log; they must never
// fail the surrounding registration or webhook flow.
func (s *Sender) SendConfirmation(ctx context.Context, p ConfirmationParams) error {
	if s.client == nil {
		return errors.New("email disabled: RESEND_API_KEY not configured")
	}

	msg := RenderConfirmation(p)
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{p.Registration.Email},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	log.Printf("email: confirmation sent id=%s to=%s registration=%s", sent.Id, p.Registration.Email, p.Registration.ID)
	return nil
}
