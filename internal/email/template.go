// Package email renders and sends transactional mail for registrations.
package email

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appletondrawingclub/registration-api/internal/model"
)

// ConfirmationParams feeds the registration confirmation template.
// DonationAmount is dollars and only rendered when positive.
type ConfirmationParams struct {
	Registration   model.Registration
	Event          model.EventDetail
	DonationAmount float64
}

// Message is a rendered email ready to hand to the sender.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// RenderConfirmation produces the subject, HTML body and plain-text body of
// a registration confirmation. The confirmation id shown to the attendee is
// the first eight characters of the registration uuid. Totals: event fee is
// price x quantity; when a donation is present the grand total adds it as a
// separate line.
func RenderConfirmation(p ConfirmationParams) Message {
	reg := p.Registration
	ev := p.Event

	confirmationID := reg.ID
	if len(confirmationID) > 8 {
		confirmationID = confirmationID[:8]
	}

	eventTotal := ev.Price * float64(reg.Quantity)
	hasDonation := p.DonationAmount > 0
	grandTotal := eventTotal
	if hasDonation {
		grandTotal += p.DonationAmount
	}

	people := "people"
	if reg.Quantity == 1 {
		people = "person"
	}

	subject := "Registration Confirmed: " + ev.Title

	var paymentLine string
	if reg.PaymentMethod == model.PaymentMethodOnline {
		paymentLine = "Payment complete - you're all set!"
		if hasDonation {
			paymentLine += fmt.Sprintf(" Thank you for your additional $%s donation to REGI wildlife rescue!", money(p.DonationAmount))
		}
	} else {
		paymentLine = fmt.Sprintf("Please bring $%s (cash) to pay at the door.", money(eventTotal))
	}

	var h strings.Builder
	h.WriteString(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333;">

  <h1 style="color: #16a34a;">Appleton Drawing Club</h1>

  <h2>Registration Confirmed!</h2>
`)
	fmt.Fprintf(&h, "  <p>Hi <strong>%s</strong>,</p>\n\n", reg.Name)
	fmt.Fprintf(&h, "  <p>You're registered for <strong>%s</strong>.</p>\n\n", ev.Title)
	fmt.Fprintf(&h, "  <p><strong>Confirmation ID:</strong> %s</p>\n\n", confirmationID)
	h.WriteString("  <hr style=\"margin: 30px 0; border: none; border-top: 1px solid #ddd;\">\n\n  <h3>Event Details</h3>\n")
	fmt.Fprintf(&h, "  <p><strong>Date:</strong> %s</p>\n", longDate(ev.Date))
	fmt.Fprintf(&h, "  <p><strong>Time:</strong> %s</p>\n", ev.Time)
	fmt.Fprintf(&h, "  <p><strong>Location:</strong> %s, %s</p>\n", ev.Location.Name, ev.Location.Address)
	fmt.Fprintf(&h, "  <p><strong>Quantity:</strong> %d %s</p>\n", reg.Quantity, people)
	fmt.Fprintf(&h, "  <p><strong>Event Fee:</strong> $%s per person (Total: $%s)</p>\n", money(ev.Price), money(eventTotal))
	if hasDonation {
		fmt.Fprintf(&h, "  <p><strong>REGI Wildlife Rescue Donation:</strong> $%s</p>\n", money(p.DonationAmount))
		fmt.Fprintf(&h, "  <p><strong>Total Payment:</strong> $%s</p>\n", money(grandTotal))
	}
	fmt.Fprintf(&h, `
  <div style="background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0;">
    <p><strong>Payment:</strong> %s</p>
  </div>
`, paymentLine)
	if ev.SpecialNotes != nil && *ev.SpecialNotes != "" {
		fmt.Fprintf(&h, `
  <div style="background: #fff3cd; padding: 15px; border-radius: 5px; margin: 20px 0;">
    <p><strong>Important:</strong> %s</p>
  </div>
`, *ev.SpecialNotes)
	}
	h.WriteString(`
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #ddd;">

  <p>Questions? Just reply to this email, or <a href="https://appletondrawingclub.com/contact">contact us here</a>.</p>

  <p style="font-size: 14px; color: #666;">
    Appleton Drawing Club<br>
    <a href="https://appletondrawingclub.com">appletondrawingclub.com</a>
  </p>

</body>
</html>`)

	var t strings.Builder
	fmt.Fprintf(&t, "Registration Confirmed: %s\n\n", ev.Title)
	fmt.Fprintf(&t, "Hi %s,\n\n", reg.Name)
	fmt.Fprintf(&t, "Great news! You're registered for %s.\n\n", ev.Title)
	fmt.Fprintf(&t, "Confirmation ID: %s\n\n", confirmationID)
	t.WriteString("EVENT DETAILS\n")
	fmt.Fprintf(&t, "Event: %s\n", ev.Title)
	fmt.Fprintf(&t, "Date: %s\n", longDate(ev.Date))
	fmt.Fprintf(&t, "Time: %s\n", ev.Time)
	fmt.Fprintf(&t, "Location: %s\n", ev.Location.Name)
	fmt.Fprintf(&t, "Quantity: %d %s\n", reg.Quantity, people)
	fmt.Fprintf(&t, "Event Fee: $%s per person (Total: $%s)\n", money(ev.Price), money(eventTotal))
	if hasDonation {
		fmt.Fprintf(&t, "REGI Wildlife Rescue Donation: $%s\n", money(p.DonationAmount))
		fmt.Fprintf(&t, "Total Payment: $%s\n", money(grandTotal))
	}
	t.WriteString("\n")
	if reg.PaymentMethod == model.PaymentMethodOnline {
		fmt.Fprintf(&t, "PAYMENT COMPLETE: Your payment of $%s has been processed. You're all set!", money(grandTotal))
		if hasDonation {
			fmt.Fprintf(&t, " Thank you for your additional $%s donation to REGI wildlife rescue!", money(p.DonationAmount))
		}
		t.WriteString("\n")
	} else {
		fmt.Fprintf(&t, "PAY AT DOOR: Please bring $%s (cash) to pay when you arrive at the event.\n", money(eventTotal))
	}
	if ev.SpecialNotes != nil && *ev.SpecialNotes != "" {
		fmt.Fprintf(&t, "\nIMPORTANT NOTES: %s\n", *ev.SpecialNotes)
	}
	t.WriteString("\nQuestions? Just reply to this email or contact us at https://appletondrawingclub.com/contact\n\n")
	t.WriteString("Appleton Drawing Club\nhttps://appletondrawingclub.com")

	return Message{Subject: subject, HTML: h.String(), Text: t.String()}
}

// money formats a dollar amount the way the site shows prices: no trailing
// zeros, so 20 renders as "20" and 22.5 as "22.5".
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// longDate formats an ISO date ("2025-03-14") as "Friday, March 14, 2025".
// Unparseable input falls through unchanged.
func longDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("Monday, January 2, 2006")
}
