// Package mail sends the checkout confirmation through SendGrid.
package mail

import (
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"github.com/meghatales/bookstore/internal/cart"
)

type Sender struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	fromAddr string
}

// NewSender returns nil when no API key is configured; a nil Sender skips
// sending, same deal as the nil Kafka producer.
func NewSender(apiKey, fromAddr string) *Sender {
	if apiKey == "" {
		return nil
	}
	return &Sender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     sgmail.NewEmail("MeghaTales Store", fromAddr),
		fromAddr: fromAddr,
	}
}

func (s *Sender) SendPurchaseConfirmation(toEmail, displayName string, items []cart.LineItem, total decimal.Decimal) error {
	if s == nil {
		return nil
	}

	var lines strings.Builder
	for _, it := range items {
		fmt.Fprintf(&lines, "<li>%s × %d — ₹%s</li>",
			it.Title, it.Quantity,
			it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2))
	}

	html := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase!<ul>%s</ul>Total: <strong>₹%s</strong><br><br>Happy reading!",
		displayName, lines.String(), total.StringFixed(2),
	)
	plain := fmt.Sprintf("Dear %s, thank you for your purchase. Total: ₹%s",
		displayName, total.StringFixed(2))

	to := sgmail.NewEmail(displayName, toEmail)
	message := sgmail.NewSingleEmail(s.from, "Order Confirmation", to, plain, html)

	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
