package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notifier formats and sends license deliveries to buyers and notices to the
// operator.
type Notifier struct {
	sender        Sender
	operatorEmail string
	validity      time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewNotifier creates a Notifier. validityDays controls the expiry date
// quoted in the delivery email.
func NewNotifier(sender Sender, operatorEmail string, validityDays int, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:        sender,
		operatorEmail: operatorEmail,
		validity:      time.Duration(validityDays) * 24 * time.Hour,
		logger:        logger,
		now:           time.Now,
	}
}

// DeliverLicense emails the artifact content to the buyer. On success a
// separate best-effort confirmation goes to the operator; its failure does
// not affect the delivery outcome. On failure the error is returned with no
// retry; escalation is the caller's responsibility.
func (n *Notifier) DeliverLicense(ctx context.Context, buyerEmail, buyerName string, licenseContent []byte, orderID string) error {
	body, err := renderLicenseEmail(buyerName, string(licenseContent), orderID, n.operatorEmail, n.now().Add(n.validity))
	if err != nil {
		return err
	}

	msg := Message{
		To:      buyerEmail,
		Subject: licenseSubject(orderID),
		Body:    body,
		HTML:    true,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver license for order %s: %w", orderID, err)
	}

	n.logger.Info("license email sent", "buyer", buyerEmail, "order_id", orderID)

	confirmation := Message{
		To:      n.operatorEmail,
		Subject: fmt.Sprintf("HakPak License Delivered - Order #%s", orderID),
		Body: fmt.Sprintf("License successfully delivered to %s (%s)\nOrder: #%s\nTime: %s\n",
			buyerName, buyerEmail, orderID, n.now().Format("2006-01-02 15:04:05")),
	}
	if err := n.sender.Send(ctx, confirmation); err != nil {
		n.logger.Warn("operator confirmation failed", "order_id", orderID, "error", err)
	}

	return nil
}

// AlertOperator sends an immediate operator-facing alert. Used on terminal
// per-item failures so a human can intervene without reading logs.
func (n *Notifier) AlertOperator(ctx context.Context, subject, buyerName, buyerEmail, orderID string) error {
	msg := Message{
		To:      n.operatorEmail,
		Subject: subject,
		Body: fmt.Sprintf("Order: #%s\nCustomer: %s (%s)\nTime: %s\n",
			orderID, buyerName, buyerEmail, n.now().Format("2006-01-02 15:04:05")),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("alert operator for order %s: %w", orderID, err)
	}
	return nil
}
