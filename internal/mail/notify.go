package mail

import (
	"context"
	"fmt"
)

// Notification body templates. Kept inline; campaign-specific templates
// come in through Content.TemplatePath instead.
const (
	welcomeSubject = "Welcome to Plixa, {{.first_name}}"
	welcomeBody    = `<html><body>
<p>Hi {{.first_name}},</p>
<p>Your Plixa account is ready. You can now receive and track payments for
your organization without receipt outages.</p>
<p>— The Plixa team</p>
</body></html>`

	passwordResetSubject = "Reset your Plixa password"
	passwordResetBody    = `<html><body>
<p>Hi {{.first_name}},</p>
<p>Someone requested a password reset for this account. Use the token below
within {{.expires_minutes}} minutes. If this wasn't you, ignore this email.</p>
<p><code>{{.reset_token}}</code></p>
</body></html>`

	receiptSubject = "Payment receipt {{.reference}}"
	receiptBody    = `<html><body>
<p>We received your payment of {{.amount}} towards {{.cluster_name}}.</p>
<p>Reference: <code>{{.reference}}</code></p>
<p>Keep this email as your receipt.</p>
</body></html>`
)

// Notifier sends the platform's transactional notifications through the
// dispatcher as single-recipient batches.
type Notifier struct {
	dispatcher *Dispatcher
	from       string
}

// NewNotifier creates a Notifier sending from the given address.
func NewNotifier(dispatcher *Dispatcher, from string) *Notifier {
	return &Notifier{dispatcher: dispatcher, from: from}
}

// SendWelcome notifies a freshly created account.
func (n *Notifier) SendWelcome(ctx context.Context, email, firstName string) error {
	return n.send(ctx, welcomeSubject, welcomeBody, Recipient{
		Email:   email,
		Context: map[string]any{"first_name": firstName},
	})
}

// SendPasswordReset delivers a reset token.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, firstName, token string, expiresMinutes int) error {
	return n.send(ctx, passwordResetSubject, passwordResetBody, Recipient{
		Email: email,
		Context: map[string]any{
			"first_name":      firstName,
			"reset_token":     token,
			"expires_minutes": expiresMinutes,
		},
	})
}

// SendReceipt delivers a payment receipt to a payer.
func (n *Notifier) SendReceipt(ctx context.Context, email, reference, amount, clusterName string) error {
	return n.send(ctx, receiptSubject, receiptBody, Recipient{
		Email: email,
		Context: map[string]any{
			"reference":    reference,
			"amount":       amount,
			"cluster_name": clusterName,
		},
	})
}

func (n *Notifier) send(ctx context.Context, subject, body string, rcpt Recipient) error {
	report, err := n.dispatcher.Dispatch(ctx, Content{
		From:       n.from,
		Recipients: []Recipient{rcpt},
		Subject:    subject,
		Template:   body,
	})
	if err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("notify %s: %w", rcpt.Email, report.Failures[0].Err)
	}
	return nil
}
