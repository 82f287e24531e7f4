package mail

import (
	"bytes"
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/plixa/plixa/internal/config"
)

// SMTPConfig holds the transport connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Security is one of "tls", "ssl" or "none".
	Security string
}

// SMTPTransport implements Transport over an SMTP server.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTP transport with the given settings.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Connect dials the SMTP server and returns a session scoped to one
// dispatch batch.
func (t *SMTPTransport) Connect(ctx context.Context) (Conn, error) {
	opts := []gomail.Option{
		gomail.WithPort(t.cfg.Port),
	}

	switch t.cfg.Security {
	case config.SMTPSecuritySSL:
		opts = append(opts, gomail.WithSSL())
	case config.SMTPSecurityTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}

	client, err := gomail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return nil, fmt.Errorf("smtp dial %s:%d: %w", t.cfg.Host, t.cfg.Port, err)
	}

	return &smtpConn{client: client}, nil
}

type smtpConn struct {
	client *gomail.Client
}

func (c *smtpConn) Send(_ context.Context, msg *Message) error {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)

	for _, part := range msg.Attachments {
		if err := m.AttachReader(part.Name, bytes.NewReader(part.Data)); err != nil {
			return fmt.Errorf("attach %s: %w", part.Name, err)
		}
	}

	if err := c.client.Send(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (c *smtpConn) Close() error {
	return c.client.Close()
}
