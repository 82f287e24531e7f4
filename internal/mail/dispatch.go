package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/plixa/plixa/internal/metrics"
)

// Message is one fully rendered, per-recipient email handed to the transport.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	// Attachments are materialized before the message reaches the transport.
	Attachments []Part
}

// Part is a named attachment body.
type Part struct {
	Name string
	Data []byte
}

// Conn is a live transport session. It must not be used concurrently.
type Conn interface {
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// Transport provides transport sessions. A session is acquired once per
// dispatch call, not per recipient.
type Transport interface {
	Connect(ctx context.Context) (Conn, error)
}

// Failure records one recipient that could not be served.
type Failure struct {
	Email string
	Err   error
}

// Report summarizes one dispatch call. Failures appear in the batch's
// post-deduplication recipient order.
type Report struct {
	Sent     int
	Failures []Failure
}

// Dispatcher validates a batch email request, renders per-recipient content
// and hands each message to the transport, continuing best-effort across
// recipient failures.
type Dispatcher struct {
	transport Transport
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewDispatcher creates a Dispatcher over the given transport.
func NewDispatcher(transport Transport, logger *slog.Logger, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Dispatcher{
		transport: transport,
		logger:    logger.With("component", "mail.dispatcher"),
		metrics:   recorder,
	}
}

// Dispatch validates the batch and sends one personalized email per
// recipient. A single recipient's render, attachment or send failure is
// recorded in the report and the batch continues; only validation errors
// and connection establishment failure abort the whole call. Cancelling ctx
// aborts the remaining recipients and returns the partial report together
// with the context's error.
func (d *Dispatcher) Dispatch(ctx context.Context, content Content) (*Report, error) {
	content, err := content.Validate()
	if err != nil {
		return nil, err
	}

	subjectTmpl, err := template.New("subject").Parse(content.Subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	bodyTmpl, err := template.New("body").Parse(content.Template)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}

	conn, err := d.transport.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect transport: %w", err)
	}
	defer conn.Close()

	start := time.Now()
	report := &Report{}

	for _, rcpt := range content.Recipients {
		if ctx.Err() != nil {
			d.logger.Warn("dispatch cancelled",
				"sent", report.Sent,
				"remaining", len(content.Recipients)-report.Sent-len(report.Failures),
			)
			return report, ctx.Err()
		}

		msg, err := compose(content, rcpt, subjectTmpl, bodyTmpl)
		if err != nil {
			d.recordFailure(report, rcpt.Email, err)
			continue
		}

		if err := conn.Send(ctx, msg); err != nil {
			d.recordFailure(report, rcpt.Email, err)
			continue
		}

		report.Sent++
		d.metrics.IncEmailSent("success")
	}

	d.metrics.ObserveDispatchBatchSize(len(content.Recipients))
	d.metrics.ObserveDispatchDuration(time.Since(start))

	d.logger.Info("batch dispatched",
		"recipients", len(content.Recipients),
		"sent", report.Sent,
		"failed", len(report.Failures),
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)

	return report, nil
}

func (d *Dispatcher) recordFailure(report *Report, email string, err error) {
	report.Failures = append(report.Failures, Failure{Email: email, Err: err})
	d.metrics.IncEmailSent("failed")
	d.logger.Warn("recipient send failed",
		"recipient", email,
		"error", err,
	)
}

// compose renders the subject and body against the recipient's context and
// materializes the union of batch-level and recipient-level attachments.
func compose(content Content, rcpt Recipient, subjectTmpl, bodyTmpl *template.Template) (*Message, error) {
	var subject strings.Builder
	if err := subjectTmpl.Execute(&subject, rcpt.Context); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}

	var body strings.Builder
	if err := bodyTmpl.Execute(&body, rcpt.Context); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	msg := &Message{
		From:     content.From,
		To:       rcpt.Email,
		Subject:  subject.String(),
		HTMLBody: body.String(),
	}

	for _, att := range content.Attachments {
		data, err := att.read()
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, Part{Name: att.Name, Data: data})
	}
	for _, att := range rcpt.Attachments {
		data, err := att.read()
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, Part{Name: att.Name, Data: data})
	}

	return msg, nil
}
