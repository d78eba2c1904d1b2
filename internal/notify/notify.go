package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// Message is one alert addressed to a person. Channels without an address
// are skipped.
type Message struct {
	Name     string
	Phone    string
	Email    string
	Subject  string
	Body     string
	WhatsApp bool
}

// Dispatcher fans a Message out over SMS, WhatsApp and email.
type Dispatcher struct {
	sms      SMSSender
	whatsapp WhatsAppSender
	email    EmailSender
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(sms SMSSender, whatsapp WhatsAppSender, email EmailSender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{sms: sms, whatsapp: whatsapp, email: email, timeout: timeout}
}

// Deliver sends msg synchronously on every addressed channel and returns
// the joined channel errors.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) error {
	var errs []error

	if phone := strings.TrimSpace(msg.Phone); phone != "" {
		if err := d.sms.SendSMS(ctx, phone, msg.Body); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
		if msg.WhatsApp {
			if err := d.whatsapp.SendWhatsApp(ctx, phone, msg.Body); err != nil {
				errs = append(errs, fmt.Errorf("whatsapp: %w", err))
			}
		}
	}

	if email := strings.TrimSpace(msg.Email); email != "" {
		subject := msg.Subject
		if subject == "" {
			subject = "SarvSaathi notification"
		}
		if err := d.email.SendEmail(ctx, email, msg.Name, subject, toHTML(msg.Body)); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Send delivers msg in the background. Failures are logged and never
// reach the caller.
func (d *Dispatcher) Send(msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.Deliver(ctx, msg); err != nil {
			log.Warn().Err(err).
				Str("recipient", msg.Name).
				Str("subject", msg.Subject).
				Msg("notification delivery failed")
		}
	}()
}

// Wait blocks until background sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func toHTML(body string) string {
	escaped := html.EscapeString(body)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// LogSender stands in for channels that have no credentials configured.
type LogSender struct {
	Channel string
}

func (l LogSender) SendSMS(ctx context.Context, to, body string) error {
	log.Info().Str("channel", l.Channel).Str("to", to).Msg("sms channel not configured, message dropped")
	return nil
}

func (l LogSender) SendWhatsApp(ctx context.Context, to, body string) error {
	log.Info().Str("channel", l.Channel).Str("to", to).Msg("whatsapp channel not configured, message dropped")
	return nil
}

func (l LogSender) SendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	log.Info().Str("channel", l.Channel).Str("to", toEmail).Str("subject", subject).Msg("email channel not configured, message dropped")
	return nil
}
