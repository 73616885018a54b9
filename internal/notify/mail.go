package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough settings are present to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

// Sender delivers plain-text confirmations over SMTP.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer implements booking.Notifier with gomail.
type Mailer struct {
	from   string
	sender Sender
	log    logrus.FieldLogger
}

// NewMailer returns a mailer for cfg.
func NewMailer(cfg SMTPConfig, log logrus.FieldLogger) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
	}
	return NewMailerWithSender(cfg.From, dialer, log)
}

func NewMailerWithSender(from string, sender Sender, log logrus.FieldLogger) *Mailer {
	return &Mailer{from: from, sender: sender, log: log}
}

// Send builds and sends one message. The SMTP dial is not cancellable, so
// ctx is only checked before dialing.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("recipient address is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	m.log.WithField("to", to).Info("Confirmation email sent")
	return nil
}
