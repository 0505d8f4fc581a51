package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"github.com/logbook-api/internal/domain"
)

// SMTPProvider delivers over SMTP. STARTTLS is negotiated when the server offers it.
type SMTPProvider struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string

	send func(d *mail.Dialer, m *mail.Message) error
}

func NewSMTPProvider(host string, port int, username, password, from, fromName string) *SMTPProvider {
	return &SMTPProvider{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		FromName: fromName,
		send: func(d *mail.Dialer, m *mail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) Configured() bool {
	return p.Host != "" && p.Port > 0 && p.Username != "" && p.Password != "" && p.From != ""
}

func (p *SMTPProvider) Send(ctx context.Context, msg domain.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := mail.NewDialer(p.Host, p.Port, p.Username, p.Password)
	d.TLSConfig = &tls.Config{ServerName: p.Host}
	if err := p.send(d, p.buildMessage(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (p *SMTPProvider) buildMessage(msg domain.EmailMessage) *mail.Message {
	name := p.FromName
	if msg.SenderName != "" {
		name = msg.SenderName
	}
	m := mail.NewMessage()
	m.SetAddressHeader("From", p.From, name)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}
