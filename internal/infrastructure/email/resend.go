package email

import (
	"context"
	"net/http"

	"github.com/logbook-api/internal/domain"
)

const resendURL = "https://api.resend.com/emails"

// ResendProvider delivers through the Resend REST API.
type ResendProvider struct {
	APIKey   string
	From     string
	FromName string
	URL      string
	Client   *http.Client
}

func NewResendProvider(apiKey, from, fromName string, client *http.Client) *ResendProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &ResendProvider{APIKey: apiKey, From: from, FromName: fromName, URL: resendURL, Client: client}
}

func (p *ResendProvider) Name() string { return "resend" }

func (p *ResendProvider) Configured() bool { return p.APIKey != "" && p.From != "" }

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (p *ResendProvider) Send(ctx context.Context, msg domain.EmailMessage) error {
	name := p.FromName
	if msg.SenderName != "" {
		name = msg.SenderName
	}
	return postJSON(ctx, p.Client, p.URL, p.APIKey, resendPayload{
		From:    formatAddress(name, p.From),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
}
