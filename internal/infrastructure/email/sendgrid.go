package email

import (
	"context"
	"net/http"

	"github.com/logbook-api/internal/domain"
)

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridProvider delivers through the SendGrid v3 mail/send API.
type SendGridProvider struct {
	APIKey   string
	From     string
	FromName string
	URL      string
	Client   *http.Client
}

func NewSendGridProvider(apiKey, from, fromName string, client *http.Client) *SendGridProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &SendGridProvider{APIKey: apiKey, From: from, FromName: fromName, URL: sendGridURL, Client: client}
}

func (p *SendGridProvider) Name() string { return "sendgrid" }

func (p *SendGridProvider) Configured() bool { return p.APIKey != "" && p.From != "" }

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	ReplyTo          *sgAddress          `json:"reply_to,omitempty"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (p *SendGridProvider) Send(ctx context.Context, msg domain.EmailMessage) error {
	name := p.FromName
	if msg.SenderName != "" {
		name = msg.SenderName
	}
	payload := sgPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: p.From, Name: name},
		Subject:          msg.Subject,
	}
	if msg.ReplyTo != "" {
		payload.ReplyTo = &sgAddress{Email: msg.ReplyTo}
	}
	// SendGrid requires a non-empty content list with text/plain before text/html.
	payload.Content = []sgContent{{Type: "text/plain", Value: msg.Text}}
	if msg.HTML != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}
	return postJSON(ctx, p.Client, p.URL, p.APIKey, payload)
}
