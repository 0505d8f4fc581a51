package domain

// EmailMessage is a provider-agnostic outbound email.
type EmailMessage struct {
	To         string
	Subject    string
	Text       string
	HTML       string
	ReplyTo    string
	SenderName string // overrides the configured sender display name
}
