package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/logbook-api/internal/domain"
	"github.com/logbook-api/internal/infrastructure/email"
	"github.com/logbook-api/internal/pkg/validate"
	"go.uber.org/zap"
)

type Request struct {
	Name    string `json:"name" validate:"max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Mailer delivers through the provider fallback chain.
type Mailer interface {
	Send(ctx context.Context, msg domain.EmailMessage) email.Outcome
}

type Service interface {
	Submit(ctx context.Context, req Request) (email.Outcome, error)
}

type service struct {
	mailer Mailer
	to     string
	log    *zap.Logger
}

// NewService relays feedback to the inbox at to.
func NewService(mailer Mailer, to string, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{mailer: mailer, to: to, log: log}
}

func (s *service) Submit(ctx context.Context, req Request) (email.Outcome, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = domain.NormalizeEmail(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(&req); err != nil {
		return email.Outcome{}, err
	}
	if s.to == "" || s.mailer == nil {
		return email.Outcome{}, fmt.Errorf("feedback inbox is not configured: %w", domain.ErrConfiguration)
	}

	sender := "Logbook feedback"
	if req.Name != "" {
		sender = req.Name + " via Logbook"
	}
	out := s.mailer.Send(ctx, domain.EmailMessage{
		To:         s.to,
		Subject:    "Logbook feedback from " + req.Email,
		Text:       fmt.Sprintf("From: %s <%s>\n\n%s", req.Name, req.Email, req.Message),
		ReplyTo:    req.Email,
		SenderName: sender,
	})
	if err := out.Err(); err != nil {
		s.log.Warn("feedback not delivered", zap.String("from", req.Email), zap.Error(err))
		return out, err
	}
	s.log.Info("feedback relayed", zap.String("from", req.Email), zap.String("provider", out.Provider))
	return out, nil
}
