package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/logbook-api/internal/domain"
	"github.com/logbook-api/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// NoteNoProvider is the diagnostic reported when no provider has credentials.
const NoteNoProvider = "no provider configured"

// Provider is one email-delivery backend.
type Provider interface {
	Name() string
	// Configured reports whether every credential the provider needs is present.
	Configured() bool
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// Attempt records one delivery try.
type Attempt struct {
	Provider string
	Err      error
}

// Outcome is the result of one pass over the provider chain.
type Outcome struct {
	Delivered  bool
	Provider   string // provider that accepted the message
	Configured int
	Attempts   []Attempt
}

// NoneConfigured reports whether the chain had nothing to try.
func (o Outcome) NoneConfigured() bool { return o.Configured == 0 }

// Note returns an empty string on delivery, otherwise a diagnostic that
// distinguishes an empty chain from a chain where every provider failed.
func (o Outcome) Note() string {
	if o.Delivered {
		return ""
	}
	if o.NoneConfigured() {
		return NoteNoProvider
	}
	parts := make([]string, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Err converts an undelivered outcome into a domain error.
func (o Outcome) Err() error {
	switch {
	case o.Delivered:
		return nil
	case o.NoneConfigured():
		return fmt.Errorf("%s: %w", NoteNoProvider, domain.ErrConfiguration)
	default:
		return fmt.Errorf("%s: %w", o.Note(), domain.ErrUpstream)
	}
}

// Dispatcher sends a message through providers in fixed priority order,
// stopping at the first success. It is a single pass with no retries.
type Dispatcher struct {
	providers []Provider
	log       *zap.Logger
}

func NewDispatcher(log *zap.Logger, providers ...Provider) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{providers: providers, log: log}
}

// ConfiguredProviders counts providers that have all their credentials.
func (d *Dispatcher) ConfiguredProviders() int {
	n := 0
	for _, p := range d.providers {
		if p.Configured() {
			n++
		}
	}
	return n
}

// Send attempts delivery of msg and reports what happened.
func (d *Dispatcher) Send(ctx context.Context, msg domain.EmailMessage) Outcome {
	var out Outcome
	for _, p := range d.providers {
		if !p.Configured() {
			continue
		}
		out.Configured++
		if err := p.Send(ctx, msg); err != nil {
			metrics.EmailDeliveryAttempts.WithLabelValues(p.Name(), "error").Inc()
			d.log.Warn("email provider failed", zap.String("provider", p.Name()), zap.Error(err))
			out.Attempts = append(out.Attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}
		metrics.EmailDeliveryAttempts.WithLabelValues(p.Name(), "ok").Inc()
		out.Attempts = append(out.Attempts, Attempt{Provider: p.Name()})
		out.Delivered = true
		out.Provider = p.Name()
		return out
	}
	return out
}
