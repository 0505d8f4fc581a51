package http

import (
	"github.com/logbook-api/internal/application/feedback"
	"github.com/logbook-api/internal/application/verification"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds the application services the router serves.
type Deps struct {
	Verification verification.Service
	Feedback     feedback.Service
	// Gatherer backs GET /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}
