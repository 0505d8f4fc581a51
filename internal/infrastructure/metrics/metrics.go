package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors live in a standalone package so the email, verification and
// transport packages can record into them without importing each other.
var (
	EmailDeliveryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_delivery_attempts_total",
		Help: "Email delivery attempts by provider and result (ok|error).",
	}, []string{"provider", "result"})

	CodesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_codes_issued_total",
		Help: "Verification codes persisted, by delivery outcome (delivered|not_configured|failed).",
	}, []string{"delivery"})

	CodeVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_code_redemptions_total",
		Help: "Verification attempts by result.",
	}, []string{"result"})
)

// Register registers the collectors on reg (or the default registerer if nil).
// Already-registered collectors are ignored.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{EmailDeliveryAttempts, CodesIssued, CodeVerifications} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
