package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EMAIL_DELIVERY_FAILURE_POLICY", "")
	t.Setenv("CODE_TTL_MINUTES", "")
	t.Setenv("TRIAL_DAYS", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	cfg := Load()
	assert.Equal(t, BackendSupabase, cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.CodeTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.TrialPeriod)
	assert.False(t, cfg.FailOnDeliveryFailure())
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("EMAIL_DELIVERY_FAILURE_POLICY", "FAIL")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DYNAMO_BOOTSTRAP", "true")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg := Load()
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.True(t, cfg.FailOnDeliveryFailure())
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.True(t, cfg.DynamoBootstrap)
	assert.Equal(t, float64(5), cfg.RateLimitRPS)
	assert.True(t, cfg.TrustProxyHeaders)
}
