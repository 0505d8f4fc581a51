package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Delivery-failure policies for code issuance.
const (
	PolicyReportSuccessWithNote = "report_success_with_note"
	PolicyFail                  = "fail"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendDynamo   = "dynamo"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string // CORS allowed origins

	StoreBackend string
	SupabaseURL  string
	SupabaseKey  string // service credential, never exposed to callers

	AWSRegion       string
	AWSEndpointURL  string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID  string
	AWSSecretKey    string
	DynamoTables    DynamoTables
	DynamoBootstrap bool

	ResendAPIKey   string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	EmailFrom      string
	EmailFromName  string

	DeliveryFailurePolicy string
	FeedbackTo            string

	CodeTTL     time.Duration
	TrialPeriod time.Duration
	DefaultPlan string

	RedisURL string

	RateLimitRPS   float64
	RateLimitBurst int

	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	EmailCodes string
	Accounts   string
	Profiles   string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendSupabase)),
		SupabaseURL:  strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey:  getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			EmailCodes: getEnv("DYNAMO_TABLE_EMAIL_CODES", "email_codes"),
			Accounts:   getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Profiles:   getEnv("DYNAMO_TABLE_PROFILES", "profiles"),
		},
		DynamoBootstrap: getEnvBool("DYNAMO_BOOTSTRAP", false),

		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "noreply@logbook.app"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Logbook"),

		DeliveryFailurePolicy: getEnv("EMAIL_DELIVERY_FAILURE_POLICY", PolicyReportSuccessWithNote),
		FeedbackTo:            getEnv("FEEDBACK_TO", ""),

		CodeTTL:     time.Duration(getEnvInt("CODE_TTL_MINUTES", 60)) * time.Minute,
		TrialPeriod: time.Duration(getEnvInt("TRIAL_DAYS", 14)) * 24 * time.Hour,
		DefaultPlan: getEnv("DEFAULT_PLAN", "free"),

		RedisURL: getEnv("REDIS_URL", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

// FailOnDeliveryFailure reports whether issuance should fail when no email went out.
func (c *Config) FailOnDeliveryFailure() bool {
	return strings.EqualFold(c.DeliveryFailurePolicy, PolicyFail)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
