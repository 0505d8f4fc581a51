package domain

import (
	"strings"
	"time"
)

// VerificationCode is a one-time code proving control of an email address.
// Several rows may exist per email; a row goes from Used=false to Used=true once and never back.
type VerificationCode struct {
	ID        string    `json:"id,omitempty" dynamodbav:"code_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Code      string    `json:"code" dynamodbav:"code"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Used      bool      `json:"used" dynamodbav:"used"`
	CreatedAt time.Time `json:"created_at,omitempty" dynamodbav:"created_at"`
}

// Expired reports whether the code is past its expiry at now.
func (c *VerificationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
