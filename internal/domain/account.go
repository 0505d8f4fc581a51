package domain

import "time"

// Account is an identity in the user store, keyed by email.
type Account struct {
	ID           string    `json:"id" dynamodbav:"account_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"created_at,omitempty" dynamodbav:"created_at"`
}

// Profile carries subscription metadata for an account. Upserts merge into an existing row.
type Profile struct {
	AccountID  string    `json:"id" dynamodbav:"account_id"`
	Plan       string    `json:"plan" dynamodbav:"plan"`
	TrialEndAt time.Time `json:"trial_end_at" dynamodbav:"trial_end_at"`
	UpdatedAt  time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
