package model

import "time"

// Operator is the durable record of a person who has signed in to this
// gateway instance, keyed by the provider-qualified user key.
type Operator struct {
	ID          string    `json:"id" db:"id"`
	UserKey     string    `json:"user_key" db:"user_key"`
	Provider    string    `json:"provider" db:"provider"`
	UserID      string    `json:"user_id" db:"user_id"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Name        *string   `json:"name,omitempty" db:"name"`
	FirstSeen   time.Time `json:"first_seen" db:"first_seen"`
	LastSignIn  time.Time `json:"last_sign_in" db:"last_sign_in"`
	SignInCount int       `json:"sign_in_count" db:"sign_in_count"`
}
