// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is empty for accounts created through GitHub sign-in; such
// accounts cannot log in with a password until one is set. The hash and the
// creation time never leave the server, so both are hidden from JSON.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// UserSummary is the public face of a user shown next to ideas and
// comments: an id and a display name, never the email.
type UserSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
