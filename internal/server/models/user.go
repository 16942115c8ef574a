// Package models defines server-side data models persisted in the ledger.
// Message bodies appear only as opaque envelopes.
package models

import "time"

// User is a registered account. Salt is public metadata handed back at login;
// it is fixed at registration and never regenerated.
type User struct {
	ID               string
	UserName         string
	PasswordVerifier string
	Salt             []byte
	CreatedAt        time.Time
}

// Identity is the authenticated caller as supplied by the transport layer.
type Identity struct {
	UserID   string
	UserName string
}
