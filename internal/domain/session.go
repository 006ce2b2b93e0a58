package domain

import "time"

// SessionClaim is the payload of an access credential. It is self-contained:
// verified by signature and expiry alone, never persisted.
type SessionClaim struct {
	UserID    string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshCredential is the durable registry entry for one issued refresh
// credential. Revoked is a one-way flag: once set the credential is terminal
// and can never be exchanged, regardless of expiry.
type RefreshCredential struct {
	TokenID   string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}
