// Package models defines the database entity types.
package models

// Token represents a canary token record in the database.
type Token struct {
	ID        int64
	Token     string
	Owner     string
	CreatedAt int64
	ExpiresAt int64
	Active    bool
}

// Usable reports whether the token may still be triggered at the given
// unix time: it must be active and not yet expired.
func (t *Token) Usable(now int64) bool {
	return t.Active && now < t.ExpiresAt
}

// Event represents a recorded canary callback. Events are append-only;
// only ResolvedHostname may be filled in after insertion, and exactly once.
type Event struct {
	ID               int64
	TokenID          int64
	ReceivedAt       int64
	Method           string
	Path             string
	Query            string
	Headers          string
	BodyPreview      string
	RemoteIP         string
	ResolvedHostname *string
	Suspicious       bool
	SuspicionReason  *string
	TokenValid       bool
}
