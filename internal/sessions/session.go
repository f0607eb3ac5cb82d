package sessions

import "time"

// Session is a stored token record. Refresh, reset-password and email-verification
// tokens are only honoured while their record exists.
type Session struct {
	Token     string    `bson:"token" json:"token"`
	UserID    string    `bson:"user" json:"user"`
	Type      string    `bson:"type" json:"type"`
	ExpiresAt time.Time `bson:"expires" json:"expires"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
