package model

import "time"

// SessionModel is the server-side record of one authenticated device
// session. Deleted on sign-out; its absence invalidates the token.
type SessionModel struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	IssuedAt  time.Time `json:"issued_at" bson:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}
