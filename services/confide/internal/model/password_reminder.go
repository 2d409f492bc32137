package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PasswordReminder represents a password reset request stored for an email.
type PasswordReminder struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Token     string        `bson:"token"`
	CreatedAt time.Time     `bson:"created_at"`
}
