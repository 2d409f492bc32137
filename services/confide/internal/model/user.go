package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// State is the lifecycle state of a user record.
type State int

const (
	// StateNew is a record that has not been written yet.
	StateNew State = iota
	// StatePersisted is a stored record whose email is not confirmed.
	StatePersisted
	// StateConfirmed is a stored record with a confirmed email.
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// User represents a user in the authentication system.
//
// Password holds the plaintext value until the record is saved, after which
// it holds the encoded hash. PasswordConfirmation is never stored.
// Confirmed is written as a boolean; legacy documents storing 0/1 decode too.
type User struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"            json:"id"`
	Username             string        `bson:"username"                 json:"username"  validate:"required,alpha_dash"`
	Email                string        `bson:"email"                    json:"email"     validate:"required,email"`
	Password             string        `bson:"password"                 json:"-"         validate:"required"`
	PasswordConfirmation string        `bson:"-"                        json:"-"`
	Confirmed            bool          `bson:"confirmed"                json:"confirmed"`
	ConfirmationCode     string        `bson:"confirmation_code"        json:"-"         validate:"required"`
	RememberToken        string        `bson:"remember_token,omitempty" json:"-"`
	CreatedAt            time.Time     `bson:"created_at"               json:"created_at"`
	UpdatedAt            time.Time     `bson:"updated_at"               json:"updated_at"`
}

// NewUser returns an empty, unsaved user.
func NewUser() *User {
	return &User{}
}

// IsNew reports whether the record has no store-assigned identifier yet.
func (u *User) IsNew() bool {
	return u.ID.IsZero()
}

// State returns the lifecycle state of the record.
func (u *User) State() State {
	switch {
	case u.IsNew():
		return StateNew
	case u.Confirmed:
		return StateConfirmed
	default:
		return StatePersisted
	}
}

// AuthIdentifier returns the hex identifier used in issued tokens.
func (u *User) AuthIdentifier() string {
	if u.IsNew() {
		return ""
	}

	return u.ID.Hex()
}
