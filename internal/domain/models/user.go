// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSiteName is used in page titles and email subjects.
const DefaultSiteName = "floatChat"

// User is a local account. Accounts created through Google OAuth completion
// are pre-verified and carry no verification token.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	IsVerified   bool               `bson:"is_verified" json:"is_verified"`

	// VerificationToken is present iff a verification email is outstanding.
	// It is unset in the same update that sets IsVerified.
	VerificationToken *string `bson:"verification_token,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PendingOAuthProfile is the transient descriptor for a Google identity that
// has no matching local account yet. It lives on the session record only
// during the signup-completion gap.
type PendingOAuthProfile struct {
	Username   string `bson:"username" json:"username"`
	Email      string `bson:"email" json:"email"`
	IsVerified bool   `bson:"is_verified" json:"is_verified"`
}
