// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/floatchat/floatchatweb/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateVerifiedUser inserts a verified user with the given credentials.
func (f *Fixtures) CreateVerifiedUser(ctx context.Context, username, email, password string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, email, password, true, nil)
}

// CreateUnverifiedUser inserts an unverified user carrying the given
// verification token.
func (f *Fixtures) CreateUnverifiedUser(ctx context.Context, username, email, password, token string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, email, password, false, &token)
}

func (f *Fixtures) createUser(ctx context.Context, username, email, password string, verified bool, token *string) models.User {
	f.t.Helper()

	// MinCost keeps fixture creation fast; these hashes never leave tests.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash fixture password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:                primitive.NewObjectID(),
		Username:          username,
		Email:             email,
		PasswordHash:      string(hash),
		IsVerified:        verified,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}
