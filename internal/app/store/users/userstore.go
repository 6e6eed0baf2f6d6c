// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/floatchat/floatchatweb/internal/app/system/normalize"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a create would violate the unique email
	// or username index. Uniqueness is enforced by the index, not by a
	// read-before-write, so concurrent signups race safely.
	ErrDuplicate = errors.New("a user with this email or username already exists")
	errNoUsername = errors.New("username is required")
	errNoEmail    = errors.New("email is required")
)

// Store persists User records in the "users" collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates the unique indexes the signup flows rely on.
// verification_token is sparse: only users with an outstanding verification
// carry the field.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_email"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_username"),
		},
		{
			Keys: bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetSparse(true).
				SetName("idx_users_verification_token"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new user after normalizing fields.
// Returns ErrDuplicate on a unique-index violation.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.Email = normalize.Email(u.Email)

	if u.Username == "" {
		return models.User{}, errNoUsername
	}
	if u.Email == "" {
		return models.User{}, errNoEmail
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByVerificationToken looks up the user holding an outstanding
// verification token. A consumed token is unset, so it can never match.
func (s *Store) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"verification_token": token}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// MarkVerified sets is_verified and clears the verification token in a
// single update, so the token is single-use.
func (s *Store) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"verification_token": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerificationToken overwrites the stored token, invalidating any link
// sent earlier.
func (s *Store) SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"verification_token": token, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByEmailOrUsername reports whether any user holds the email or the
// username. It is a pre-check only; Create's unique indexes remain the
// authority under concurrency.
func (s *Store) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"$or": []bson.M{
		{"email": normalize.Email(email)},
		{"username": normalize.Username(username)},
	}}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}
