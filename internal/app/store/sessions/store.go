// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/floatchat/floatchatweb/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTTL is how long a session lives without being recreated.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a session id does not resolve to a live
// session (unknown id, or the record expired).
var ErrNotFound = errors.New("session not found or expired")

// Session is the server-side session record. The browser only ever holds the
// opaque ID (signed into a cookie); everything else stays in the database.
//
// UserID and PendingOAuth are the only two payload fields. PendingOAuth
// exists only during the Google signup-completion gap; CompleteSignIn clears
// it and sets UserID in one update.
type Session struct {
	ID           string                      `bson:"_id"`
	UserID       *primitive.ObjectID         `bson:"user_id,omitempty"`
	PendingOAuth *models.PendingOAuthProfile `bson:"pending_oauth,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at"` // TTL index field
}

// Store manages session records.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a session Store. If ttl is 0 or negative, DefaultTTL is used.
func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection("sessions"), ttl: ttl}
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// EnsureIndexes creates the TTL index so Mongo reaps expired sessions.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_sessions_ttl"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts an empty session and returns it. The ID is an opaque
// random identifier; it carries no meaning beyond being a lookup key.
func (s *Store) Create(ctx context.Context) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get loads a live session by id. Records past their expiry are treated as
// gone even if the TTL monitor has not deleted them yet.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.c.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SetUser marks the session authenticated as userID and discards any pending
// OAuth profile in the same update. This is the single atomic step both
// login and OAuth completion rely on: afterwards the session is either
// unchanged (on error) or fully switched to the authenticated state.
func (s *Store) SetUser(ctx context.Context, id string, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "expires_at": bson.M{"$gt": time.Now().UTC()}},
		bson.M{
			"$set":   bson.M{"user_id": userID, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"pending_oauth": ""},
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

// SetPendingOAuth stashes a pending profile, overwriting any prior one.
func (s *Store) SetPendingOAuth(ctx context.Context, id string, p *models.PendingOAuthProfile) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "expires_at": bson.M{"$gt": time.Now().UTC()}},
		bson.M{"$set": bson.M{"pending_oauth": p, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Destroy deletes the session record. Deleting an unknown id is not an
// error; logout is idempotent.
func (s *Store) Destroy(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpired removes sessions past their expiry. Backup for when the TTL
// monitor is delayed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
