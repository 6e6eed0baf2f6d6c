// internal/app/store/users/userstore_test.go
package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/floatchat/floatchatweb/internal/app/store/users"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"github.com/floatchat/floatchatweb/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *userstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return store
}

func strPtr(s string) *string { return &s }

func TestCreate_NormalizesEmail(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		Username:     "Ada",
		Email:        "  Ada@Example.COM ",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("email = %q, want normalized", u.Email)
	}
	if u.ID.IsZero() {
		t.Fatal("Create did not assign an id")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h"}
	if _, err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second := models.User{Username: "other", Email: "ADA@example.com", PasswordHash: "h"}
	_, err := store.Create(ctx, second)
	if !errors.Is(err, userstore.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h"}
	if _, err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second := models.User{Username: "ada", Email: "other@example.com", PasswordHash: "h"}
	_, err := store.Create(ctx, second)
	if !errors.Is(err, userstore.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByVerificationToken_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:          "ada",
		Email:             "ada@example.com",
		PasswordHash:      "h",
		VerificationToken: strPtr("tok-123"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByVerificationToken(ctx, "tok-123")
	if err != nil {
		t.Fatalf("GetByVerificationToken: %v", err)
	}
	if got.ID != created.ID {
		t.Fatal("token resolved to the wrong user")
	}
}

func TestMarkVerified_ConsumesToken(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:          "ada",
		Email:             "ada@example.com",
		PasswordHash:      "h",
		VerificationToken: strPtr("tok-123"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.MarkVerified(ctx, created.ID); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}

	u, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !u.IsVerified {
		t.Fatal("user not verified")
	}
	if u.VerificationToken != nil {
		t.Fatal("token survived verification")
	}

	// The token can never verify again.
	if _, err := store.GetByVerificationToken(ctx, "tok-123"); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("consumed token still resolves, err = %v", err)
	}
}

func TestSetVerificationToken_Replaces(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:          "ada",
		Email:             "ada@example.com",
		PasswordHash:      "h",
		VerificationToken: strPtr("old-token"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SetVerificationToken(ctx, created.ID, "new-token"); err != nil {
		t.Fatalf("SetVerificationToken: %v", err)
	}

	if _, err := store.GetByVerificationToken(ctx, "old-token"); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("old token still resolves, err = %v", err)
	}
	if _, err := store.GetByVerificationToken(ctx, "new-token"); err != nil {
		t.Fatalf("new token does not resolve: %v", err)
	}
}

func TestExistsByEmailOrUsername(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		email, username string
		want            bool
	}{
		{"ada@example.com", "someone", true},
		{"other@example.com", "ada", true},
		{"other@example.com", "someone", false},
	}
	for _, tc := range cases {
		got, err := store.ExistsByEmailOrUsername(ctx, tc.email, tc.username)
		if err != nil {
			t.Fatalf("ExistsByEmailOrUsername(%q, %q): %v", tc.email, tc.username, err)
		}
		if got != tc.want {
			t.Errorf("ExistsByEmailOrUsername(%q, %q) = %v, want %v", tc.email, tc.username, got, tc.want)
		}
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
