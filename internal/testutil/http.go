// internal/testutil/http.go
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	sessionstore "github.com/floatchat/floatchatweb/internal/app/store/sessions"
	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewFormRequest builds a POST request with an urlencoded form body.
func NewFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// NewSignedInRequest builds a request whose context carries a live session
// for userID, bypassing the cookie round-trip.
func NewSignedInRequest(method, target string, userID primitive.ObjectID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	sess := &sessionstore.Session{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    &userID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	return auth.WithTestSession(req, sess)
}

// AssertRedirect fails the test unless the recorder holds a redirect to
// the expected location.
func AssertRedirect(t interface{ Errorf(string, ...any) }, rec *httptest.ResponseRecorder, expectedLocation string) {
	if rec.Code != http.StatusSeeOther && rec.Code != http.StatusFound && rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("expected redirect status, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}
