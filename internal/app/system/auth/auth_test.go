// internal/app/system/auth/auth_test.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sessionstore "github.com/floatchat/floatchatweb/internal/app/store/sessions"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| In-memory backend                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type memBackend struct {
	sessions map[string]*sessionstore.Session

	failSetUser  bool
	failDestroy  bool
	destroyCalls int
}

func newMemBackend() *memBackend {
	return &memBackend{sessions: make(map[string]*sessionstore.Session)}
}

func (m *memBackend) Create(_ context.Context) (sessionstore.Session, error) {
	s := sessionstore.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	m.sessions[s.ID] = &s
	return s, nil
}

func (m *memBackend) Get(_ context.Context, id string) (*sessionstore.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, sessionstore.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memBackend) SetUser(_ context.Context, id string, userID primitive.ObjectID) error {
	if m.failSetUser {
		return errors.New("backend down")
	}
	s, ok := m.sessions[id]
	if !ok {
		return sessionstore.ErrNotFound
	}
	s.UserID = &userID
	s.PendingOAuth = nil
	return nil
}

func (m *memBackend) SetPendingOAuth(_ context.Context, id string, p *models.PendingOAuthProfile) error {
	s, ok := m.sessions[id]
	if !ok {
		return sessionstore.ErrNotFound
	}
	s.PendingOAuth = p
	return nil
}

func (m *memBackend) Destroy(_ context.Context, id string) error {
	m.destroyCalls++
	if m.failDestroy {
		return errors.New("backend down")
	}
	delete(m.sessions, id)
	return nil
}

func newTestSessionManager(t *testing.T, backend SessionBackend) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(
		strings.Repeat("k", 32), "floatchat_session", "", time.Hour, false,
		backend, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

// signInRequest signs in through the real cookie round-trip and returns a
// fresh request carrying the resulting session cookie.
func signInRequest(t *testing.T, sm *SessionManager, userID primitive.ObjectID) *http.Request {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := sm.SignIn(rec, req, userID); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn set no cookie")
	}

	next := httptest.NewRequest(http.MethodGet, "/home", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	return next
}

/*─────────────────────────────────────────────────────────────────────────────*
| NewSessionManager                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func TestNewSessionManager_EmptyKeyFails(t *testing.T) {
	_, err := NewSessionManager("", "s", "", time.Hour, false, newMemBackend(), zap.NewNop())
	if err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestNewSessionManager_SecureUsesSameSiteNone(t *testing.T) {
	sm, err := NewSessionManager(strings.Repeat("k", 32), "s", "", time.Hour, true, newMemBackend(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	if sm.sameSite != http.SameSiteNoneMode {
		t.Fatalf("sameSite = %v, want None", sm.sameSite)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| LoadSession                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func TestLoadSession_RoundTrip(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)
	userID := primitive.NewObjectID()

	req := signInRequest(t, sm, userID)

	var got primitive.ObjectID
	var ok bool
	h := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = CurrentUserID(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatal("CurrentUserID: no user on request")
	}
	if got != userID {
		t.Fatalf("user id = %s, want %s", got.Hex(), userID.Hex())
	}
}

func TestLoadSession_TamperedCookieIsAnonymous(t *testing.T) {
	sm := newTestSessionManager(t, newMemBackend())

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: "floatchat_session", Value: "garbage"})

	h := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentSession(r); ok {
			t.Error("tampered cookie produced a session")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestLoadSession_StaleCookieIsAnonymous(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	req := signInRequest(t, sm, primitive.NewObjectID())

	// Wipe the backend; the cookie now points at nothing.
	backend.sessions = make(map[string]*sessionstore.Session)

	h := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentSession(r); ok {
			t.Error("stale cookie produced a session")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
}

/*─────────────────────────────────────────────────────────────────────────────*
| RequireSignedIn                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func TestRequireSignedIn_AnonymousHTMLRedirects(t *testing.T) {
	sm := newTestSessionManager(t, newMemBackend())

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler ran for anonymous request")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?return=") {
		t.Fatalf("Location = %q, want /login?return=...", loc)
	}
}

func TestRequireSignedIn_AnonymousAPIGets401(t *testing.T) {
	sm := newTestSessionManager(t, newMemBackend())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler ran for anonymous request")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSignedIn_PendingOAuthIsNotSignedIn(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	if err := sm.StashPendingProfile(rec, req, &models.PendingOAuthProfile{
		Username: "New User", Email: "new@example.com", IsVerified: true,
	}); err != nil {
		t.Fatalf("StashPendingProfile: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/home", nil)
	next.Header.Set("Accept", "text/html")
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	out := httptest.NewRecorder()
	sm.LoadSession(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("pending-only session passed the guard")
	}))).ServeHTTP(out, next)

	if out.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", out.Code, http.StatusSeeOther)
	}
}

func TestRequireSignedIn_SignedInGetsNoStore(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	req := signInRequest(t, sm, primitive.NewObjectID())
	rec := httptest.NewRecorder()

	ran := false
	sm.LoadSession(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))).ServeHTTP(rec, req)

	if !ran {
		t.Fatal("handler did not run for signed-in request")
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", cc)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign-in lifecycle                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func TestSignIn_ReusesExistingSession(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	req := signInRequest(t, sm, primitive.NewObjectID())

	var firstID string
	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := CurrentSession(r)
		firstID = s.ID
		if err := sm.SignIn(w, r, primitive.NewObjectID()); err != nil {
			t.Fatalf("SignIn: %v", err)
		}
	})).ServeHTTP(httptest.NewRecorder(), req)

	if len(backend.sessions) != 1 {
		t.Fatalf("sessions = %d, want 1 (no new record for a live session)", len(backend.sessions))
	}
	if _, ok := backend.sessions[firstID]; !ok {
		t.Fatal("original session record was replaced")
	}
}

func TestCompleteSignIn_NoSessionFails(t *testing.T) {
	sm := newTestSessionManager(t, newMemBackend())

	req := httptest.NewRequest(http.MethodPost, "/auth/google/complete", nil)
	err := sm.CompleteSignIn(req, primitive.NewObjectID())
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestCompleteSignIn_ClearsPendingProfile(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	if err := sm.StashPendingProfile(rec, req, &models.PendingOAuthProfile{
		Username: "New User", Email: "new@example.com", IsVerified: true,
	}); err != nil {
		t.Fatalf("StashPendingProfile: %v", err)
	}

	next := httptest.NewRequest(http.MethodPost, "/auth/google/complete", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	userID := primitive.NewObjectID()
	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sm.CompleteSignIn(r, userID); err != nil {
			t.Fatalf("CompleteSignIn: %v", err)
		}
	})).ServeHTTP(httptest.NewRecorder(), next)

	var stored *sessionstore.Session
	for _, s := range backend.sessions {
		stored = s
	}
	if stored == nil {
		t.Fatal("session record missing after completion")
	}
	if stored.UserID == nil || *stored.UserID != userID {
		t.Fatal("completion did not set the user id")
	}
	if stored.PendingOAuth != nil {
		t.Fatal("completion left the pending profile in place")
	}
}

func TestCompleteSignIn_BackendFailureLeavesPending(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	if err := sm.StashPendingProfile(rec, req, &models.PendingOAuthProfile{
		Username: "New User", Email: "new@example.com", IsVerified: true,
	}); err != nil {
		t.Fatalf("StashPendingProfile: %v", err)
	}

	backend.failSetUser = true

	next := httptest.NewRequest(http.MethodPost, "/auth/google/complete", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sm.CompleteSignIn(r, primitive.NewObjectID()); err == nil {
			t.Fatal("expected error from failing backend")
		}
	})).ServeHTTP(httptest.NewRecorder(), next)

	for _, s := range backend.sessions {
		if s.PendingOAuth == nil {
			t.Fatal("failed completion wiped the pending profile")
		}
		if s.UserID != nil {
			t.Fatal("failed completion set a user id")
		}
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign-out                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func TestSignOut_DestroysRecordAndClearsCookie(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	req := signInRequest(t, sm, primitive.NewObjectID())
	rec := httptest.NewRecorder()

	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.SignOut(w, r)
	})).ServeHTTP(rec, req)

	if len(backend.sessions) != 0 {
		t.Fatal("session record survived sign-out")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("sign-out set no cookie")
	}
	if c := cookies[len(cookies)-1]; c.MaxAge != -1 {
		t.Fatalf("cookie MaxAge = %d, want -1", c.MaxAge)
	}
}

func TestSignOut_ClearsCookieEvenWhenBackendFails(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	req := signInRequest(t, sm, primitive.NewObjectID())
	backend.failDestroy = true
	rec := httptest.NewRecorder()

	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.SignOut(w, r)
	})).ServeHTTP(rec, req)

	if backend.destroyCalls != 1 {
		t.Fatalf("destroy calls = %d, want 1", backend.destroyCalls)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("sign-out set no cookie")
	}
	if c := cookies[len(cookies)-1]; c.MaxAge != -1 {
		t.Fatalf("cookie MaxAge = %d, want -1", c.MaxAge)
	}
}

func TestSignOut_AnonymousIsNoOp(t *testing.T) {
	backend := newMemBackend()
	sm := newTestSessionManager(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	sm.SignOut(rec, req)

	if backend.destroyCalls != 0 {
		t.Fatal("anonymous sign-out hit the backend")
	}
}
