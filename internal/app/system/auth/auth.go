// internal/app/system/auth/auth.go

// Package auth owns the session cookie and the request-scoped session
// state. Sessions live server-side (the sessions store); the browser only
// carries an opaque session id, signed into the cookie with securecookie.
//
// The session record has exactly two payload fields: the authenticated user
// id and the pending-OAuth profile. There is no general-purpose value bag,
// so there is never ambiguity about which signal decides the auth state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sessionstore "github.com/floatchat/floatchatweb/internal/app/store/sessions"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrNoSession is returned by CompleteSignIn and PendingProfile helpers
// when the request carries no live session.
var ErrNoSession = errors.New("no session")

// SessionBackend is the server-side session storage the manager drives.
// *sessionstore.Store satisfies it; tests use an in-memory fake.
type SessionBackend interface {
	Create(ctx context.Context) (sessionstore.Session, error)
	Get(ctx context.Context, id string) (*sessionstore.Session, error)
	SetUser(ctx context.Context, id string, userID primitive.ObjectID) error
	SetPendingOAuth(ctx context.Context, id string, p *models.PendingOAuthProfile) error
	Destroy(ctx context.Context, id string) error
}

// SessionManager issues, loads, and destroys sessions.
type SessionManager struct {
	codec    *securecookie.SecureCookie
	backend  SessionBackend
	name     string
	domain   string
	ttl      time.Duration
	secure   bool
	sameSite http.SameSite
	log      *zap.Logger
}

// NewSessionManager builds a manager. The session key signs the cookie; it
// must be strong in production (32+ random chars).
//
// In production (secure=true) cookies are Secure + SameSite=None. In local
// dev over http://localhost, secure=false with Lax so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, backend SessionBackend, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if ttl <= 0 {
		ttl = sessionstore.DefaultTTL
	}

	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}

	sm := &SessionManager{
		codec:    securecookie.New([]byte(sessionKey), nil),
		backend:  backend,
		name:     name,
		domain:   domain,
		ttl:      ttl,
		secure:   secure,
		sameSite: sameSite,
		log:      logger,
	}

	logger.Info("session manager initialized",
		zap.String("cookie", name),
		zap.Bool("secure", secure),
		zap.Duration("ttl", ttl))

	return sm, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const sessionCtxKey ctxKey = "session"

// CurrentSession returns the live session loaded by LoadSession, if any.
func CurrentSession(r *http.Request) (*sessionstore.Session, bool) {
	s, ok := r.Context().Value(sessionCtxKey).(*sessionstore.Session)
	return s, ok
}

// CurrentUserID returns the authenticated user's id, if signed in.
func CurrentUserID(r *http.Request) (primitive.ObjectID, bool) {
	if s, ok := CurrentSession(r); ok && s.UserID != nil {
		return *s.UserID, true
	}
	return primitive.NilObjectID, false
}

// PendingProfile returns the pending OAuth descriptor on the session, if
// one is stashed.
func PendingProfile(r *http.Request) (*models.PendingOAuthProfile, bool) {
	if s, ok := CurrentSession(r); ok && s.PendingOAuth != nil {
		return s.PendingOAuth, true
	}
	return nil, false
}

func withSession(r *http.Request, s *sessionstore.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionCtxKey, s))
}

// WithTestSession injects a session into the request context. Test helper;
// bypasses the cookie round-trip.
func WithTestSession(r *http.Request, s *sessionstore.Session) *http.Request {
	return withSession(r, s)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSession resolves the session cookie to a live session record and puts
// it on the request context. Unknown, expired, or tampered cookies simply
// yield an anonymous request.
func (sm *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := sm.cookieSessionID(r); ok {
			sess, err := sm.backend.Get(r.Context(), id)
			switch {
			case err == nil:
				r = withSession(r, sess)
			case errors.Is(err, sessionstore.ErrNotFound):
				// stale cookie; ignore
			default:
				sm.log.Error("session load failed", zap.Error(err))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn guards authenticated pages. Anonymous requests are sent
// to /login (303 for HTML, plain 401 for API callers). Responses that pass
// the guard get Cache-Control: no-store so the browser cannot replay a
// private page from cache after logout.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r); ok {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
			return
		}

		ret := url.QueryEscape(r.URL.RequestURI())

		if wantsHTML(r) {
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign-in / sign-out                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// SignIn marks the request's session as authenticated for userID, creating
// a session record and cookie if the request has none. Any stale pending
// OAuth profile on the session is discarded in the same update.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) error {
	sess, err := sm.ensureSession(w, r)
	if err != nil {
		return err
	}
	return sm.backend.SetUser(r.Context(), sess.ID, userID)
}

// StashPendingProfile stores a pending OAuth descriptor on the session,
// overwriting any prior one.
func (sm *SessionManager) StashPendingProfile(w http.ResponseWriter, r *http.Request, p *models.PendingOAuthProfile) error {
	sess, err := sm.ensureSession(w, r)
	if err != nil {
		return err
	}
	return sm.backend.SetPendingOAuth(r.Context(), sess.ID, p)
}

// CompleteSignIn finishes an OAuth signup on an existing session: one
// backend update sets the user id and clears the pending profile. If that
// update fails the session is untouched, so the user can retry the form.
// Returns ErrNoSession when the request carries no live session.
func (sm *SessionManager) CompleteSignIn(r *http.Request, userID primitive.ObjectID) error {
	sess, ok := CurrentSession(r)
	if !ok {
		return ErrNoSession
	}
	return sm.backend.SetUser(r.Context(), sess.ID, userID)
}

// SignOut destroys the session record and clears the cookie. The cookie is
// cleared even when the backend destroy fails; logout never errors to the
// caller.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) {
	if sess, ok := CurrentSession(r); ok {
		if err := sm.backend.Destroy(r.Context(), sess.ID); err != nil {
			sm.log.Error("session destroy failed", zap.Error(err))
		}
	}
	sm.clearCookie(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Cookie plumbing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (sm *SessionManager) cookieSessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sm.name)
	if err != nil {
		return "", false
	}
	var id string
	if err := sm.codec.Decode(sm.name, c.Value, &id); err != nil {
		return "", false
	}
	return id, true
}

// ensureSession returns the request's session, creating a record and
// setting the cookie when the request has none.
func (sm *SessionManager) ensureSession(w http.ResponseWriter, r *http.Request) (*sessionstore.Session, error) {
	if sess, ok := CurrentSession(r); ok {
		return sess, nil
	}

	sess, err := sm.backend.Create(r.Context())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	encoded, err := sm.codec.Encode(sm.name, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.name,
		Value:    encoded,
		Path:     "/",
		Domain:   sm.domain,
		MaxAge:   int(sm.ttl.Seconds()),
		Secure:   sm.secure,
		HttpOnly: true,
		SameSite: sm.sameSite,
	})

	return &sess, nil
}

func (sm *SessionManager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.name,
		Value:    "",
		Path:     "/",
		Domain:   sm.domain,
		MaxAge:   -1,
		Secure:   sm.secure,
		HttpOnly: true,
		SameSite: sm.sameSite,
	})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
