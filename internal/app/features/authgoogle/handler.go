// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/floatchat/floatchatweb/internal/app/features/errors"
	"github.com/floatchat/floatchatweb/internal/app/system/accounts"
	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"github.com/floatchat/floatchatweb/internal/app/system/googleauth"
	"github.com/floatchat/floatchatweb/internal/app/system/timeouts"
	"github.com/floatchat/floatchatweb/internal/app/system/viewdata"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"go.uber.org/zap"
)

const stateTTL = 10 * time.Minute

// Provider is the OAuth exchange the handler drives.
// *googleauth.Provider satisfies it; tests use a stub.
type Provider interface {
	IsConfigured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*googleauth.Profile, error)
}

// StateStore holds one-time OAuth state values.
// *oauthstate.Store satisfies it.
type StateStore interface {
	Save(ctx context.Context, state string, expiresAt time.Time) error
	Validate(ctx context.Context, state string) (bool, error)
}

// Handler runs the Google OAuth flow: consent redirect, callback, and the
// password-completion form for first-time Google users.
type Handler struct {
	Provider   Provider
	States     StateStore
	Accounts   *accounts.Service
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(
	provider Provider,
	states StateStore,
	svc *accounts.Service,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Provider:   provider,
		States:     states,
		Accounts:   svc,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type completeFormData struct {
	viewdata.BaseVM
	Error    string
	Username string
	Email    string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                            |
| Initiates the flow by redirecting to Google's consent screen.               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Provider.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := googleauth.GenerateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(stateTTL)
	if err := h.States.Save(ctx, state, expiresAt); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.Provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                   |
| Exchanges the code, then either signs in the existing account or stashes    |
| a pending profile and sends the user to the password-completion form.       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	stateCtx, cancelState := context.WithTimeout(ctx, timeouts.Short())
	defer cancelState()

	valid, err := h.States.Validate(stateCtx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	profile, err := h.Provider.Exchange(ctx, code)
	if err != nil {
		h.Log.Error("OAuth exchange failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	// The lookup gets its own budget; the provider round-trip above may
	// have taken arbitrarily long.
	lookupCtx, cancelLookup := context.WithTimeout(ctx, timeouts.Short())
	defer cancelLookup()

	res, err := h.Accounts.ResolveOAuth(lookupCtx, profile.Name, profile.Email)
	if err != nil {
		h.Log.Error("failed to resolve OAuth profile", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	if res.Pending != nil {
		// First Google sign-in for this address: no account yet. Park the
		// profile on the session and collect a password before creating one.
		if err := h.SessionMgr.StashPendingProfile(w, r, res.Pending); err != nil {
			h.Log.Error("failed to stash pending profile", zap.Error(err))
			http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/auth/google/complete", http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, res.UserID); err != nil {
		h.Log.Error("sign in failed after OAuth", zap.Error(err))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}

	h.Log.Info("user logged in via Google",
		zap.String("user_id", res.UserID.Hex()),
		zap.String("email", profile.Email))

	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/complete                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeComplete(w http.ResponseWriter, r *http.Request) {
	pending, ok := auth.PendingProfile(r)
	if !ok {
		// Out of order: nothing pending on this session.
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	templates.Render(w, r, "google_complete", completeFormData{
		BaseVM:   viewdata.NewBaseVM(r, "Complete your signup", "/signup"),
		Username: pending.Username,
		Email:    pending.Email,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/google/complete                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCompletePost(w http.ResponseWriter, r *http.Request) {
	pending, ok := auth.PendingProfile(r)
	if !ok {
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/auth/google/complete")
		return
	}

	password := r.FormValue("password")
	confirm := r.FormValue("confirm-password")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Accounts.CompleteOAuthSignup(ctx, *pending, password, confirm)
	switch {
	case err == nil:
		// continue below
	case errors.Is(err, accounts.ErrPasswordMismatch):
		h.renderFormWithError(w, r, "Passwords do not match. Please try again.", pending)
		return
	case errors.Is(err, accounts.ErrEmptyPassword):
		h.renderFormWithError(w, r, "Password is required.", pending)
		return
	case errors.Is(err, accounts.ErrDuplicateAccount):
		h.renderFormWithError(w, r, "A user with that email or username already exists.", pending)
		return
	default:
		h.ErrLog.LogServerError(w, r, "complete OAuth signup failed", err,
			"An error occurred while creating your account. Please try again.", "/auth/google/complete")
		return
	}

	// One update: set the user id, clear the pending profile.
	if err := h.SessionMgr.CompleteSignIn(r, user.ID); err != nil {
		h.Log.Error("failed to finish OAuth session", zap.Error(err),
			zap.String("user_id", user.ID.Hex()))
		// The account exists; a normal login will work.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.Log.Info("google signup completed",
		zap.String("user_id", user.ID.Hex()),
		zap.String("email", user.Email))

	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg string, pending *models.PendingOAuthProfile) {
	templates.Render(w, r, "google_complete", completeFormData{
		BaseVM:   viewdata.NewBaseVM(r, "Complete your signup", "/signup"),
		Error:    msg,
		Username: pending.Username,
		Email:    pending.Email,
	})
}
