// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	uierrors "github.com/floatchat/floatchatweb/internal/app/features/errors"
	"github.com/floatchat/floatchatweb/internal/app/system/accounts"
	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"github.com/floatchat/floatchatweb/internal/app/system/timeouts"
	"github.com/floatchat/floatchatweb/internal/app/system/viewdata"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts      *accounts.Service
	SessionMgr    *auth.SessionManager
	ErrLog        *uierrors.ErrorLogger
	GoogleEnabled bool
	Log           *zap.Logger
}

func NewHandler(svc *accounts.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:      svc,
		SessionMgr:    sessionMgr,
		ErrLog:        errLog,
		GoogleEnabled: googleEnabled,
		Log:           logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	Email         string
	ReturnURL     string
	GoogleEnabled bool
	Unverified    bool // show the resend-verification link
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Login", "/"),
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Accounts.Login(ctx, email, password)
	switch {
	case err == nil:
		// continue below
	case errors.Is(err, accounts.ErrInvalidCredentials):
		// Unknown address and wrong password share one message, so the
		// form never confirms whether an account exists.
		h.renderFormWithError(w, r, http.StatusBadRequest, "Invalid credentials.", email, returnURL, false)
		return
	case errors.Is(err, accounts.ErrUnverifiedAccount):
		h.renderFormWithError(w, r, http.StatusUnauthorized, "Please verify your email before logging in.", email, returnURL, true)
		return
	default:
		h.ErrLog.LogServerError(w, r, "login failed", err, "Server error during login.", "/login")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, user.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "sign in failed", err, "Unable to create session. Please try again.", "/login")
		return
	}

	h.Log.Info("user logged in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("email", user.Email))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/home"), http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, email, returnURL string, unverified bool) {
	w.WriteHeader(status)

	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Login", "/"),
		Error:         msg,
		Email:         email,
		ReturnURL:     returnURL,
		GoogleEnabled: h.GoogleEnabled,
		Unverified:    unverified,
	})
}
