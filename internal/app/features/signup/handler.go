// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/floatchat/floatchatweb/internal/app/features/errors"
	"github.com/floatchat/floatchatweb/internal/app/system/accounts"
	"github.com/floatchat/floatchatweb/internal/app/system/timeouts"
	"github.com/floatchat/floatchatweb/internal/app/system/viewdata"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts *accounts.Service
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(svc *accounts.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts: svc,
		ErrLog:   errLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type signupFormData struct {
	viewdata.BaseVM
	Error    string
	Username string
	Email    string
}

type verifyNoticeData struct {
	viewdata.BaseVM
	Email string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /signup                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSignup(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "signup", signupFormData{
		BaseVM: viewdata.NewBaseVM(r, "Sign Up", "/"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /signup                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignupPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/signup")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		h.renderFormWithError(w, r, "All fields are required.", username, email)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, err := h.Accounts.Signup(ctx, username, email, password)
	switch {
	case err == nil:
		http.Redirect(w, r, "/verify-notice", http.StatusSeeOther)
	case errors.Is(err, accounts.ErrDuplicateAccount):
		h.renderFormWithError(w, r, "A user with that email or username already exists.", username, email)
	default:
		h.ErrLog.LogServerError(w, r, "signup failed", err, "Server error during signup.", "/signup")
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /verify-notice                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeVerifyNotice(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "verify_notice", verifyNoticeData{
		BaseVM: viewdata.NewBaseVM(r, "Check your email", "/signup"),
		Email:  query.Get(r, "email"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /verify-email?token=...                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := query.Get(r, "token")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Accounts.VerifyEmail(ctx, token)
	switch {
	case err == nil:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, accounts.ErrInvalidToken):
		h.ErrLog.LogBadRequest(w, r, "invalid verification token", err, "Invalid verification token.", "/signup")
	default:
		h.ErrLog.LogServerError(w, r, "verify email failed", err, "Server error during verification.", "/signup")
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /resend-verification                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/verify-notice")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	// Unknown or already-verified addresses are a silent no-op; the notice
	// page never reveals whether an account exists.
	if err := h.Accounts.ResendVerification(ctx, email); err != nil {
		h.ErrLog.LogServerError(w, r, "resend verification failed", err, "Server error.", "/verify-notice")
		return
	}

	http.Redirect(w, r, "/verify-notice", http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, username, email string) {
	h.Log.Debug("signup rejected", zap.String("reason", msg))

	templates.Render(w, r, "signup", signupFormData{
		BaseVM:   viewdata.NewBaseVM(r, "Sign Up", "/"),
		Error:    msg,
		Username: username,
		Email:    email,
	})
}
