// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
	}
}

// HandleLogout handles POST /logout. The session record is destroyed and
// the cookie cleared; the redirect happens regardless of backend errors.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.SessionMgr.SignOut(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
