// internal/app/features/chat/routes.go
package chat

import (
	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes registers the chat page and relay endpoint on the parent router.
// Both require a signed-in session.
func Routes(r chi.Router, h *Handler, sessionMgr *auth.SessionManager) {
	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireSignedIn)
		r.Get("/home", h.ServeHome)
		r.Post("/api/chat", h.HandleChat)
	})
}
