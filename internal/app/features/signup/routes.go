// internal/app/features/signup/routes.go
package signup

import "github.com/go-chi/chi/v5"

// Routes registers the signup and email-verification endpoints on the
// parent router. The paths are absolute because the flow spans several
// top-level URLs.
func Routes(r chi.Router, h *Handler) {
	r.Get("/signup", h.ServeSignup)
	r.Post("/signup", h.HandleSignupPost)
	r.Get("/verify-notice", h.ServeVerifyNotice)
	r.Get("/verify-email", h.HandleVerifyEmail)
	r.Post("/resend-verification", h.HandleResendVerification)
}
