// internal/app/features/errors/logger.go
package errors

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/floatchat/floatchatweb/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures and shows the user a friendly error
// page. desc is the log message; userMsg is what the visitor sees.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogServerError logs an internal failure and renders a 500 page.
// backURL is where the error page's back link points; empty means "/".
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, desc string, err error, userMsg, backURL string) {
	e.log.Error(desc,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method))

	e.render(w, r, http.StatusInternalServerError, "Something went wrong", userMsg, backURL)
}

// LogBadRequest logs a client error and renders a 400 page.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, desc string, err error, userMsg, backURL string) {
	e.log.Warn(desc,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method))

	e.render(w, r, http.StatusBadRequest, "Bad request", userMsg, backURL)
}

func (e *ErrorLogger) render(w http.ResponseWriter, r *http.Request, status int, title, userMsg, backURL string) {
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Error(w, userMsg, status)
		return
	}

	if backURL == "" {
		backURL = "/"
	}

	w.WriteHeader(status)

	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, backURL),
		Message: userMsg,
	}
	data.BackURL = backURL

	templates.Render(w, r, "error_page", data)
}
