// internal/app/features/chat/handler.go
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/floatchat/floatchatweb/internal/app/features/errors"
	userstore "github.com/floatchat/floatchatweb/internal/app/store/users"
	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"github.com/floatchat/floatchatweb/internal/app/system/chatrelay"
	"github.com/floatchat/floatchatweb/internal/app/system/markdown"
	"github.com/floatchat/floatchatweb/internal/app/system/timeouts"
	"github.com/floatchat/floatchatweb/internal/app/system/viewdata"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Users is the user lookup the chat page needs.
// *userstore.Store satisfies it.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Relay answers a chat query with Markdown text.
// *chatrelay.Client satisfies it.
type Relay interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Handler serves the authenticated chat page and the relay endpoint.
type Handler struct {
	Users  Users
	Relay  Relay
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(users Users, relay Relay, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  users,
		Relay:  relay,
		ErrLog: errLog,
		Log:    logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /home – the chat page                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type chatPageData struct {
	viewdata.BaseVM
}

func (h *Handler) ServeHome(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		// Deleted account behind a live session; treat as signed out.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load user failed", err, "A server error occurred.", "/")
		return
	}
	if !user.IsVerified {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := chatPageData{
		BaseVM: viewdata.NewBaseVM(r, "Home", "/"),
	}
	data.UserName = user.Username

	templates.Render(w, r, "chat", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/chat – relay a question                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Answer string `json:"answer"`
	HTML   string `json:"html"`
}

type chatError struct {
	Detail string `json:"detail"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatError{Detail: "Invalid request body."})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, chatError{Detail: "Query must not be empty."})
		return
	}

	reqID := uuid.NewString()
	h.Log.Debug("chat query", zap.String("request_id", reqID))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	answer, err := h.Relay.Ask(ctx, query)
	if err != nil {
		var apiErr *chatrelay.Error
		if errors.As(err, &apiErr) {
			h.Log.Warn("chat upstream error",
				zap.String("request_id", reqID),
				zap.Int("status", apiErr.StatusCode),
				zap.String("detail", apiErr.Detail))
			writeJSON(w, http.StatusBadGateway, chatError{Detail: apiErr.Detail})
			return
		}
		h.Log.Error("chat relay failed", zap.String("request_id", reqID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, chatError{Detail: "The assistant is unavailable right now."})
		return
	}

	// Markdown is rendered and sanitized here so the browser inserts the
	// HTML without running it through any client-side parser.
	html, err := markdown.Render(answer)
	if err != nil {
		h.Log.Error("render answer failed", zap.String("request_id", reqID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, chatError{Detail: "Failed to render the answer."})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Answer: answer, HTML: string(html)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
