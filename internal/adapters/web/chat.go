package web

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"invagro/internal/app"
	"invagro/internal/chat"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	chatCookie      = "chat_session"
	chatCookieAge   = 30 * 24 * 60 * 60
	rateLimitedText = "Demasiadas consultas seguidas. Intente de nuevo en unos segundos."
)

type chatMessageRequest struct {
	Message string `json:"message"`
}

// chatMessage handles POST /api/chat: {message} → {reply, tool}.
// The session token lives in the chat_session cookie and is created on first use.
func (h *Handler) chatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims := authFromContext(r.Context())

	if !h.allowChat(w, r, claims) {
		return
	}

	sessionID := h.chatSession(w, r)
	chatReq := app.ChatRequest{SessionID: sessionID, Username: claims.Username, Message: req.Message}
	res, err := h.svc.Chat(r.Context(), chatReq)
	if errors.Is(err, chat.ErrSessionForbidden) {
		// The browser still carries another user's session: start a fresh one.
		h.logger.Warn("chat session owned by another user, rotating",
			zap.String("username", claims.Username),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		chatReq.SessionID = h.newChatSession(w)
		res, err = h.svc.Chat(r.Context(), chatReq)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

// chatClear handles POST /api/chat/clear. The next message opens a new session;
// the old history stays in the database for auditing.
func (h *Handler) chatClear(w http.ResponseWriter, r *http.Request) {
	h.expireCookie(w, chatCookie, http.SameSiteLaxMode)
	w.WriteHeader(http.StatusNoContent)
}

// allowChat applies the per-user token bucket. Limiter failures fail open.
func (h *Handler) allowChat(w http.ResponseWriter, r *http.Request, claims *AuthClaims) bool {
	if h.limiter == nil {
		return true
	}
	res, err := h.limiter.Allow(r.Context(), strconv.Itoa(claims.UserID))
	if err != nil {
		h.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if res.Allowed {
		return true
	}
	if res.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
	}
	writeError(w, r, rateLimitedText, "RATE_LIMITED", http.StatusTooManyRequests)
	return false
}

func (h *Handler) chatSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(chatCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	return h.newChatSession(w)
}

func (h *Handler) newChatSession(w http.ResponseWriter) string {
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     chatCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   chatCookieAge,
	})
	return id
}
