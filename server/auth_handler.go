package server

import (
	"net/http"
	"time"

	"Musio/logger"
)

// unlockRequest 口令换取令牌
type unlockRequest struct {
	Keyword string `json:"keyword" validate:"required,max=256"`
}

// UnlockHandler exchanges the shared keyword for a bearer token.
func (h *APIHandler) UnlockHandler(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if h.guard == nil {
		writeError(w, http.StatusServiceUnavailable, "Unlock not configured")
		return
	}

	client := clientIP(r)
	token, expires, err := h.guard.Unlock(client, req.Keyword)
	if err != nil {
		logger.Warn("[Unlock] 口令校验失败", logger.String("client", client), logger.ErrorField(err))
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"token":     token,
		"expiresAt": expires.UTC().Format(time.RFC3339),
	})
}
