package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"Musio/config"
	"Musio/core/auth"
	"Musio/core/mediasession"
	"Musio/core/player"
	"Musio/core/recommend"
	"Musio/logger"
	"Musio/repository"
	"Musio/storage"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// MediaStore stores and removes uploaded audio and cover images.
type MediaStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Deps are the collaborators of APIHandler.
type Deps struct {
	Tracks       repository.TrackRepository
	Playlists    repository.PlaylistRepository
	Interactions repository.InteractionRepository
	Recommender  *recommend.Service
	Players      *player.Manager
	Hub          *mediasession.Hub
	Media        MediaStore
	Guard        *auth.Guard
	Config       *config.Config
}

// APIHandler 处理所有API请求
type APIHandler struct {
	tracks       repository.TrackRepository
	playlists    repository.PlaylistRepository
	interactions repository.InteractionRepository
	recommender  *recommend.Service
	players      *player.Manager
	hub          *mediasession.Hub
	media        MediaStore
	guard        *auth.Guard
	cfg          *config.Config
	upgrader     websocket.Upgrader
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(d Deps) *APIHandler {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	recommender := d.Recommender
	if recommender == nil {
		recommender = recommend.NewService(d.Tracks, nil, cfg.RecommendLimit)
	}
	players := d.Players
	if players == nil {
		players = player.NewManager()
	}
	return &APIHandler{
		tracks:       d.Tracks,
		playlists:    d.Playlists,
		interactions: d.Interactions,
		recommender:  recommender,
		players:      players,
		hub:          d.Hub,
		media:        d.Media,
		guard:        d.Guard,
		cfg:          cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// writeErr maps domain errors onto status codes. Unknown errors are logged and hidden.
func writeErr(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, auth.ErrInvalidKeyword):
		writeError(w, http.StatusForbidden, "Invalid confirmation key")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "Invalid or expired token")
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many attempts, try again later")
	case errors.Is(err, recommend.ErrSeedNotFound):
		writeError(w, http.StatusNotFound, "Base song not found")
	case errors.Is(err, player.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Player session not found")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		logger.Error("request failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a JSON body into v and validates it.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ValidationError{Message: "invalid JSON body"}
	}
	return ValidateStruct(v)
}

// authorize accepts the keyword or an Authorization bearer token.
func (h *APIHandler) authorize(r *http.Request, keyword string) error {
	if h.guard == nil {
		return auth.ErrInvalidKeyword
	}
	return h.guard.Authorize(keyword, bearerToken(r))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// clientIP identifies the caller for rate limiting.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
