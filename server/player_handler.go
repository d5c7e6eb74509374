package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"Musio/core/player"
	"Musio/logger"
	"Musio/model"
	"Musio/repository"

	"github.com/gorilla/mux"
)

// sessionResponse wraps the state returned by every player endpoint.
type sessionResponse struct {
	Success bool         `json:"success"`
	Session player.State `json:"session"`
}

func writeSession(w http.ResponseWriter, status int, s *player.Session) {
	writeJSON(w, status, sessionResponse{Success: true, Session: s.State()})
}

// session resolves the {id} route variable, restoring from a snapshot when needed.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*player.Session, bool) {
	s, err := h.players.Resume(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return s, true
}

// CreateSessionHandler 创建播放会话
func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	s := h.players.Create()
	logger.Info("player session created", logger.String("session", s.ID()))
	writeSession(w, http.StatusCreated, s)
}

// GetSessionHandler 获取播放会话状态
func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		writeSession(w, http.StatusOK, s)
	}
}

// CloseSessionHandler 关闭播放会话
func (h *APIHandler) CloseSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.players.Close(r.Context(), id) {
		writeErr(w, player.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sessionId": id})
}

// loadQueueRequest 载入播放队列
type loadQueueRequest struct {
	TrackIDs   []string `json:"trackIds" validate:"required_without=PlaylistID,max=1000,dive,required"`
	PlaylistID string   `json:"playlistId" validate:"max=36"`
	StartIndex int      `json:"startIndex"`
}

// LoadQueueHandler replaces the queue with tracks or with a playlist.
func (h *APIHandler) LoadQueueHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req loadQueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	tracks, err := h.resolveTracks(r.Context(), req.TrackIDs, req.PlaylistID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.LoadQueue(tracks, req.StartIndex)
	writeSession(w, http.StatusOK, s)
}

func (h *APIHandler) resolveTracks(ctx context.Context, ids []string, playlistID string) ([]model.Track, error) {
	if len(ids) > 0 {
		return h.tracks.GetByIDs(ctx, ids)
	}
	playlist, err := h.playlists.GetWithTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return playlist.Tracks, nil
}

// enqueueRequest 追加歌曲
type enqueueRequest struct {
	TrackIDs []string `json:"trackIds" validate:"required,min=1,max=1000,dive,required"`
}

// EnqueueHandler 追加歌曲到队列末尾
func (h *APIHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req enqueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	tracks, err := h.tracks.GetByIDs(r.Context(), req.TrackIDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.Enqueue(tracks...)
	writeSession(w, http.StatusOK, s)
}

// RemoveFromQueueHandler 按位置删除队列中的歌曲
func (h *APIHandler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	s.RemoveAt(index)
	writeSession(w, http.StatusOK, s)
}

// moveRequest 调整队列顺序
type moveRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}

// MoveInQueueHandler 移动队列中的歌曲
func (h *APIHandler) MoveInQueueHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	s.Move(*req.From, *req.To)
	writeSession(w, http.StatusOK, s)
}

// transportOps maps the {op} route variable onto session operations.
var transportOps = map[string]func(*player.Session){
	"next":     (*player.Session).Advance,
	"previous": (*player.Session).Retreat,
	"play":     (*player.Session).Play,
	"pause":    (*player.Session).Pause,
	"finished": (*player.Session).OnTrackFinished,
	"shuffle":  (*player.Session).ToggleShuffle,
	"loop":     (*player.Session).ToggleLoop,
}

// TransportHandler 播放控制：下一首、上一首、播放、暂停、随机、循环
func (h *APIHandler) TransportHandler(w http.ResponseWriter, r *http.Request) {
	op, known := transportOps[mux.Vars(r)["op"]]
	if !known {
		writeError(w, http.StatusNotFound, "Unknown player operation")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	op(s)
	writeSession(w, http.StatusOK, s)
}

// policyRequest 设置切歌策略
type policyRequest struct {
	Policy string `json:"policy" validate:"required,oneof=sequential looping shuffling"`
}

// SetPolicyHandler 直接设置切歌策略
func (h *APIHandler) SetPolicyHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req policyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	policy, _ := player.ParsePolicy(req.Policy)
	s.SetPolicy(policy)
	writeSession(w, http.StatusOK, s)
}

// sleepRequest 睡眠定时器
type sleepRequest struct {
	Minutes int `json:"minutes" validate:"min=1,max=180"`
}

// StartSleepHandler 启动睡眠定时器
func (h *APIHandler) StartSleepHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req sleepRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	s.StartSleepTimer(req.Minutes)
	writeSession(w, http.StatusOK, s)
}

// CancelSleepHandler 取消睡眠定时器
func (h *APIHandler) CancelSleepHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.CancelSleepTimer()
	writeSession(w, http.StatusOK, s)
}

// MediaSessionHandler upgrades to the media-session websocket of a player session.
func (h *APIHandler) MediaSessionHandler(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Media session not available")
		return
	}
	s, err := h.players.Resume(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, player.ErrSessionNotFound) || errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Player session not found")
			return
		}
		writeErr(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	// The connection outlives the request context.
	h.hub.Attach(context.Background(), conn, s)
}
