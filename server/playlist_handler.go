package server

import (
	"errors"
	"net/http"

	"Musio/logger"
	"Musio/model"
	"Musio/repository"

	"github.com/gorilla/mux"
)

// ListPlaylistsHandler 返回所有歌单及其歌曲
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.ListWithTracks(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if playlists == nil {
		playlists = []model.Playlist{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

// GetPlaylistHandler 返回单个歌单
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.playlists.GetWithTracks(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlist": playlist})
}

// updatePlaylistRequest 歌单更新请求
type updatePlaylistRequest struct {
	Action  string `json:"action" validate:"required,oneof=add_song"`
	SongID  string `json:"songId" validate:"required"`
	Keyword string `json:"keyword"`
}

// UpdatePlaylistHandler 向歌单添加歌曲（需要口令）
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlistID := mux.Vars(r)["id"]

	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.authorize(r, req.Keyword); err != nil {
		writeErr(w, err)
		return
	}

	if _, err := h.tracks.GetByID(ctx, req.SongID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Song not found")
			return
		}
		writeErr(w, err)
		return
	}

	if err := h.playlists.AddTrack(ctx, playlistID, req.SongID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Playlist not found")
		case errors.Is(err, repository.ErrDuplicate):
			writeError(w, http.StatusConflict, "Song already in playlist")
		default:
			writeErr(w, err)
		}
		return
	}

	playlist, err := h.playlists.GetWithTracks(ctx, playlistID)
	if err != nil {
		writeErr(w, err)
		return
	}
	logger.Info("song added to playlist",
		logger.String("playlist", playlistID),
		logger.String("song", req.SongID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}
