package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"Musio/core/analytics"
	"Musio/core/recommend"
	"Musio/logger"
	"Musio/model"
	"Musio/repository"
)

// recommendQuery 推荐查询参数
type recommendQuery struct {
	Type    string `json:"type" validate:"omitempty,oneof=trending genre similar default"`
	BasedOn string `json:"basedOn" validate:"max=36"`
	Genre   string `json:"genre" validate:"max=100"`
	Limit   int    `json:"limit" validate:"min=0,max=50"`
}

type recommendationsResponse struct {
	Success bool `json:"success"`
	*recommend.Response
}

// GetRecommendationsHandler 返回推荐歌曲
func (h *APIHandler) GetRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := recommendQuery{
		Type:    strings.ToLower(strings.TrimSpace(q.Get("type"))),
		BasedOn: strings.TrimSpace(q.Get("basedOn")),
		Genre:   strings.TrimSpace(q.Get("genre")),
	}
	// An unparsable limit falls back to the default.
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		query.Limit = n
	}
	if err := ValidateStruct(&query); err != nil {
		writeErr(w, err)
		return
	}

	resp, err := h.recommender.Recommend(r.Context(), recommend.Request{
		Mode:   recommend.Mode(query.Type),
		SeedID: query.BasedOn,
		Genre:  query.Genre,
		Limit:  query.Limit,
	})
	if err != nil {
		if errors.Is(err, recommend.ErrSeedNotFound) {
			writeErr(w, err)
			return
		}
		logger.Error("Error generating recommendations", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Success: true, Response: resp})
}

// interactionRequest 用户交互记录
type interactionRequest struct {
	SongID string `json:"songId" validate:"required,max=36"`
	UserID string `json:"userId" validate:"max=100"`
	Action string `json:"action" validate:"required,max=50"`
}

// RecordInteractionHandler 记录用户对推荐歌曲的操作
func (h *APIHandler) RecordInteractionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req interactionRequest
	if err := decodeJSON(r, &req); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && len(ve.Fields) > 0 {
			writeError(w, http.StatusBadRequest, "Missing required parameters")
			return
		}
		writeErr(w, err)
		return
	}

	song, err := h.tracks.GetByID(ctx, req.SongID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Song not found")
			return
		}
		writeErr(w, err)
		return
	}

	interaction := &model.Interaction{TrackID: song.ID, UserID: req.UserID, Action: req.Action}
	if err := h.interactions.Create(ctx, interaction); err != nil {
		writeErr(w, err)
		return
	}

	switch req.Action {
	case model.ActionPlay:
		err = h.tracks.IncrementPlayCount(ctx, song.ID)
	case model.ActionLike:
		err = h.tracks.IncrementLikes(ctx, song.ID)
	}
	if err != nil {
		logger.Warn("failed to update track counters",
			logger.String("song", song.ID),
			logger.String("action", req.Action),
			logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Interaction recorded: %s on %q", req.Action, song.Title),
		"songId":  song.ID,
		"action":  req.Action,
	})
}

// AnalyticsHandler 返回曲库统计信息
func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracks, err := h.tracks.ListAll(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	playlistCount, err := h.playlists.Count(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(tracks, int(playlistCount)))
}
