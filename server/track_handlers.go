package server

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"Musio/logger"
	"Musio/model"
	"Musio/repository"
	"Musio/storage"
)

const (
	// listLimit caps the "all songs" listing.
	listLimit = 50
	// searchLimit caps search results.
	searchLimit = 10
)

// ListSongsHandler 返回最新的 50 首歌曲
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.tracks.ListRecent(r.Context(), listLimit)
	if err != nil {
		logger.Error("Error fetching songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch songs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"songs":   nonNilTracks(songs),
	})
}

// SearchSongsHandler 按标题或艺术家搜索歌曲
func (h *APIHandler) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "songs": []model.Track{}})
		return
	}
	songs, err := h.tracks.Search(r.Context(), query, searchLimit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"songs":   nonNilTracks(songs),
	})
}

// storageResult reports the outcome of one object deletion.
type storageResult struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DeleteSongHandler 删除歌曲及其文件，并从所有歌单中移除
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if err := h.authorize(r, q.Get("key")); err != nil {
		writeErr(w, err)
		return
	}

	songID := strings.TrimSpace(q.Get("id"))
	if songID == "" {
		writeError(w, http.StatusBadRequest, "Song ID is required")
		return
	}

	song, err := h.tracks.GetByID(ctx, songID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Song not found")
			return
		}
		writeErr(w, err)
		return
	}

	// 存储删除失败只记录，不中断
	deletions := make([]storageResult, 0, 2)
	if song.URL != "" {
		deletions = append(deletions, h.deleteObject(ctx, "song", song.URL))
	}
	if !storage.IsDefaultImage(song.CoverImage) {
		deletions = append(deletions, h.deleteObject(ctx, "cover", song.CoverImage))
	}

	updated, err := h.playlists.RemoveTrackEverywhere(ctx, songID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.tracks.Delete(ctx, songID); err != nil {
		writeErr(w, err)
		return
	}

	logger.Info("song deleted",
		logger.String("id", song.ID),
		logger.String("title", song.Title),
		logger.Int64("playlistsUpdated", updated))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Song deleted successfully",
		"deletedSong": map[string]string{
			"id":     song.ID,
			"title":  song.Title,
			"artist": song.Artist,
		},
		"storageDeletions": deletions,
		"playlistsUpdated": updated,
	})
}

func (h *APIHandler) deleteObject(ctx context.Context, kind, url string) storageResult {
	res := storageResult{Type: kind, URL: url, Success: true}
	if h.media == nil {
		res.Success, res.Error = false, "storage not configured"
		return res
	}
	if err := h.media.Delete(ctx, url); err != nil {
		logger.Warn("failed to delete object", logger.String("url", url), logger.ErrorField(err))
		res.Success, res.Error = false, err.Error()
	}
	return res
}

// uploadForm 上传表单字段
type uploadForm struct {
	Title           string `json:"title" validate:"required,max=255"`
	Artist          string `json:"artist" validate:"max=255"`
	Genre           string `json:"genre" validate:"max=100"`
	PlaylistID      string `json:"playlistId" validate:"max=36"`
	NewPlaylistName string `json:"newPlaylistName" validate:"max=255"`
}

// UploadHandler 上传歌曲文件和封面，可选地加入已有歌单或新建歌单
// Expected multipart form fields:
// - songFile: the audio file
// - songCover: cover image (optional)
// - title, artist, genre
// - playlistId: existing playlist, or newPlaylistName (+ playlistCover)
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "Storage not configured")
		return
	}

	if h.cfg.MaxUploadSizeBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSizeBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	form := uploadForm{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Artist:          strings.TrimSpace(r.FormValue("artist")),
		Genre:           strings.TrimSpace(r.FormValue("genre")),
		PlaylistID:      strings.TrimSpace(r.FormValue("playlistId")),
		NewPlaylistName: strings.TrimSpace(r.FormValue("newPlaylistName")),
	}
	if err := ValidateStruct(&form); err != nil {
		writeErr(w, err)
		return
	}

	songFile, songHeader, err := r.FormFile("songFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "songFile is required")
		return
	}
	defer songFile.Close()

	var existing *model.Playlist
	if form.PlaylistID != "" && form.PlaylistID != "new" {
		existing, err = h.playlists.GetWithTracks(ctx, form.PlaylistID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Playlist not found")
				return
			}
			writeErr(w, err)
			return
		}
	}

	var uploaded []string
	rollback := func() {
		for _, url := range uploaded {
			if err := h.media.Delete(context.Background(), url); err != nil {
				logger.Warn("failed to remove orphaned object", logger.String("url", url), logger.ErrorField(err))
			}
		}
	}

	songURL, err := h.media.Upload(ctx, storage.FolderSongs, songHeader.Filename, songFile, songHeader.Size, contentTypeOf(songHeader))
	if err != nil {
		writeErr(w, err)
		return
	}
	uploaded = append(uploaded, songURL)

	track := model.NewTrack(form.Title, form.Artist, form.Genre, songURL)
	if coverURL, ok, err := h.uploadOptional(ctx, r, "songCover", storage.FolderSongCovers); err != nil {
		rollback()
		writeErr(w, err)
		return
	} else if ok {
		track.CoverImage = coverURL
		uploaded = append(uploaded, coverURL)
	}

	if err := h.tracks.Create(ctx, track); err != nil {
		rollback()
		writeErr(w, err)
		return
	}

	var playlist *model.Playlist
	switch {
	case existing != nil:
		playlist = existing
	case form.NewPlaylistName != "":
		coverURL, _, err := h.uploadOptional(ctx, r, "playlistCover", storage.FolderPlaylistCovers)
		if err != nil {
			writeErr(w, err)
			return
		}
		playlist = model.NewPlaylist(form.NewPlaylistName, coverURL)
		if err := h.playlists.Create(ctx, playlist); err != nil {
			writeErr(w, err)
			return
		}
	}
	if playlist != nil {
		if err := h.playlists.AddTrack(ctx, playlist.ID, track.ID); err != nil {
			writeErr(w, err)
			return
		}
		if full, err := h.playlists.GetWithTracks(ctx, playlist.ID); err == nil {
			playlist = full
		}
	}

	logger.Info("song uploaded",
		logger.String("id", track.ID),
		logger.String("title", track.Title))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"song":     track,
		"playlist": playlist,
	})
}

// uploadOptional stores the named form file when present.
func (h *APIHandler) uploadOptional(ctx context.Context, r *http.Request, field, folder string) (string, bool, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", false, nil
		}
		return "", false, &ValidationError{Message: field + " is invalid"}
	}
	defer file.Close()
	url, err := h.media.Upload(ctx, folder, header.Filename, file, header.Size, contentTypeOf(header))
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func contentTypeOf(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func nonNilTracks(tracks []model.Track) []model.Track {
	if tracks == nil {
		return []model.Track{}
	}
	return tracks
}
