package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 注册所有路由. CORS wraps the router so preflight requests never reach route matching.
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// 歌曲
	api.HandleFunc("/songs/all", h.ListSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs/search", h.SearchSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs/delete", h.DeleteSongHandler).Methods(http.MethodDelete)
	api.HandleFunc("/upload", h.UploadHandler).Methods(http.MethodPost)

	// 歌单
	api.HandleFunc("/playlists", h.ListPlaylistsHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlist/{id}", h.GetPlaylistHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlist/{id}", h.UpdatePlaylistHandler).Methods(http.MethodPut)

	// 推荐与统计
	api.HandleFunc("/recommendations", h.GetRecommendationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/recommendations", h.RecordInteractionHandler).Methods(http.MethodPost)
	api.HandleFunc("/analytics", h.AnalyticsHandler).Methods(http.MethodGet)

	api.HandleFunc("/auth/unlock", h.UnlockHandler).Methods(http.MethodPost)

	// 播放会话
	sessions := api.PathPrefix("/player/sessions").Subrouter()
	sessions.HandleFunc("", h.CreateSessionHandler).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}", h.GetSessionHandler).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", h.CloseSessionHandler).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/queue", h.LoadQueueHandler).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/queue/items", h.EnqueueHandler).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/queue/items/{index:[0-9]+}", h.RemoveFromQueueHandler).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/queue/move", h.MoveInQueueHandler).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/policy", h.SetPolicyHandler).Methods(http.MethodPut)
	sessions.HandleFunc("/{id}/sleep", h.StartSleepHandler).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/sleep", h.CancelSleepHandler).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/{op:[a-z]+}", h.TransportHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/player/{id}", h.MediaSessionHandler).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return corsMiddleware(router)
}
