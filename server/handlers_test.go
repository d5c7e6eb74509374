package server

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Musio/core/analytics"
	"Musio/core/player"
	"Musio/model"
	"Musio/storage"
)

type songsResponse struct {
	Success bool          `json:"success"`
	Songs   []model.Track `json:"songs"`
}

func TestListSongsNewestFirst(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/songs/all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body songsResponse
	decodeBody(t, rec, &body)
	if !body.Success || len(body.Songs) != 3 {
		t.Fatalf("body = %+v", body)
	}
	if body.Songs[0].ID != "t3" || body.Songs[2].ID != "t1" {
		t.Errorf("order = %s %s %s", body.Songs[0].ID, body.Songs[1].ID, body.Songs[2].ID)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestSearchSongs(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		query string
		want  []string
	}{
		{"miles", []string{"t2"}},
		{"PARANOID", []string{"t3"}},
		{"", nil},
		{"nothing-matches", nil},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, "/api/songs/search?query="+tt.query, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tt.query, rec.Code)
		}
		var body songsResponse
		decodeBody(t, rec, &body)
		if body.Songs == nil {
			t.Errorf("%q: songs must be an array, got null", tt.query)
		}
		if len(body.Songs) != len(tt.want) {
			t.Errorf("%q: got %d songs, want %d", tt.query, len(body.Songs), len(tt.want))
			continue
		}
		for i, id := range tt.want {
			if body.Songs[i].ID != id {
				t.Errorf("%q: songs[%d] = %s, want %s", tt.query, i, body.Songs[i].ID, id)
			}
		}
	}
}

func TestDeleteSongChecks(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{"no key", "/api/songs/delete?id=t1", http.StatusForbidden, "Invalid confirmation key"},
		{"wrong key", "/api/songs/delete?id=t1&key=nope", http.StatusForbidden, "Invalid confirmation key"},
		{"wrong key before missing id", "/api/songs/delete?key=nope", http.StatusForbidden, "Invalid confirmation key"},
		{"missing id", "/api/songs/delete?key=" + testKeyword, http.StatusBadRequest, "Song ID is required"},
		{"unknown song", "/api/songs/delete?id=missing&key=" + testKeyword, http.StatusNotFound, "Song not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodDelete, tt.target, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := errorOf(t, rec); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
	if len(f.media.deleted) != 0 {
		t.Errorf("rejected requests deleted objects: %v", f.media.deleted)
	}
}

func TestDeleteSongRemovesFilesAndMemberships(t *testing.T) {
	f := newFixture(t)
	if err := f.playlists.AddTrack(t.Context(), "p1", "t1"); err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, http.MethodDelete, "/api/songs/delete?id=t1&key="+testKeyword, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Success     bool              `json:"success"`
		DeletedSong map[string]string `json:"deletedSong"`
		Storage     []storageResult   `json:"storageDeletions"`
		Updated     int64             `json:"playlistsUpdated"`
	}
	decodeBody(t, rec, &body)
	if body.DeletedSong["title"] != "Blue Train" || body.Updated != 1 {
		t.Errorf("body = %+v", body)
	}
	if len(body.Storage) != 2 || body.Storage[0].Type != "song" || body.Storage[1].Type != "cover" {
		t.Errorf("storage = %+v", body.Storage)
	}
	if _, err := f.tracks.GetByID(t.Context(), "t1"); err == nil {
		t.Error("track still present")
	}
	p, _ := f.playlists.GetWithTracks(t.Context(), "p1")
	if len(p.Tracks) != 0 {
		t.Errorf("playlist still holds %d tracks", len(p.Tracks))
	}
}

func TestDeleteSongSkipsDefaultCoverAndToleratesStorageErrors(t *testing.T) {
	f := newFixture(t)
	f.media.deleteErr = errors.New("bucket gone")

	rec := f.do(t, http.MethodDelete, "/api/songs/delete?id=t2&key="+testKeyword, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Storage []storageResult `json:"storageDeletions"`
	}
	decodeBody(t, rec, &body)
	if len(body.Storage) != 1 {
		t.Fatalf("storage = %+v, default cover must be skipped", body.Storage)
	}
	if body.Storage[0].Success || body.Storage[0].Error != "bucket gone" {
		t.Errorf("storage[0] = %+v", body.Storage[0])
	}
	if _, err := f.tracks.GetByID(t.Context(), "t2"); err == nil {
		t.Error("track should be deleted even when storage fails")
	}
}

func TestUnlockTokenAuthorizesDelete(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/unlock", map[string]string{"keyword": testKeyword})
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock status = %d, body %s", rec.Code, rec.Body)
	}
	var unlocked struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	decodeBody(t, rec, &unlocked)
	if unlocked.Token == "" || unlocked.ExpiresAt == "" {
		t.Fatalf("unlock body = %s", rec.Body)
	}

	rec = f.do(t, http.MethodDelete, "/api/songs/delete?id=t3", nil, "Authorization", "Bearer "+unlocked.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodDelete, "/api/songs/delete?id=t2", nil, "Authorization", "Bearer forged")
	if rec.Code != http.StatusForbidden {
		t.Errorf("forged token status = %d", rec.Code)
	}
}

func TestUnlockRateLimited(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/auth/unlock", map[string]string{"keyword": "guess"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}
	rec := f.do(t, http.MethodPost, "/api/auth/unlock", map[string]string{"keyword": testKeyword})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	// other clients keep their own budget
	rec = f.do(t, http.MethodPost, "/api/auth/unlock", map[string]string{"keyword": testKeyword}, "X-Forwarded-For", "198.51.100.7")
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d", rec.Code)
	}
}

func TestUpdatePlaylist(t *testing.T) {
	f := newFixture(t)
	add := func(playlist, song, keyword string) *httptest.ResponseRecorder {
		return f.do(t, http.MethodPut, "/api/playlist/"+playlist, map[string]string{
			"action": "add_song", "songId": song, "keyword": keyword,
		})
	}

	rec := add("p1", "t2", testKeyword)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Playlist model.Playlist `json:"playlist"`
	}
	decodeBody(t, rec, &body)
	if len(body.Playlist.Tracks) != 1 || body.Playlist.Tracks[0].ID != "t2" {
		t.Errorf("playlist = %+v", body.Playlist)
	}

	tests := []struct {
		name       string
		rec        *httptest.ResponseRecorder
		wantStatus int
		wantError  string
	}{
		{"duplicate", add("p1", "t2", testKeyword), http.StatusConflict, "Song already in playlist"},
		{"wrong key", add("p1", "t3", "nope"), http.StatusForbidden, "Invalid confirmation key"},
		{"unknown song", add("p1", "missing", testKeyword), http.StatusNotFound, "Song not found"},
		{"unknown playlist", add("missing", "t3", testKeyword), http.StatusNotFound, "Playlist not found"},
		{"unknown action", f.do(t, http.MethodPut, "/api/playlist/p1", map[string]string{
			"action": "remove_song", "songId": "t2", "keyword": testKeyword,
		}), http.StatusBadRequest, "action must be one of: add_song"},
	}
	for _, tt := range tests {
		if tt.rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, tt.rec.Code, tt.wantStatus)
			continue
		}
		if got := errorOf(t, tt.rec); got != tt.wantError {
			t.Errorf("%s: error = %q, want %q", tt.name, got, tt.wantError)
		}
	}
}

func TestGetPlaylists(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/playlists", nil)
	var list struct {
		Playlists []model.Playlist `json:"playlists"`
	}
	decodeBody(t, rec, &list)
	if len(list.Playlists) != 1 || list.Playlists[0].Name != "Evening" {
		t.Errorf("playlists = %+v", list.Playlists)
	}

	rec = f.do(t, http.MethodGet, "/api/playlist/missing", nil)
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Playlist not found" {
		t.Errorf("missing playlist: %d %s", rec.Code, rec.Body)
	}
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantType   string
		wantServed string
	}{
		{"trending", "type=trending", http.StatusOK, "trending", "trending"},
		{"genre", "type=genre&genre=jazz", http.StatusOK, "genre", "genre"},
		{"genre without genre falls back", "type=genre", http.StatusOK, "genre", "default"},
		{"similar", "type=similar&basedOn=t1", http.StatusOK, "similar", "similar"},
		{"unknown seed", "type=similar&basedOn=missing", http.StatusNotFound, "", ""},
		{"limit too large", "limit=99", http.StatusBadRequest, "", ""},
		{"bad type", "type=random", http.StatusBadRequest, "", ""},
		{"garbage limit ignored", "limit=abc", http.StatusOK, "similar", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/recommendations?"+tt.query, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Success         bool   `json:"success"`
				Type            string `json:"type"`
				ResolvedType    string `json:"resolvedType"`
				Recommendations []struct {
					ID    string  `json:"id"`
					Score float64 `json:"recommendationScore"`
				} `json:"recommendations"`
			}
			decodeBody(t, rec, &body)
			if !body.Success || body.Type != tt.wantType || body.ResolvedType != tt.wantServed {
				t.Errorf("success=%v type=%q resolvedType=%q, want %q %q",
					body.Success, body.Type, body.ResolvedType, tt.wantType, tt.wantServed)
			}
			for _, c := range body.Recommendations {
				if c.Score <= 0.2 {
					t.Errorf("%s scored %v", c.ID, c.Score)
				}
			}
		})
	}
}

func TestRecordInteraction(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/recommendations", map[string]string{"songId": "t1"})
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "Missing required parameters" {
		t.Errorf("missing action: %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodPost, "/api/recommendations", map[string]string{"songId": "missing", "action": "play"})
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Song not found" {
		t.Errorf("unknown song: %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, "/api/recommendations", map[string]string{"songId": "t1", "action": "play"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &body)
	if want := `Interaction recorded: play on "Blue Train"`; body.Message != want {
		t.Errorf("message = %q, want %q", body.Message, want)
	}
	f.do(t, http.MethodPost, "/api/recommendations", map[string]string{"songId": "t1", "action": "like", "userId": "u1"})
	f.do(t, http.MethodPost, "/api/recommendations", map[string]string{"songId": "t1", "action": "skip"})

	track, _ := f.tracks.GetByID(t.Context(), "t1")
	if track.PlayCount != 1 || track.Likes != 1 {
		t.Errorf("playCount=%d likes=%d", track.PlayCount, track.Likes)
	}
	items, _ := f.interactions.ListByTrack(t.Context(), "t1", 0)
	if len(items) != 3 || items[0].UserID != model.AnonymousUser || items[1].UserID != "u1" {
		t.Errorf("interactions = %+v", items)
	}
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/analytics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var s analytics.Summary
	decodeBody(t, rec, &s)
	if s.TotalSongs != 3 || s.TotalPlaylists != 1 || s.TotalArtists != 3 {
		t.Errorf("summary = %+v", s)
	}
}

func TestUploadCreatesTrackAndPlaylist(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title":           "Road Song",
		"artist":          "Wes Montgomery",
		"genre":           "Jazz",
		"newPlaylistName": "Road Trip",
	} {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("songFile", "road.mp3")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("ID3 fake audio"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var body struct {
		Song     model.Track    `json:"song"`
		Playlist model.Playlist `json:"playlist"`
	}
	decodeBody(t, rec, &body)
	if body.Song.URL != "http://media/"+storage.FolderSongs+"/road.mp3" || body.Song.Genre != "Jazz" {
		t.Errorf("song = %+v", body.Song)
	}
	if body.Playlist.Name != "Road Trip" || body.Playlist.CoverImage != model.DefaultPlaylistCover {
		t.Errorf("playlist = %+v", body.Playlist)
	}
	if len(body.Playlist.Tracks) != 1 || body.Playlist.Tracks[0].ID != body.Song.ID {
		t.Errorf("playlist tracks = %+v", body.Playlist.Tracks)
	}
	if n, _ := f.tracks.Count(t.Context()); n != 4 {
		t.Errorf("track count = %d", n)
	}
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t)
	post := func(fields map[string]string, withFile bool) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			mw.WriteField(k, v)
		}
		if withFile {
			fw, _ := mw.CreateFormFile("songFile", "a.mp3")
			fw.Write([]byte("x"))
		}
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name       string
		rec        *httptest.ResponseRecorder
		wantStatus int
		wantError  string
	}{
		{"no title", post(map[string]string{}, true), http.StatusBadRequest, "title is required"},
		{"no file", post(map[string]string{"title": "A"}, false), http.StatusBadRequest, "songFile is required"},
		{"unknown playlist", post(map[string]string{"title": "A", "playlistId": "missing"}, true), http.StatusNotFound, "Playlist not found"},
	}
	for _, tt := range tests {
		if tt.rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, tt.rec.Code, tt.wantStatus)
			continue
		}
		if got := errorOf(t, tt.rec); got != tt.wantError {
			t.Errorf("%s: error = %q, want %q", tt.name, got, tt.wantError)
		}
	}
	if len(f.media.objects) != 0 {
		t.Errorf("rejected uploads stored objects: %v", f.media.objects)
	}
}

func TestUploadStorageUnavailable(t *testing.T) {
	f := newFixture(t)
	f.media.uploadErr = storage.ErrUnavailable

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "A")
	fw, _ := mw.CreateFormFile("songFile", "a.mp3")
	fw.Write([]byte("x"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestPlayerSessionFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/player/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created sessionResponse
	decodeBody(t, rec, &created)
	id := created.Session.SessionID
	base := "/api/player/sessions/" + id

	state := func(rec *httptest.ResponseRecorder) player.State {
		t.Helper()
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var body sessionResponse
		decodeBody(t, rec, &body)
		return body.Session
	}

	st := state(f.do(t, http.MethodPost, base+"/queue", map[string]interface{}{"trackIds": []string{"t1", "t2", "t3"}}))
	if st.Cursor != 0 || !st.Playing || st.Current == nil || st.Current.ID != "t1" {
		t.Fatalf("after load: %+v", st)
	}
	if st = state(f.do(t, http.MethodPost, base+"/next", nil)); st.Current.ID != "t2" {
		t.Errorf("after next: current %s", st.Current.ID)
	}
	if st = state(f.do(t, http.MethodPost, base+"/previous", nil)); st.Current.ID != "t1" {
		t.Errorf("after previous: current %s", st.Current.ID)
	}
	if st = state(f.do(t, http.MethodPost, base+"/pause", nil)); st.Playing {
		t.Error("still playing after pause")
	}
	if st = state(f.do(t, http.MethodPost, base+"/loop", nil)); st.Policy != "looping" || !st.Looping {
		t.Errorf("after loop: policy %s", st.Policy)
	}
	if st = state(f.do(t, http.MethodPut, base+"/policy", map[string]string{"policy": "sequential"})); st.Policy != "sequential" {
		t.Errorf("after policy: %s", st.Policy)
	}
	if st = state(f.do(t, http.MethodPost, base+"/queue/move", map[string]int{"from": 2, "to": 0})); st.Items[0].ID != "t3" || st.Current.ID != "t1" {
		t.Errorf("after move: items[0]=%s current=%s", st.Items[0].ID, st.Current.ID)
	}
	if st = state(f.do(t, http.MethodDelete, base+"/queue/items/0", nil)); len(st.Items) != 2 || st.Current.ID != "t1" {
		t.Errorf("after remove: %d items, current %s", len(st.Items), st.Current.ID)
	}
	if st = state(f.do(t, http.MethodPost, base+"/queue/items", map[string]interface{}{"trackIds": []string{"t3"}})); len(st.Items) != 3 {
		t.Errorf("after enqueue: %d items", len(st.Items))
	}
	if st = state(f.do(t, http.MethodPost, base+"/sleep", map[string]int{"minutes": 30})); st.SleepDeadline == nil {
		t.Error("sleep deadline not set")
	}
	if st = state(f.do(t, http.MethodDelete, base+"/sleep", nil)); st.SleepDeadline != nil {
		t.Error("sleep deadline not cleared")
	}

	if rec := f.do(t, http.MethodDelete, base, nil); rec.Code != http.StatusOK {
		t.Errorf("close status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("closed session status = %d", rec.Code)
	}
}

func TestPlayerRejections(t *testing.T) {
	f := newFixture(t)
	id := f.players.Create().ID()
	base := "/api/player/sessions/" + id

	tests := []struct {
		name       string
		method     string
		target     string
		body       interface{}
		wantStatus int
	}{
		{"unknown session", http.MethodGet, "/api/player/sessions/missing", nil, http.StatusNotFound},
		{"unknown op", http.MethodPost, base + "/rewind", nil, http.StatusNotFound},
		{"empty load", http.MethodPost, base + "/queue", map[string]interface{}{}, http.StatusBadRequest},
		{"unknown playlist", http.MethodPost, base + "/queue", map[string]string{"playlistId": "missing"}, http.StatusNotFound},
		{"bad policy", http.MethodPut, base + "/policy", map[string]string{"policy": "random"}, http.StatusBadRequest},
		{"zero sleep", http.MethodPost, base + "/sleep", map[string]int{"minutes": 0}, http.StatusBadRequest},
		{"move without to", http.MethodPost, base + "/queue/move", map[string]int{"from": 1}, http.StatusBadRequest},
		{"close unknown", http.MethodDelete, "/api/player/sessions/missing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestLoadQueueFromPlaylist(t *testing.T) {
	f := newFixture(t)
	f.playlists.AddTrack(t.Context(), "p1", "t2")
	f.playlists.AddTrack(t.Context(), "p1", "t3")
	s := f.players.Create()

	rec := f.do(t, http.MethodPost, "/api/player/sessions/"+s.ID()+"/queue", map[string]interface{}{"playlistId": "p1", "startIndex": 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	st := s.State()
	if len(st.Items) != 2 || st.Cursor != 1 || st.Current.ID != "t3" {
		t.Errorf("state = %+v", st)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodOptions, "/api/songs/delete", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestMediaSessionUnavailableWithoutHub(t *testing.T) {
	f := newFixture(t)
	id := f.players.Create().ID()
	rec := f.do(t, http.MethodGet, "/ws/player/"+id, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}
