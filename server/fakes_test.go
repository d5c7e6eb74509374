package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"Musio/config"
	"Musio/core/auth"
	"Musio/core/player"
	"Musio/model"
	"Musio/repository"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
)

const testKeyword = "open-sesame"

type memTracks struct {
	mu     sync.Mutex
	tracks map[string]*model.Track
}

func newMemTracks(tracks ...model.Track) *memTracks {
	m := &memTracks{tracks: make(map[string]*model.Track)}
	for i := range tracks {
		t := tracks[i]
		m.tracks[t.ID] = &t
	}
	return m
}

func (m *memTracks) sorted() []model.Track {
	out := make([]model.Track, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memTracks) ListRecent(_ context.Context, limit int) ([]model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTracks) ListAll(_ context.Context) ([]model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *memTracks) GetByID(_ context.Context, id string) (*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTracks) GetByIDs(_ context.Context, ids []string) ([]model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.tracks[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTracks) Search(_ context.Context, query string, limit int) ([]model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []model.Track
	for _, t := range m.sorted() {
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Artist), q) {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTracks) FindByTitle(_ context.Context, title string) (*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.Title == title {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTracks) Create(_ context.Context, track *model.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}
	cp := *track
	m.tracks[track.ID] = &cp
	return nil
}

func (m *memTracks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.tracks, id)
	return nil
}

func (m *memTracks) IncrementPlayCount(_ context.Context, id string) error {
	return m.bump(id, func(t *model.Track) { t.PlayCount++ })
}

func (m *memTracks) IncrementLikes(_ context.Context, id string) error {
	return m.bump(id, func(t *model.Track) { t.Likes++ })
}

func (m *memTracks) bump(id string, fn func(*model.Track)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(t)
	return nil
}

func (m *memTracks) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tracks)), nil
}

type memPlaylists struct {
	mu        sync.Mutex
	tracks    *memTracks
	playlists map[string]*model.Playlist
	members   map[string][]string
}

func newMemPlaylists(tracks *memTracks, playlists ...model.Playlist) *memPlaylists {
	m := &memPlaylists{
		tracks:    tracks,
		playlists: make(map[string]*model.Playlist),
		members:   make(map[string][]string),
	}
	for i := range playlists {
		p := playlists[i]
		m.playlists[p.ID] = &p
	}
	return m
}

func (m *memPlaylists) withTracks(p *model.Playlist) model.Playlist {
	out := *p
	out.Tracks, _ = m.tracks.GetByIDs(context.Background(), m.members[p.ID])
	return out
}

func (m *memPlaylists) ListWithTracks(_ context.Context) ([]model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Playlist, 0, len(m.playlists))
	for _, p := range m.playlists {
		out = append(out, m.withTracks(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memPlaylists) GetWithTracks(_ context.Context, id string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := m.withTracks(p)
	return &out, nil
}

func (m *memPlaylists) FindByName(_ context.Context, name string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.playlists {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPlaylists) Create(_ context.Context, playlist *model.Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *playlist
	m.playlists[playlist.ID] = &cp
	return nil
}

func (m *memPlaylists) AddTrack(_ context.Context, playlistID, trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[playlistID]; !ok {
		return repository.ErrNotFound
	}
	for _, id := range m.members[playlistID] {
		if id == trackID {
			return repository.ErrDuplicate
		}
	}
	m.members[playlistID] = append(m.members[playlistID], trackID)
	return nil
}

func (m *memPlaylists) RemoveTrackEverywhere(_ context.Context, trackID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for pid, ids := range m.members {
		kept := ids[:0]
		for _, id := range ids {
			if id != trackID {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(ids) {
			n++
		}
		m.members[pid] = kept
	}
	return n, nil
}

func (m *memPlaylists) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.playlists)), nil
}

type memInteractions struct {
	mu    sync.Mutex
	items []model.Interaction
}

func (m *memInteractions) Create(_ context.Context, interaction *model.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interaction.UserID == "" {
		interaction.UserID = model.AnonymousUser
	}
	m.items = append(m.items, *interaction)
	return nil
}

func (m *memInteractions) ListByTrack(_ context.Context, trackID string, limit int) ([]model.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Interaction
	for _, it := range m.items {
		if it.TrackID == trackID {
			out = append(out, it)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memMedia stores objects in memory under http://media/<folder>/<filename>.
type memMedia struct {
	mu        sync.Mutex
	objects   map[string]string
	deleted   []string
	uploadErr error
	deleteErr error
}

func newMemMedia() *memMedia {
	return &memMedia{objects: make(map[string]string)}
}

func (m *memMedia) Upload(_ context.Context, folder, filename string, r io.Reader, _ int64, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := fmt.Sprintf("http://media/%s/%s", folder, filename)
	m.objects[url] = contentType
	return url, nil
}

func (m *memMedia) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, url)
	return nil
}

type fixture struct {
	tracks       *memTracks
	playlists    *memPlaylists
	interactions *memInteractions
	media        *memMedia
	guard        *auth.Guard
	players      *player.Manager
	handler      http.Handler
}

func sampleTracks() []model.Track {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []model.Track{
		{ID: "t1", Title: "Blue Train", Artist: "John Coltrane", Genre: "Jazz", URL: "http://media/songs/t1.mp3", CoverImage: "http://media/song_covers/t1.png", CreatedAt: base},
		{ID: "t2", Title: "So What", Artist: "Miles Davis", Genre: "Jazz", URL: "http://media/songs/t2.mp3", CoverImage: model.DefaultCoverImage, CreatedAt: base.Add(time.Hour)},
		{ID: "t3", Title: "Paranoid Android", Artist: "Radiohead", Genre: "Rock", URL: "http://media/songs/t3.mp3", CreatedAt: base.Add(2 * time.Hour)},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tracks := newMemTracks(sampleTracks()...)
	playlists := newMemPlaylists(tracks, model.Playlist{ID: "p1", Name: "Evening", CoverImage: model.DefaultPlaylistCover})
	guard, err := auth.NewGuard(testKeyword, "test-secret", time.Hour,
		auth.WithBcryptCost(bcrypt.MinCost),
		auth.WithRateLimiter(auth.NewRateLimiter(3, time.Minute)))
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	f := &fixture{
		tracks:       tracks,
		playlists:    playlists,
		interactions: &memInteractions{},
		media:        newMemMedia(),
		guard:        guard,
		players:      player.NewManager(),
	}
	f.handler = NewRouter(NewAPIHandler(Deps{
		Tracks:       f.tracks,
		Playlists:    f.playlists,
		Interactions: f.interactions,
		Players:      f.players,
		Media:        f.media,
		Guard:        f.guard,
		Config:       &config.Config{RecommendLimit: 10, MaxUploadSizeBytes: 10 << 20},
	}))
	t.Cleanup(f.players.CloseAll)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	decodeBody(t, rec, &body)
	return body.Error
}
