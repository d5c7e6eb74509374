package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"Musio/logger"
	"Musio/metrics"
	"Musio/model"
)

// ErrSessionNotFound is returned when a session is neither live nor restorable.
var ErrSessionNotFound = errors.New("player session not found")

// SnapshotStore persists queue snapshots so sessions survive a restart.
type SnapshotStore interface {
	SaveQueue(ctx context.Context, snap model.QueueSnapshot) error
	LoadQueue(ctx context.Context, sessionID string) (*model.QueueSnapshot, error)
	DeleteQueue(ctx context.Context, sessionID string) error
}

// TrackResolver turns stored track ids back into tracks.
type TrackResolver interface {
	GetByIDs(ctx context.Context, ids []string) ([]model.Track, error)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSnapshots enables snapshot persistence and restore.
func WithSnapshots(store SnapshotStore, tracks TrackResolver) ManagerOption {
	return func(m *Manager) {
		m.store = store
		m.tracks = tracks
	}
}

// WithSessionOptions applies opts to every session the manager creates.
func WithSessionOptions(opts ...Option) ManagerOption {
	return func(m *Manager) { m.sessionOpts = append(m.sessionOpts, opts...) }
}

// WithSaveTimeout bounds a single snapshot write.
func WithSaveTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.saveTimeout = d }
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	sessionOpts []Option
	store       SnapshotStore
	tracks      TrackResolver
	saveTimeout time.Duration
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		saveTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new empty session.
func (m *Manager) Create() *Session {
	return m.add(NewSession("", m.options()...))
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Resume returns the live session or rebuilds it from its snapshot.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.Get(id); ok {
		return s, nil
	}
	if m.store == nil || m.tracks == nil {
		return nil, ErrSessionNotFound
	}

	snap, err := m.store.LoadQueue(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrSessionNotFound
	}
	tracks, err := m.tracks.GetByIDs(ctx, snap.TrackIDs)
	if err != nil {
		return nil, err
	}

	s := NewSession(id, m.options()...)
	policy, _ := ParsePolicy(snap.Policy)
	s.restore(tracks, snap.Cursor, policy, snap.Playing)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = s
	metrics.PlayerSessionsActive.Inc()
	logger.Info("player session restored",
		logger.String("session", id),
		logger.Int("tracks", len(tracks)))
	return s, nil
}

// Close stops and forgets a session. It reports whether the session was live.
func (m *Manager) Close(ctx context.Context, id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
		metrics.PlayerSessionsActive.Dec()
	}
	if m.store != nil {
		if err := m.store.DeleteQueue(ctx, id); err != nil {
			logger.Warn("failed to delete queue snapshot", logger.String("session", id), logger.ErrorField(err))
		}
	}
	return ok
}

// CloseAll stops every session. Snapshots are kept.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.PlayerSessionsActive.Dec()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) add(s *Session) *Session {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	metrics.PlayerSessionsActive.Inc()
	return s
}

func (m *Manager) options() []Option {
	opts := append([]Option(nil), m.sessionOpts...)
	if m.store != nil {
		opts = append(opts, WithOnChange(m.save))
	}
	return opts
}

func (m *Manager) save(st State) {
	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()
	if err := m.store.SaveQueue(ctx, st.Snapshot(time.Now())); err != nil {
		logger.Warn("failed to save queue snapshot",
			logger.String("session", st.SessionID),
			logger.ErrorField(err))
	}
}

// restore loads a snapshot without notifying anyone.
func (s *Session) restore(tracks []model.Track, cursor int, policy TransitionPolicy, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]model.Track(nil), tracks...)
	s.policy = policy
	s.history = nil
	if len(s.items) == 0 {
		s.cursor = -1
		s.playing = false
		s.shuffleOrder = nil
		return
	}
	s.cursor = clamp(cursor, 0, len(s.items)-1)
	s.playing = playing
	s.resetShuffleLocked()
}
