package player

import (
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"Musio/logger"
	"Musio/metrics"
	"Musio/model"

	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds how many shuffled steps Retreat can walk back.
const DefaultHistoryLimit = 100

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithPublisher sets where NowPlaying updates go.
func WithPublisher(p Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithOnChange registers a hook that receives the session state after every change.
// The hook runs outside the session lock and may call back into the session.
func WithOnChange(fn func(State)) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithAfterFunc replaces time.AfterFunc for the sleep timer.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Session) { s.afterFunc = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithHistoryLimit bounds the shuffle history. Values below 1 disable history.
func WithHistoryLimit(n int) Option {
	return func(s *Session) { s.historyLimit = n }
}

// State is a copy of a session's observable state.
type State struct {
	SessionID             string        `json:"sessionId"`
	Items                 []model.Track `json:"items"`
	Cursor                int           `json:"cursor"`
	Current               *model.Track  `json:"current,omitempty"`
	Playing               bool          `json:"playing"`
	Policy                string        `json:"policy"`
	Looping               bool          `json:"looping"`
	Shuffling             bool          `json:"shuffling"`
	ShuffleRemaining      int           `json:"shuffleRemaining"`
	HistoryDepth          int           `json:"historyDepth"`
	SleepDeadline         *time.Time    `json:"sleepDeadline,omitempty"`
	SleepRemainingMinutes int           `json:"sleepRemainingMinutes,omitempty"`
}

// NowPlaying derives the media-surface record from the state.
func (st State) NowPlaying() NowPlaying {
	np := NowPlaying{
		SessionID: st.SessionID,
		Playing:   st.Playing,
		Looping:   st.Looping,
		Shuffling: st.Shuffling,
	}
	if st.Current == nil {
		np.Actions = []string{}
		return np
	}
	np.TrackID = st.Current.ID
	np.Title = st.Current.Title
	np.Artist = st.Current.ArtistOrDefault()
	np.Album = st.Current.Album
	np.ArtworkURL = st.Current.CoverOrDefault()
	if st.Playing {
		np.Actions = []string{ActionPause, ActionPrevious, ActionNext}
	} else {
		np.Actions = []string{ActionPlay, ActionPrevious, ActionNext}
	}
	return np
}

// Snapshot converts the state into its persisted form.
func (st State) Snapshot(now time.Time) model.QueueSnapshot {
	ids := make([]string, len(st.Items))
	for i, t := range st.Items {
		ids[i] = t.ID
	}
	return model.QueueSnapshot{
		SessionID: st.SessionID,
		TrackIDs:  ids,
		Cursor:    st.Cursor,
		Policy:    st.Policy,
		Playing:   st.Playing,
		UpdatedAt: now.Unix(),
	}
}

// Session is one player: a queue, a cursor, a transition policy and an optional sleep timer.
// All methods are safe for concurrent use. Invalid input is clamped or ignored.
type Session struct {
	id string

	mu           sync.Mutex
	items        []model.Track
	cursor       int
	playing      bool
	policy       TransitionPolicy
	shuffleOrder []int
	history      []int
	historyLimit int

	sleepTimer    Timer
	sleepGen      uint64
	sleepDeadline time.Time

	rng       *rand.Rand
	publisher Publisher
	onChange  func(State)
	afterFunc AfterFunc
	now       func() time.Time
}

// NewSession creates an empty session. An empty id gets a generated one.
func NewSession(id string, opts ...Option) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{
		id:           id,
		cursor:       -1,
		historyLimit: DefaultHistoryLimit,
		publisher:    nopPublisher{},
		afterFunc:    stdAfterFunc,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Looping reports whether the queue wraps around.
func (s *Session) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy == Looping
}

// Shuffling reports whether Advance draws from the shuffle order.
func (s *Session) Shuffling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy == Shuffling
}

// Policy returns the current transition policy.
func (s *Session) Policy() TransitionPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// LoadQueue replaces the queue and starts playing at startIndex.
// startIndex is clamped into range. An empty queue stops playback.
func (s *Session) LoadQueue(tracks []model.Track, startIndex int) {
	s.update("load", func() {
		s.items = append([]model.Track(nil), tracks...)
		s.history = nil
		if len(s.items) == 0 {
			s.cursor = -1
			s.playing = false
			s.shuffleOrder = nil
			return
		}
		s.cursor = clamp(startIndex, 0, len(s.items)-1)
		s.playing = true
		s.resetShuffleLocked()
	})
}

// Advance moves to the next track according to the transition policy.
func (s *Session) Advance() {
	s.update("next", func() {
		if len(s.items) == 0 {
			return
		}
		s.advanceLocked()
	})
}

// OnTrackFinished is called by the playback surface when the current track ends.
// It advances unless playback was paused or the end of a non-looping queue was reached.
func (s *Session) OnTrackFinished() {
	s.update("finished", func() {
		if len(s.items) == 0 || !s.playing {
			return
		}
		if s.policy == Sequential && s.cursor == len(s.items)-1 {
			s.playing = false
			return
		}
		s.advanceLocked()
	})
}

// Retreat moves to the previous track. Under shuffle it walks back through
// the shuffle history, falling back to a random track when the history is empty.
func (s *Session) Retreat() {
	s.update("previous", func() {
		n := len(s.items)
		if n == 0 {
			return
		}
		s.playing = true

		if s.policy == Shuffling {
			if k := len(s.history); k > 0 {
				prev := s.history[k-1]
				s.history = s.history[:k-1]
				s.shuffleOrder = without(s.shuffleOrder, prev)
				// the track we leave has not been heard through, give it back
				if prev != s.cursor && !slices.Contains(s.shuffleOrder, s.cursor) {
					s.shuffleOrder = append([]int{s.cursor}, s.shuffleOrder...)
				}
				s.cursor = prev
				return
			}
			s.cursor = s.rng.Intn(n)
			s.shuffleOrder = without(s.shuffleOrder, s.cursor)
			return
		}

		switch {
		case s.cursor-1 >= 0:
			s.cursor--
		case s.policy == Looping:
			s.cursor = n - 1
		}
	})
}

// Play resumes playback of the current track.
func (s *Session) Play() {
	s.update("play", func() {
		if len(s.items) > 0 {
			s.playing = true
		}
	})
}

// Pause stops playback without moving the cursor.
func (s *Session) Pause() {
	s.update("pause", func() {
		s.playing = false
	})
}

// ToggleShuffle flips shuffling. Turning it on turns looping off.
func (s *Session) ToggleShuffle() {
	s.update("shuffle", func() {
		s.history = nil
		if s.policy == Shuffling {
			s.policy = Sequential
			s.shuffleOrder = nil
			return
		}
		s.policy = Shuffling
		s.resetShuffleLocked()
	})
}

// ToggleLoop flips looping. Turning it on turns shuffling off.
func (s *Session) ToggleLoop() {
	s.update("loop", func() {
		if s.policy == Looping {
			s.policy = Sequential
			return
		}
		s.policy = Looping
		s.shuffleOrder = nil
		s.history = nil
	})
}

// SetPolicy switches directly to p.
func (s *Session) SetPolicy(p TransitionPolicy) {
	s.update("policy", func() {
		if p == s.policy {
			return
		}
		s.policy = p
		s.history = nil
		s.shuffleOrder = nil
		s.resetShuffleLocked()
	})
}

// Enqueue appends tracks to the queue. Appending to an empty queue selects
// the first new track without starting playback.
func (s *Session) Enqueue(tracks ...model.Track) {
	if len(tracks) == 0 {
		return
	}
	s.update("enqueue", func() {
		start := len(s.items)
		s.items = append(s.items, tracks...)
		if s.cursor < 0 {
			s.cursor = 0
			s.resetShuffleLocked()
			return
		}
		if s.policy != Shuffling {
			return
		}
		for i := start; i < len(s.items); i++ {
			pos := s.rng.Intn(len(s.shuffleOrder) + 1)
			s.shuffleOrder = append(s.shuffleOrder, 0)
			copy(s.shuffleOrder[pos+1:], s.shuffleOrder[pos:])
			s.shuffleOrder[pos] = i
		}
	})
}

// RemoveAt removes the track at index i. Out-of-range indices are ignored.
// Removing the current track selects the one that slides into its place.
func (s *Session) RemoveAt(i int) {
	s.update("remove", func() {
		n := len(s.items)
		if i < 0 || i >= n {
			return
		}
		mapping := make([]int, n)
		for j := range mapping {
			switch {
			case j < i:
				mapping[j] = j
			case j == i:
				mapping[j] = -1
			default:
				mapping[j] = j - 1
			}
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)

		cursor := s.cursor
		if cursor == i {
			cursor = min(i, len(s.items)-1)
		} else {
			cursor = mapping[cursor]
		}
		s.remapLocked(mapping, cursor)
		if len(s.items) == 0 {
			s.playing = false
		}
	})
}

// Move relocates the track at from to position to. Out-of-range indices are ignored.
func (s *Session) Move(from, to int) {
	s.update("move", func() {
		n := len(s.items)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return
		}
		order := make([]int, 0, n)
		for j := 0; j < n; j++ {
			if j != from {
				order = append(order, j)
			}
		}
		order = append(order[:to], append([]int{from}, order[to:]...)...)

		mapping := make([]int, n)
		items := make([]model.Track, n)
		for newIdx, oldIdx := range order {
			mapping[oldIdx] = newIdx
			items[newIdx] = s.items[oldIdx]
		}
		s.items = items
		s.remapLocked(mapping, mapping[s.cursor])
	})
}

// StartSleepTimer stops playback after minutes. Any running timer is replaced.
// minutes below 1 is treated as 1. It returns the deadline.
func (s *Session) StartSleepTimer(minutes int) time.Time {
	if minutes < 1 {
		minutes = 1
	}
	d := time.Duration(minutes) * time.Minute

	var deadline time.Time
	s.update("sleep_start", func() {
		s.stopSleepLocked()
		s.sleepGen++
		gen := s.sleepGen
		s.sleepDeadline = s.now().Add(d)
		s.sleepTimer = s.afterFunc(d, func() { s.sleepFired(gen) })
		deadline = s.sleepDeadline
	})
	return deadline
}

// CancelSleepTimer clears the sleep timer. It reports whether one was running.
func (s *Session) CancelSleepTimer() bool {
	var cancelled bool
	s.update("sleep_cancel", func() {
		cancelled = s.stopSleepLocked()
	})
	return cancelled
}

// Close releases the sleep timer.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopSleepLocked()
	s.mu.Unlock()
}

func (s *Session) sleepFired(gen uint64) {
	s.update("sleep_fired", func() {
		if gen != s.sleepGen || s.sleepTimer == nil {
			return
		}
		s.sleepTimer = nil
		s.sleepDeadline = time.Time{}
		s.playing = false
		metrics.SleepTimersFired.Inc()
		logger.Info("sleep timer stopped playback", logger.String("session", s.id))
	})
}

// stopSleepLocked reports whether a timer was pending.
func (s *Session) stopSleepLocked() bool {
	if s.sleepTimer == nil {
		return false
	}
	s.sleepTimer.Stop()
	s.sleepTimer = nil
	s.sleepGen++
	s.sleepDeadline = time.Time{}
	return true
}

func (s *Session) advanceLocked() {
	s.playing = true
	n := len(s.items)

	if s.policy == Shuffling {
		if len(s.shuffleOrder) == 0 {
			s.shuffleOrder = shuffledIndices(n, s.cursor, s.rng)
		}
		if len(s.shuffleOrder) == 0 {
			return
		}
		s.pushHistoryLocked(s.cursor)
		s.cursor = s.shuffleOrder[0]
		s.shuffleOrder = s.shuffleOrder[1:]
		return
	}

	switch {
	case s.cursor+1 < n:
		s.cursor++
	case s.policy == Looping:
		s.cursor = 0
	}
}

func (s *Session) pushHistoryLocked(idx int) {
	if s.historyLimit < 1 {
		return
	}
	s.history = append(s.history, idx)
	if over := len(s.history) - s.historyLimit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

func (s *Session) resetShuffleLocked() {
	if s.policy != Shuffling || s.cursor < 0 {
		s.shuffleOrder = nil
		return
	}
	s.shuffleOrder = shuffledIndices(len(s.items), s.cursor, s.rng)
}

// remapLocked rewrites every stored index through mapping. A mapping of -1 drops the index.
func (s *Session) remapLocked(mapping []int, cursor int) {
	s.cursor = cursor
	if len(s.items) == 0 {
		s.cursor = -1
		s.shuffleOrder = nil
		s.history = nil
		return
	}
	order := s.shuffleOrder[:0]
	for _, idx := range s.shuffleOrder {
		if m := mapping[idx]; m >= 0 && m != cursor {
			order = append(order, m)
		}
	}
	s.shuffleOrder = order

	history := s.history[:0]
	for _, idx := range s.history {
		if m := mapping[idx]; m >= 0 {
			history = append(history, m)
		}
	}
	s.history = history
}

func (s *Session) stateLocked() State {
	st := State{
		SessionID:        s.id,
		Items:            append([]model.Track(nil), s.items...),
		Cursor:           s.cursor,
		Playing:          s.playing,
		Policy:           s.policy.String(),
		Looping:          s.policy == Looping,
		Shuffling:        s.policy == Shuffling,
		ShuffleRemaining: len(s.shuffleOrder),
		HistoryDepth:     len(s.history),
	}
	if st.Items == nil {
		st.Items = []model.Track{}
	}
	if s.cursor >= 0 && s.cursor < len(s.items) {
		cur := s.items[s.cursor]
		st.Current = &cur
	}
	if s.sleepTimer != nil {
		deadline := s.sleepDeadline
		st.SleepDeadline = &deadline
		st.SleepRemainingMinutes = int(math.Ceil(deadline.Sub(s.now()).Minutes()))
	}
	return st
}

// update applies fn under the lock and then notifies the publisher and hook outside it.
func (s *Session) update(op string, fn func()) {
	s.mu.Lock()
	fn()
	st := s.stateLocked()
	s.mu.Unlock()

	metrics.PlayerTransitions.WithLabelValues(op).Inc()
	s.notify(st)
}

func (s *Session) notify(st State) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("player notification panicked",
				logger.String("session", s.id),
				logger.Any("recover", r))
		}
	}()
	s.publisher.Publish(st.NowPlaying())
	if s.onChange != nil {
		s.onChange(st)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func without(order []int, idx int) []int {
	out := order[:0]
	for _, v := range order {
		if v != idx {
			out = append(out, v)
		}
	}
	return out
}
