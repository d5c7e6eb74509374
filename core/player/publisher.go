package player

// Transport actions a media-session surface may bind to.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionPrevious = "previoustrack"
	ActionNext     = "nexttrack"
)

// NowPlaying is what the platform media surface shows for a session.
type NowPlaying struct {
	SessionID  string   `json:"sessionId"`
	TrackID    string   `json:"trackId,omitempty"`
	Title      string   `json:"title,omitempty"`
	Artist     string   `json:"artist,omitempty"`
	Album      string   `json:"album,omitempty"`
	ArtworkURL string   `json:"artworkUrl,omitempty"`
	Playing    bool     `json:"playing"`
	Looping    bool     `json:"looping"`
	Shuffling  bool     `json:"shuffling"`
	Actions    []string `json:"actions"`
}

// Publisher receives NowPlaying updates. Implementations must not block.
type Publisher interface {
	Publish(np NowPlaying)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(NowPlaying)

func (f PublisherFunc) Publish(np NowPlaying) { f(np) }

type nopPublisher struct{}

func (nopPublisher) Publish(NowPlaying) {}

// Dispatch executes a transport action against s. Unknown actions report false.
func Dispatch(s *Session, action string) bool {
	switch action {
	case ActionPlay:
		s.Play()
	case ActionPause:
		s.Pause()
	case ActionPrevious:
		s.Retreat()
	case ActionNext:
		s.Advance()
	default:
		return false
	}
	return true
}
