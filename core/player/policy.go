package player

import "strings"

// TransitionPolicy decides how Advance and Retreat pick the next cursor.
// Looping and shuffling are exclusive because they are one value.
type TransitionPolicy int

const (
	Sequential TransitionPolicy = iota
	Looping
	Shuffling
)

func (p TransitionPolicy) String() string {
	switch p {
	case Looping:
		return "looping"
	case Shuffling:
		return "shuffling"
	default:
		return "sequential"
	}
}

// ParsePolicy is the inverse of String. Unknown names report false.
func ParsePolicy(s string) (TransitionPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "":
		return Sequential, true
	case "looping", "loop":
		return Looping, true
	case "shuffling", "shuffle":
		return Shuffling, true
	}
	return Sequential, false
}
