package model

// QueueSnapshot is the persisted shape of a player session's queue.
type QueueSnapshot struct {
	SessionID string   `json:"sessionId"`
	TrackIDs  []string `json:"trackIds"`
	Cursor    int      `json:"cursor"`
	Policy    string   `json:"policy"`
	Playing   bool     `json:"playing"`
	UpdatedAt int64    `json:"updatedAt"`
}
