package model

import "time"

// AnonymousUser is recorded when an interaction arrives without a user id.
const AnonymousUser = "anonymous"

// Interaction action names with side effects.
const (
	ActionPlay = "play"
	ActionLike = "like"
)

// Interaction records a user action on a recommended track.
type Interaction struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TrackID   string    `json:"songId" gorm:"size:36;not null;index"`
	UserID    string    `json:"userId" gorm:"size:100;not null;default:'anonymous'"`
	Action    string    `json:"action" gorm:"size:50;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (Interaction) TableName() string {
	return "interactions"
}
