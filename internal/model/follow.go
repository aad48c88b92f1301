package model

import "time"

// Follow 关注边：UserID 关注 AuthorID
type Follow struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_follow_user_author,priority:1"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AuthorID  uint64 `gorm:"not null;index:idx_follow_author;uniqueIndex:uk_follow_user_author,priority:2"`
	Author    User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// SocialOutbox 关注事件 outbox 表
type SocialOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:16;not null"` // follow / unfollow
	Follower  uint64 `gorm:"not null"`
	Followee  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
