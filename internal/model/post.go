package model

import "time"

const (
	PostTextMaxLen    = 200
	CommentTextMaxLen = 200
)

type Post struct {
	ID        uint64    `gorm:"primaryKey"`
	Text      string    `gorm:"type:text;not null"`
	AuthorID  uint64    `gorm:"not null;index:idx_author_time,priority:1"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	GroupID   *uint64   `gorm:"index:idx_group_time,priority:1"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Image     string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"index;index:idx_author_time,priority:2;index:idx_group_time,priority:2"`
	UpdatedAt time.Time
}

type Comment struct {
	ID        uint64 `gorm:"primaryKey"`
	PostID    uint64 `gorm:"not null;index"`
	Post      Post   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	AuthorID  uint64 `gorm:"not null;index"`
	Author    User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
