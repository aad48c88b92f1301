package model

const (
	GroupTitleMaxLen = 200
	GroupSlugMaxLen  = 64
)

type Group struct {
	ID          uint64 `gorm:"primaryKey"`
	Title       string `gorm:"size:200;not null"`
	Slug        string `gorm:"uniqueIndex;size:64;not null"`
	Description string `gorm:"type:text"`
}

// TableName groups 在 MySQL 8 中是保留字
func (Group) TableName() string {
	return "post_groups"
}
