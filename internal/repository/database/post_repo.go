package database

import (
	"context"

	"Yatube/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository struct {
	DB *gorm.DB
}

// 列表统一按 created_at DESC, id DESC 排序并带出作者和分组
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Group").Order("created_at DESC, id DESC")
}

func byAuthor(authorID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ?", authorID)
	}
}

func byGroup(groupID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("group_id = ?", groupID)
	}
}

// byFollower 关注的作者集合：follow.user_id = followerID
func byFollower(followerID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		authors := db.Session(&gorm.Session{NewDB: true}).
			Model(&model.Follow{}).Select("author_id").Where("user_id = ?", followerID)
		return db.Where("author_id IN (?)", authors)
	}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	return &post, err
}

// Update 只更新可编辑字段，created_at 保持不变
func (r *PostRepository) Update(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Model(&model.Post{ID: post.ID}).Updates(map[string]any{
		"text":     post.Text,
		"group_id": post.GroupID,
		"image":    post.Image,
	}).Error
}

// Delete 硬删除帖子及其评论
func (r *PostRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Post{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// ListAll 首页：全部帖子
func (r *PostRepository) ListAll(ctx context.Context, offset, limit int) ([]model.Post, error) {
	return r.list(ctx, nil, offset, limit)
}

func (r *PostRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, nil)
}

func (r *PostRepository) ListByGroup(ctx context.Context, groupID uint64, offset, limit int) ([]model.Post, error) {
	return r.list(ctx, byGroup(groupID), offset, limit)
}

func (r *PostRepository) CountByGroup(ctx context.Context, groupID uint64) (int64, error) {
	return r.count(ctx, byGroup(groupID))
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Post, error) {
	return r.list(ctx, byAuthor(authorID), offset, limit)
}

func (r *PostRepository) CountByAuthor(ctx context.Context, authorID uint64) (int64, error) {
	return r.count(ctx, byAuthor(authorID))
}

// ListByFollower 关注流：followerID 关注的作者的帖子
func (r *PostRepository) ListByFollower(ctx context.Context, followerID uint64, offset, limit int) ([]model.Post, error) {
	return r.list(ctx, byFollower(followerID), offset, limit)
}

func (r *PostRepository) CountByFollower(ctx context.Context, followerID uint64) (int64, error) {
	return r.count(ctx, byFollower(followerID))
}

func (r *PostRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, offset, limit int) ([]model.Post, error) {
	q := r.DB.WithContext(ctx).Model(&model.Post{})
	if scope != nil {
		q = q.Scopes(scope)
	}
	var list []model.Post
	err := q.Scopes(newestFirst).Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *PostRepository) count(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Post{})
	if scope != nil {
		q = q.Scopes(scope)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
