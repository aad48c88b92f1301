package database

import (
	"context"
	"encoding/json"
	"time"

	"Yatube/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	EventFollow   = "follow"
	EventUnfollow = "unfollow"
)

type FollowRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

// Follow 建立关注边（幂等）。新建时返回 changed=true 并在同一事务写 outbox
func (r *FollowRepository) Follow(ctx context.Context, followerID, authorID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel := model.Follow{UserID: followerID, AuthorID: authorID}
		// 唯一索引 (user_id, author_id) 兜住并发重复关注
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).Create(&rel)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			changed = false
			return nil
		}
		changed = true
		return r.insertOutbox(tx, EventFollow, followerID, authorID)
	})
	return changed, err
}

// Unfollow 删除关注边，不存在时 changed=false
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, authorID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND author_id = ?", followerID, authorID).Delete(&model.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			changed = false
			return nil
		}
		changed = true
		return r.insertOutbox(tx, EventUnfollow, followerID, authorID)
	})
	return changed, err
}

// IsFollowing 判断 followerID 是否关注 authorID
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, authorID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountFollowers 粉丝数：author_id = userID 的边
func (r *FollowRepository) CountFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).Where("author_id = ?", userID).Count(&n).Error
	return n, err
}

// CountFollowings 关注数：user_id = userID 的边
func (r *FollowRepository) CountFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// 插入outbox事件表
func (r *FollowRepository) insertOutbox(tx *gorm.DB, event string, follower, followee uint64) error {
	payload, err := json.Marshal(map[string]any{
		"event":      event,
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"follower":   follower,
		"followee":   followee,
	})
	if err != nil {
		return err
	}
	ob := &model.SocialOutbox{
		EventType: event,
		Follower:  follower,
		Followee:  followee,
		Payload:   string(payload),
		Status:    model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// List 按 id 升序取待投递事件
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败：retry+1，达到上限标记为失败
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64, maxRetry int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ob model.SocialOutbox
		if err := tx.Select("id", "retry").First(&ob, id).Error; err != nil {
			return err
		}
		status := model.OutboxPending
		if ob.Retry+1 >= maxRetry {
			status = model.OutboxFailed
		}
		return tx.Model(&model.SocialOutbox{}).Where("id = ?", id).
			Updates(map[string]any{"retry": ob.Retry + 1, "status": status}).Error
	})
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
