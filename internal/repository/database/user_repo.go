package database

import (
	"context"

	"Yatube/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return &user, err
}

// FindForLogin 登录时用户名或邮箱均可
func (r *UserRepository) FindForLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	return &usr, err
}

func (r *UserRepository) ExistsUsernameOrEmail(ctx context.Context, username, email string) (bool, bool, error) {
	var byName, byEmail int64
	if err := r.DB.WithContext(ctx).Model(&model.User{}).Where("username = ?", username).Count(&byName).Error; err != nil {
		return false, false, err
	}
	if err := r.DB.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&byEmail).Error; err != nil {
		return false, false, err
	}
	return byName > 0, byEmail > 0, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}

// Delete 硬删除用户，级联删除其帖子、帖子下的评论、本人评论和关注边
func (r *UserRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := tx.Model(&model.Post{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("post_id IN (?) OR author_id = ?", posts, id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&model.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", id, id).Delete(&model.Follow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}
