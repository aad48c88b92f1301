package database

import (
	"context"

	"Yatube/internal/model"

	"gorm.io/gorm"
)

type GroupRepository struct {
	DB *gorm.DB
}

func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	return r.DB.WithContext(ctx).Create(g).Error
}

func (r *GroupRepository) FindBySlug(ctx context.Context, slug string) (*model.Group, error) {
	var group model.Group
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&group).Error
	return &group, err
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint64) (*model.Group, error) {
	var group model.Group
	err := r.DB.WithContext(ctx).First(&group, id).Error
	return &group, err
}

// List 表单下拉框使用，按标题排序
func (r *GroupRepository) List(ctx context.Context) ([]model.Group, error) {
	var list []model.Group
	err := r.DB.WithContext(ctx).Order("title ASC, id ASC").Find(&list).Error
	return list, err
}

// DeleteBySlug 删除分组，帖子的 group_id 置空
func (r *GroupRepository) DeleteBySlug(ctx context.Context, slug string) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g model.Group
		if err := tx.Where("slug = ?", slug).First(&g).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Post{}).Where("group_id = ?", g.ID).
			UpdateColumn("group_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Group{}, g.ID)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}
