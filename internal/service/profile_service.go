package service

import (
	"context"
	"errors"
	"fmt"

	"Yatube/internal/model"
	"Yatube/internal/repository/database"

	"gorm.io/gorm"
)

// Profile 个人主页的统计信息
type Profile struct {
	User           *model.User
	PostCount      int64
	FollowerCount  int64
	FollowingCount int64
	// Following 当前访问者是否关注了该用户；本人或匿名访问时为 false
	Following bool
}

type ProfileService struct {
	users   *database.UserRepository
	posts   *database.PostRepository
	follows *database.FollowRepository
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		users:   &database.UserRepository{DB: db},
		posts:   &database.PostRepository{DB: db},
		follows: &database.FollowRepository{DB: db},
	}
}

// ByUsername viewerID 为 0 表示匿名访问
func (s *ProfileService) ByUsername(ctx context.Context, username string, viewerID uint64) (*Profile, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, err
	}
	return s.For(ctx, u, viewerID)
}

// For 计算 u 的帖子数、粉丝数、关注数以及 viewer 是否关注了 u
func (s *ProfileService) For(ctx context.Context, u *model.User, viewerID uint64) (*Profile, error) {
	p := &Profile{User: u}
	var err error
	if p.PostCount, err = s.posts.CountByAuthor(ctx, u.ID); err != nil {
		return nil, err
	}
	if p.FollowerCount, err = s.follows.CountFollowers(ctx, u.ID); err != nil {
		return nil, err
	}
	if p.FollowingCount, err = s.follows.CountFollowings(ctx, u.ID); err != nil {
		return nil, err
	}
	if viewerID != 0 && viewerID != u.ID {
		if p.Following, err = s.follows.IsFollowing(ctx, viewerID, u.ID); err != nil {
			return nil, err
		}
	}
	return p, nil
}
