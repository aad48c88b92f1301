package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Yatube/internal/model"
	"Yatube/internal/pkg"
	"Yatube/internal/repository/database"

	"gorm.io/gorm"
)

type FollowService struct {
	repo  *database.FollowRepository
	posts *database.PostRepository
	users *database.UserRepository
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		repo:  &database.FollowRepository{DB: db},
		posts: &database.PostRepository{DB: db},
		users: &database.UserRepository{DB: db},
	}
}

// Follow 关注 username；已关注时 changed=false
func (s *FollowService) Follow(ctx context.Context, followerID uint64, username string) (*model.User, bool, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if followerID == 0 {
		return author, false, ErrInvalidUserID
	}
	if followerID == author.ID {
		return author, false, ErrFollowSelf
	}
	changed, err := s.repo.Follow(ctx, followerID, author.ID)
	return author, changed, err
}

// Unfollow 取消关注；关注边不存在时返回 ErrFollowNotFound
func (s *FollowService) Unfollow(ctx context.Context, followerID uint64, username string) (*model.User, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}
	if followerID == 0 {
		return author, ErrInvalidUserID
	}
	changed, err := s.repo.Unfollow(ctx, followerID, author.ID)
	if err != nil {
		return author, err
	}
	if !changed {
		return author, fmt.Errorf("%w: %d -> %s", ErrFollowNotFound, followerID, username)
	}
	return author, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, authorID uint64) (bool, error) {
	if followerID == 0 || authorID == 0 {
		return false, ErrInvalidUserID
	}
	return s.repo.IsFollowing(ctx, followerID, authorID)
}

// Feed 关注流：关注的作者的帖子，新的在前；没有关注任何人时返回空页
func (s *FollowService) Feed(ctx context.Context, userID uint64, rawPage string) (pkg.Paginated[model.Post], error) {
	if userID == 0 {
		return pkg.Paginated[model.Post]{}, ErrInvalidUserID
	}
	total, err := s.posts.CountByFollower(ctx, userID)
	if err != nil {
		return pkg.Paginated[model.Post]{}, err
	}
	page := pkg.NewPage(rawPage, total, pkg.PageSize)
	if total == 0 {
		return pkg.Paginated[model.Post]{Page: page}, nil
	}
	items, err := s.posts.ListByFollower(ctx, userID, page.Offset(), page.Limit())
	if err != nil {
		return pkg.Paginated[model.Post]{}, err
	}
	return pkg.Paginated[model.Post]{Page: page, Items: items}, nil
}

func (s *FollowService) author(ctx context.Context, username string) (*model.User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, err
	}
	return u, nil
}

// Sender 投递一条 outbox 事件
type Sender func(ctx context.Context, ob *model.SocialOutbox) error

const (
	outboxBatchSize = 200
	outboxMaxRetry  = 5
)

// OutboxRelayer 定时把关注事件从 outbox 表投递出去
type OutboxRelayer struct {
	repo      *database.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	log       *pkg.Logger
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, log *pkg.Logger) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      &database.OutboxRepository{DB: db},
		batchSize: outboxBatchSize,
		maxRetry:  outboxMaxRetry,
		interval:  time.Second,
		sender:    sender,
		log:       log,
	}
}

// Run 阻塞直到 ctx 取消
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批待发送事件，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		r.log.Error("outbox", "query pending events", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			r.log.Error("outbox", fmt.Sprintf("send event %d", ob.ID), err)
			if err = r.repo.RetryUpdate(ctx, ob.ID, r.maxRetry); err != nil {
				r.log.Error("outbox", "mark retry", err)
			}
			continue
		}
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.Error("outbox", "mark sent", err)
			continue
		}
		sent++
	}
	return sent
}

// LogSender 未配置 Kafka 时使用，只打日志
func LogSender(log *pkg.Logger) Sender {
	return func(_ context.Context, ob *model.SocialOutbox) error {
		log.Info("outbox", fmt.Sprintf("type=%s follower=%d followee=%d payload=%s", ob.EventType, ob.Follower, ob.Followee, ob.Payload))
		return nil
	}
}

// KafkaSender 以关注者 id 为 key 写入 Kafka，保证同一用户的事件有序
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.Follower), []byte(ob.Payload))
	}
}
