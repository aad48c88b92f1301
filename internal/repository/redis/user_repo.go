package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrExtendFailed     = errors.New("token extend failed")
	ErrTokenDeleted     = errors.New("token delete failed")
)

const (
	UserTokenPrefix   = "login:user:token"
	UserSessionPrefix = "login:user:session"
	UserTokenExpire   = 30 * time.Minute
	UserSessionExpire = 24 * time.Hour
)

// UserRepository 登录态：每个用户只保留最近一次登录的 access token 和会话 id。
// token 随 access 过期，会话随 refresh 过期
type UserRepository struct {
	RDB        *redis.Client
	TTL        time.Duration
	SessionTTL time.Duration
}

func NewUserRepository(rdb *redis.Client, ttl, sessionTTL time.Duration) *UserRepository {
	if ttl <= 0 {
		ttl = UserTokenExpire
	}
	if sessionTTL <= 0 {
		sessionTTL = UserSessionExpire
	}
	return &UserRepository{RDB: rdb, TTL: ttl, SessionTTL: sessionTTL}
}

func tokenKey(usrID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, usrID)
}

func sessionKey(usrID uint64) string {
	return fmt.Sprintf("%s:%d", UserSessionPrefix, usrID)
}

func (r *UserRepository) AddUserToken(ctx context.Context, usrID uint64, token string) error {
	if err := r.RDB.Set(ctx, tokenKey(usrID), token, r.TTL).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *UserRepository) GetUserToken(ctx context.Context, usrID uint64) (string, error) {
	token, err := r.RDB.Get(ctx, tokenKey(usrID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return token, nil
}

func (r *UserRepository) ExtendUserToken(ctx context.Context, usrID uint64) error {
	if err := r.RDB.Expire(ctx, tokenKey(usrID), r.TTL).Err(); err != nil {
		return ErrExtendFailed
	}
	return nil
}

// SetSession 写入会话 id，同时重置会话 TTL
func (r *UserRepository) SetSession(ctx context.Context, usrID uint64, sessionID string) error {
	if err := r.RDB.Set(ctx, sessionKey(usrID), sessionID, r.SessionTTL).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *UserRepository) GetSession(ctx context.Context, usrID uint64) (string, error) {
	sid, err := r.RDB.Get(ctx, sessionKey(usrID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return sid, nil
}

// DeleteUserToken 登出：token 和会话一起删除
func (r *UserRepository) DeleteUserToken(ctx context.Context, usrID uint64) error {
	if err := r.RDB.Del(ctx, tokenKey(usrID), sessionKey(usrID)).Err(); err != nil {
		return ErrTokenDeleted
	}
	return nil
}
