package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code"
	ScopeReset          = "reset"

	// 两阶段键：邮件发出前为 pending，发出后转为 confirmed
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
	AttemptsSuffix  = "attempts"

	// MaxCodeAttempts 错误次数达到上限后验证码作废
	MaxCodeAttempts = 5
)

var (
	ErrEmailNotFound       = errors.New("email code not found")
	ErrEmailCodeDelFailed  = errors.New("email code delete failed")
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
	ErrCodeAttemptFailed   = errors.New("code attempt count failed")
)

// 原子执行：取值+写入目标+设置 TTL+删除源
var confirmScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// 计数器与验证码同寿命，第一次计数时设置过期
var attemptScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type EmailRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewEmailRepository(rdb *redis.Client) *EmailRepository {
	return &EmailRepository{RDB: rdb, TTL: DefaultEmailCodeTTL}
}

func codeKey(scope, stage, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", EmailCodePrefix, scope, stage, email)
}

// SetPending 写入 pending 验证码，新验证码的错误次数从零开始
func (e *EmailRepository) SetPending(ctx context.Context, scope, email, code string) error {
	_, err := e.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(scope, PendingSuffix, email), code, e.TTL)
		pipe.Del(ctx, codeKey(scope, AttemptsSuffix, email))
		return nil
	})
	if err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// Confirm 将 pending 转为 confirmed（重置 TTL）
func (e *EmailRepository) Confirm(ctx context.Context, scope, email string) error {
	src := codeKey(scope, PendingSuffix, email)
	dst := codeKey(scope, ConfirmedSuffix, email)
	px := int64(e.TTL / time.Millisecond)
	ok, err := confirmScript.Run(ctx, e.RDB, []string{src, dst}, px).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeletePending 删除 pending 键（幂等）
func (e *EmailRepository) DeletePending(ctx context.Context, scope, email string) error {
	if err := e.RDB.Del(ctx, codeKey(scope, PendingSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

// GetConfirmed 校验时读取 confirmed 验证码
func (e *EmailRepository) GetConfirmed(ctx context.Context, scope, email string) (string, error) {
	val, err := e.RDB.Get(ctx, codeKey(scope, ConfirmedSuffix, email)).Result()
	if err != nil {
		return "", ErrEmailNotFound
	}
	return val, nil
}

// IncrAttempts 记录一次错误输入，返回累计次数
func (e *EmailRepository) IncrAttempts(ctx context.Context, scope, email string) (int64, error) {
	px := int64(e.TTL / time.Millisecond)
	n, err := attemptScript.Run(ctx, e.RDB, []string{codeKey(scope, AttemptsSuffix, email)}, px).Int64()
	if err != nil {
		return 0, ErrCodeAttemptFailed
	}
	return n, nil
}

// DeleteConfirmed 删除验证码及其错误计数
func (e *EmailRepository) DeleteConfirmed(ctx context.Context, scope, email string) error {
	err := e.RDB.Del(ctx, codeKey(scope, ConfirmedSuffix, email), codeKey(scope, AttemptsSuffix, email)).Err()
	if err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}
