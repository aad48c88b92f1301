package service

import (
	"context"
	"crypto/subtle"

	"Yatube/internal/pkg"
	"Yatube/internal/repository/redis"
)

type EmailService struct {
	send pkg.Mailer
	rds  *redis.EmailRepository
	log  *pkg.Logger
}

func NewEmailService(send pkg.Mailer, rds *redis.EmailRepository, log *pkg.Logger) *EmailService {
	return &EmailService{send: send, rds: rds, log: log}
}

// SendResetCode 发送重置密码验证码
func (s *EmailService) SendResetCode(ctx context.Context, username, email string) error {
	code, err := pkg.NewResetCode()
	if err != nil {
		return err
	}

	// 先写入pending键
	if err = s.rds.SetPending(ctx, redis.ScopeReset, email, code); err != nil {
		return err
	}

	html := pkg.ResetCodeHTML(username, code, s.rds.TTL)
	if err = s.send(email, "Password reset code", html); err != nil {
		_ = s.rds.DeletePending(ctx, redis.ScopeReset, email)
		s.log.Error("email", "send reset code to "+pkg.Anonymize(email), err)
		return err
	}

	// 邮件发送后再将pending转为confirmed
	if err = s.rds.Confirm(ctx, redis.ScopeReset, email); err != nil {
		_ = s.rds.DeletePending(ctx, redis.ScopeReset, email)
		return err
	}
	return nil
}

// VerifyCode 校验验证码并一次性删除；错误达到 MaxCodeAttempts 次后验证码作废
func (s *EmailService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	val, err := s.rds.GetConfirmed(ctx, redis.ScopeReset, email)
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare([]byte(val), []byte(code)) == 1 {
		if err = s.rds.DeleteConfirmed(ctx, redis.ScopeReset, email); err != nil {
			return false, err
		}
		return true, nil
	}

	n, err := s.rds.IncrAttempts(ctx, redis.ScopeReset, email)
	if err != nil {
		return false, err
	}
	if n >= redis.MaxCodeAttempts {
		if err = s.rds.DeleteConfirmed(ctx, redis.ScopeReset, email); err != nil {
			return false, err
		}
		s.log.Info("email", "reset code revoked after too many attempts for "+pkg.Anonymize(email))
	}
	return false, nil
}
