package pkg

import (
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"math/big"
	"time"

	"gopkg.in/gomail.v2"
)

// ResetCodeLen 重置密码验证码位数
const ResetCodeLen = 6

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer 发送一封 HTML 邮件
type Mailer func(to, subject, htmlBody string) error

// NewSMTPMailer 每次发送都重新拨号，连接不复用
func NewSMTPMailer(cfg SMTPConfig) Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return func(to, subject, htmlBody string) error {
		m := gomail.NewMessage()
		m.SetHeader("From", cfg.From)
		m.SetHeader("To", to)
		m.SetHeader("Subject", subject)
		m.SetBody("text/html", htmlBody)
		if err := d.DialAndSend(m); err != nil {
			return fmt.Errorf("smtp send to %s: %w", Anonymize(to), err)
		}
		return nil
	}
}

// NewResetCode 生成 ResetCodeLen 位数字码
func NewResetCode() (string, error) {
	buf := make([]byte, ResetCodeLen)
	for i := range buf {
		x, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + x.Int64())
	}
	return string(buf), nil
}

func ResetCodeHTML(username, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p>Your Yatube password reset code is <b style="font-size:18px;">%s</b>.</p><p>It expires in %d minutes. If you did not ask for a reset, ignore this email.</p>`,
		username, code, int(ttl.Minutes()))
}
