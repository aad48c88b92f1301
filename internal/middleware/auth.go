package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"Yatube/internal/model"
	"Yatube/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserKey = "user"

	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	LoginURL = "/auth/login/"
)

// Authenticator 由 cookie 中的令牌解析出当前用户，必要时续签
type Authenticator interface {
	Authenticate(ctx context.Context, access, refresh string) (*model.User, *pkg.Pair, error)
}

// Cookies 登录态 cookie 的写入与清除
type Cookies struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secure     bool
}

func (ck Cookies) Set(c *gin.Context, pair *pkg.Pair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, pair.AccessToken, int(ck.RefreshTTL.Seconds()), "/", "", ck.Secure, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken, int(ck.RefreshTTL.Seconds()), "/", "", ck.Secure, true)
}

func (ck Cookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", "", ck.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", ck.Secure, true)
}

// Authenticate 可选登录：解析成功时注入当前用户，失败时按匿名处理
func Authenticate(auth Authenticator, cookies Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		access, _ := c.Cookie(AccessCookie)
		refresh, _ := c.Cookie(RefreshCookie)
		if access == "" && refresh == "" {
			c.Next()
			return
		}

		user, pair, err := auth.Authenticate(c.Request.Context(), access, refresh)
		if err != nil {
			// 令牌失效或在别处登录，清掉 cookie
			cookies.Clear(c)
			c.Next()
			return
		}
		if pair != nil {
			cookies.Set(c, pair)
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// LoginRequired 未登录时跳转登录页，并带上原地址
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginURL+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 未登录时返回 nil
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if u, ok2 := v.(*model.User); ok2 {
			return u
		}
	}
	return nil
}

// CurrentUserID 未登录时返回 0
func CurrentUserID(c *gin.Context) uint64 {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// IsSafeRedirect 只允许站内相对路径，防止开放重定向
func IsSafeRedirect(next string) bool {
	if next == "" || next[0] != '/' {
		return false
	}
	if len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Host == "" && u.Scheme == ""
}
