package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"Yatube/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PageStore 整页缓存
type PageStore interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Set(ctx context.Context, name string, body []byte, ttl time.Duration) error
}

// Locker 同一个缓存项只允许一个请求重建
type Locker interface {
	Acquire(ctx context.Context, name, token string) (bool, error)
	Release(ctx context.Context, name, token string) error
}

type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage 按 (访问者, URI) 缓存 GET 200 响应；redis 出错时直接走正常渲染
func CachePage(store PageStore, lock Locker, ttl time.Duration, log *pkg.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || ttl <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		name := fmt.Sprintf("%d:%s", CurrentUserID(c), c.Request.URL.RequestURI())

		body, ok, err := store.Get(ctx, name)
		if err != nil {
			log.Error("cache", "get "+name, err)
		}
		if ok {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", body)
			c.Abort()
			return
		}

		token := uuid.NewString()
		locked, err := lock.Acquire(ctx, name, token)
		if err != nil {
			log.Error("cache", "lock "+name, err)
		}
		if !locked {
			c.Next()
			return
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx), name, token); err != nil {
				log.Error("cache", "unlock "+name, err)
			}
		}()

		w := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() != http.StatusOK || len(c.Errors) > 0 {
			return
		}
		if err = store.Set(context.WithoutCancel(ctx), name, w.buf.Bytes(), ttl); err != nil {
			log.Error("cache", "set "+name, err)
		}
	}
}
