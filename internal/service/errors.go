package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrFollowNotFound  = errors.New("follow not found")
	ErrFollowSelf      = errors.New("cannot follow self")
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrNotAuthor       = errors.New("only the author can edit the post")
	ErrInvalidLogin    = errors.New("please enter a correct username and password")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// FormError 表单校验失败，按字段给出提示，表单重新渲染
type FormError struct {
	Fields map[string]string
}

func NewFormError() *FormError {
	return &FormError{Fields: map[string]string{}}
}

func (e *FormError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *FormError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil 没有字段错误时返回 nil
func (e *FormError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}
