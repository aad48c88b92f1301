package handler

import (
	"errors"
	"net/http"

	"Yatube/internal/middleware"
	"Yatube/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	posts    *service.PostService
	follows  *service.FollowService
	errs     ErrorPages
}

func NewProfileHandler(profiles *service.ProfileService, posts *service.PostService, follows *service.FollowService, errs ErrorPages) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, posts: posts, follows: follows, errs: errs}
}

// Profile 个人主页：统计信息和帖子列表
func (h *ProfileHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.profiles.ByUsername(ctx, c.Param("username"), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.posts.ByAuthor(ctx, profile.User.ID, c.Query("page"))
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "profile", gin.H{"Profile": profile, "Posts": page})
}

// FollowIndex 关注流
func (h *ProfileHandler) FollowIndex(c *gin.Context) {
	page, err := h.follows.Feed(c.Request.Context(), middleware.CurrentUserID(c), c.Query("page"))
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "follow", gin.H{"Posts": page})
}

// Follow 关注自己时静默忽略
func (h *ProfileHandler) Follow(c *gin.Context) {
	username := c.Param("username")
	_, _, err := h.follows.Follow(c.Request.Context(), middleware.CurrentUserID(c), username)
	if err != nil && !errors.Is(err, service.ErrFollowSelf) {
		h.fail(c, err)
		return
	}
	redirect(c, profileURL(username))
}

// Unfollow 没有关注关系时 404
func (h *ProfileHandler) Unfollow(c *gin.Context) {
	username := c.Param("username")
	if _, err := h.follows.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), username); err != nil {
		h.fail(c, err)
		return
	}
	redirect(c, profileURL(username))
}

func (h *ProfileHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrFollowNotFound):
		NotFound(c)
	default:
		h.errs.ServerError(c, err)
	}
}
