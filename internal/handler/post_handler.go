package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"Yatube/internal/middleware"
	"Yatube/internal/model"
	"Yatube/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts    *service.PostService
	groups   *service.GroupService
	profiles *service.ProfileService
	errs     ErrorPages
}

func NewPostHandler(posts *service.PostService, groups *service.GroupService, profiles *service.ProfileService, errs ErrorPages) *PostHandler {
	return &PostHandler{posts: posts, groups: groups, profiles: profiles, errs: errs}
}

type postForm struct {
	Text  string `form:"text"`
	Group string `form:"group"`
}

type commentForm struct {
	Text string `form:"text"`
}

// Index 首页：全站帖子
func (h *PostHandler) Index(c *gin.Context) {
	page, err := h.posts.Index(c.Request.Context(), c.Query("page"))
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "index", gin.H{"Posts": page})
}

// GroupPosts 分组页，slug 不存在时 404
func (h *PostHandler) GroupPosts(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.groups.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.posts.ByGroup(ctx, group.ID, c.Query("page"))
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "group", gin.H{"Group": group, "Posts": page})
}

func (h *PostHandler) NewPage(c *gin.Context) {
	h.renderForm(c, nil, postForm{}, map[string]string{})
}

// Create 发帖成功回到首页
func (h *PostHandler) Create(c *gin.Context) {
	form, in, err := h.bindPost(c)
	if err == nil {
		_, err = h.posts.Create(c.Request.Context(), middleware.CurrentUserID(c), in)
	}
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.renderForm(c, nil, form, errs)
			return
		}
		h.errs.ServerError(c, err)
		return
	}
	redirect(c, "/")
}

// View 帖子详情：作者信息、评论和评论表单
func (h *PostHandler) View(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	profile, err := h.profiles.For(ctx, &post.Author, middleware.CurrentUserID(c))
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	comments, err := h.posts.Comments(ctx, post.ID)
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "post", gin.H{"Post": post, "Profile": profile, "Comments": comments})
}

// EditPage 非作者跳回帖子详情
func (h *PostHandler) EditPage(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	if post.AuthorID != middleware.CurrentUserID(c) {
		redirect(c, postURL(post.Author.Username, post.ID))
		return
	}
	form := postForm{Text: post.Text}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(*post.GroupID, 10)
	}
	h.renderForm(c, post, form, map[string]string{})
}

func (h *PostHandler) Edit(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if post.AuthorID != user.ID {
		redirect(c, postURL(post.Author.Username, post.ID))
		return
	}
	form, in, err := h.bindPost(c)
	if err == nil {
		err = h.posts.Update(c.Request.Context(), user.ID, post, in)
	}
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.renderForm(c, post, form, errs)
			return
		}
		h.fail(c, err)
		return
	}
	redirect(c, postURL(user.Username, post.ID))
}

// AddComment 无论是否通过校验都回到帖子详情
func (h *PostHandler) AddComment(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	var form commentForm
	_ = c.ShouldBind(&form)
	if _, err := h.posts.AddComment(c.Request.Context(), middleware.CurrentUserID(c), post, form.Text); err != nil {
		var fe *service.FormError
		if !errors.As(err, &fe) {
			h.errs.ServerError(c, err)
			return
		}
	}
	redirect(c, postURL(post.Author.Username, post.ID))
}

func (h *PostHandler) loadPost(c *gin.Context) (*model.Post, bool) {
	id, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || id == 0 {
		NotFound(c)
		return nil, false
	}
	post, err := h.posts.Get(c.Request.Context(), c.Param("username"), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return post, true
}

// bindPost 解析 multipart 表单；group 为空表示不选分组
func (h *PostHandler) bindPost(c *gin.Context) (postForm, service.PostInput, error) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		return form, service.PostInput{}, err
	}
	in := service.PostInput{Text: form.Text}
	if g := strings.TrimSpace(form.Group); g != "" {
		id, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			fe := service.NewFormError()
			fe.Add("group", "Select a valid choice. That choice is not one of the available choices.")
			return form, in, fe
		}
		in.GroupID = &id
	}
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return form, in, err
	default:
		in.Image = fh
	}
	return form, in, nil
}

// renderForm 新建和编辑共用一个模板，post 为 nil 表示新建
func (h *PostHandler) renderForm(c *gin.Context, post *model.Post, form postForm, errs map[string]string) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "new", gin.H{"Form": form, "Errors": errs, "Groups": groups, "IsEdit": post != nil, "Post": post})
}

// fail 领域错误映射为 404，其余为 500
func (h *PostHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrUserNotFound):
		NotFound(c)
	default:
		h.errs.ServerError(c, err)
	}
}
