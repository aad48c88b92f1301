package router

import (
	"time"

	"Yatube/internal/handler"
	"Yatube/internal/middleware"
	"Yatube/internal/pkg"
	"Yatube/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// Deps 路由依赖；Cache 为 nil 时首页不缓存
type Deps struct {
	Users    *service.UserService
	Posts    *service.PostService
	Groups   *service.GroupService
	Profiles *service.ProfileService
	Follows  *service.FollowService

	Renderer render.HTMLRender
	Cookies  middleware.Cookies
	MediaDir string
	Log      *pkg.Logger

	Cache    middleware.PageStore
	Lock     middleware.Locker
	CacheTTL time.Duration
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	errs := handler.ErrorPages{Log: d.Log}

	r.HTMLRender = d.Renderer
	r.Use(gin.Logger(), gin.CustomRecovery(errs.Recovery))
	r.Use(middleware.Authenticate(d.Users, d.Cookies))
	r.NoRoute(handler.NotFound)

	r.Static("/media", d.MediaDir)

	auth := handler.NewAuthHandler(d.Users, d.Cookies, errs)
	post := handler.NewPostHandler(d.Posts, d.Groups, d.Profiles, errs)
	profile := handler.NewProfileHandler(d.Profiles, d.Posts, d.Follows, errs)
	login := middleware.LoginRequired()

	// 账号相关页面
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/signup/", auth.SignupPage)
		authGroup.POST("/signup/", auth.Signup)
		authGroup.GET("/login/", auth.LoginPage)
		authGroup.POST("/login/", auth.Login)
		authGroup.GET("/logout/", auth.Logout)
		authGroup.GET("/password_change/", login, auth.PasswordChangePage)
		authGroup.POST("/password_change/", login, auth.PasswordChange)
		authGroup.GET("/password_reset/", auth.PasswordResetPage)
		authGroup.POST("/password_reset/", auth.PasswordReset)
		authGroup.GET("/password_reset/confirm/", auth.PasswordResetConfirmPage)
		authGroup.POST("/password_reset/confirm/", auth.PasswordResetConfirm)
	}

	// 首页
	if d.Cache != nil && d.Lock != nil && d.CacheTTL > 0 {
		r.GET("/", middleware.CachePage(d.Cache, d.Lock, d.CacheTTL, d.Log), post.Index)
	} else {
		r.GET("/", post.Index)
	}

	r.GET("/group/:slug", post.GroupPosts)
	r.GET("/new/", login, post.NewPage)
	r.POST("/new/", login, post.Create)
	r.GET("/follow/", login, profile.FollowIndex)

	// 用户和帖子
	r.GET("/:username/", profile.Profile)
	r.GET("/:username/follow", login, profile.Follow)
	r.GET("/:username/unfollow", login, profile.Unfollow)
	r.GET("/:username/:post_id/", post.View)
	r.GET("/:username/:post_id/edit/", login, post.EditPage)
	r.POST("/:username/:post_id/edit/", login, post.Edit)
	r.POST("/:username/:post_id/comment/", login, post.AddComment)

	return r
}
