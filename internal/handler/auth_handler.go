package handler

import (
	"errors"
	"net/http"

	"Yatube/internal/middleware"
	"Yatube/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users   *service.UserService
	cookies middleware.Cookies
	errs    ErrorPages
}

func NewAuthHandler(users *service.UserService, cookies middleware.Cookies, errs ErrorPages) *AuthHandler {
	return &AuthHandler{users: users, cookies: cookies, errs: errs}
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type signupForm struct {
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
	Username  string `form:"username" binding:"required,max=32"`
	Email     string `form:"email" binding:"required,email"`
	Password1 string `form:"password1" binding:"required"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

type passwordChangeForm struct {
	OldPassword  string `form:"old_password" binding:"required"`
	NewPassword1 string `form:"new_password1" binding:"required"`
	NewPassword2 string `form:"new_password2" binding:"required,eqfield=NewPassword1"`
}

type passwordResetForm struct {
	Email string `form:"email" binding:"required,email"`
}

type passwordResetConfirmForm struct {
	Email        string `form:"email" binding:"required,email"`
	Code         string `form:"code" binding:"required,len=6,numeric"`
	NewPassword1 string `form:"new_password1" binding:"required"`
	NewPassword2 string `form:"new_password2" binding:"required,eqfield=NewPassword1"`
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	render(c, http.StatusOK, "login", gin.H{"Form": loginForm{Next: c.Query("next")}, "Errors": map[string]string{}})
}

// Login 登录成功后跳转到 next（仅限站内地址）
func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.formInvalid(c, "login", form, err)
		return
	}
	_, pair, err := h.users.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLogin) {
			form.Password = ""
			render(c, http.StatusOK, "login", gin.H{"Form": form, "Errors": map[string]string{nonFieldErrors: err.Error()}})
			return
		}
		h.errs.ServerError(c, err)
		return
	}
	h.cookies.Set(c, pair)
	next := "/"
	if middleware.IsSafeRedirect(form.Next) {
		next = form.Next
	}
	redirect(c, next)
}

func (h *AuthHandler) SignupPage(c *gin.Context) {
	render(c, http.StatusOK, "signup", gin.H{"Form": signupForm{}, "Errors": map[string]string{}})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		h.formInvalid(c, "signup", form, err)
		return
	}
	_, pair, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Username:  form.Username,
		Email:     form.Email,
		Password:  form.Password1,
	})
	if err != nil {
		var fe *service.FormError
		if errors.As(err, &fe) {
			// 密码规则的提示挂到 password1 上
			if msg, ok := fe.Fields["password"]; ok {
				delete(fe.Fields, "password")
				fe.Fields["password1"] = msg
			}
		}
		h.formInvalid(c, "signup", form, err)
		return
	}
	h.cookies.Set(c, pair)
	redirect(c, "/")
}

// Logout 未登录时同样清 cookie 并回到首页
func (h *AuthHandler) Logout(c *gin.Context) {
	if u := middleware.CurrentUser(c); u != nil {
		if err := h.users.Logout(c.Request.Context(), u.ID); err != nil {
			h.errs.Log.Error("auth", "logout", err)
		}
	}
	h.cookies.Clear(c)
	redirect(c, "/")
}

func (h *AuthHandler) PasswordChangePage(c *gin.Context) {
	render(c, http.StatusOK, "password_change", gin.H{"Errors": map[string]string{}})
}

// PasswordChange 修改成功后需要重新登录
func (h *AuthHandler) PasswordChange(c *gin.Context) {
	var form passwordChangeForm
	if err := c.ShouldBind(&form); err != nil {
		h.formInvalid(c, "password_change", nil, err)
		return
	}
	err := h.users.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), form.OldPassword, form.NewPassword1)
	if err != nil {
		var fe *service.FormError
		if errors.As(err, &fe) {
			if msg, ok := fe.Fields["new_password"]; ok {
				delete(fe.Fields, "new_password")
				fe.Fields["new_password1"] = msg
			}
		}
		h.formInvalid(c, "password_change", nil, err)
		return
	}
	h.cookies.Clear(c)
	redirect(c, middleware.LoginURL)
}

func (h *AuthHandler) PasswordResetPage(c *gin.Context) {
	render(c, http.StatusOK, "password_reset", gin.H{"Form": passwordResetForm{}, "Errors": map[string]string{}})
}

// PasswordReset 发送验证码后进入确认页；邮箱是否注册对外不可见
func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var form passwordResetForm
	if err := c.ShouldBind(&form); err != nil {
		h.formInvalid(c, "password_reset", form, err)
		return
	}
	if err := h.users.RequestPasswordReset(c.Request.Context(), form.Email); err != nil {
		h.formInvalid(c, "password_reset", form, err)
		return
	}
	render(c, http.StatusOK, "password_reset_confirm", gin.H{
		"Form":   passwordResetConfirmForm{Email: form.Email},
		"Errors": map[string]string{},
		"Sent":   true,
	})
}

func (h *AuthHandler) PasswordResetConfirmPage(c *gin.Context) {
	render(c, http.StatusOK, "password_reset_confirm", gin.H{
		"Form":   passwordResetConfirmForm{Email: c.Query("email")},
		"Errors": map[string]string{},
	})
}

func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var form passwordResetConfirmForm
	if err := c.ShouldBind(&form); err != nil {
		h.formInvalid(c, "password_reset_confirm", form, err)
		return
	}
	err := h.users.ResetPassword(c.Request.Context(), form.Email, form.Code, form.NewPassword1)
	if err != nil {
		var fe *service.FormError
		if errors.As(err, &fe) {
			if msg, ok := fe.Fields["new_password"]; ok {
				delete(fe.Fields, "new_password")
				fe.Fields["new_password1"] = msg
			}
		}
		h.formInvalid(c, "password_reset_confirm", form, err)
		return
	}
	redirect(c, middleware.LoginURL)
}

// formInvalid 校验失败时带提示重新渲染，其他错误走 500
func (h *AuthHandler) formInvalid(c *gin.Context, page string, form any, err error) {
	errs, ok := formErrors(err)
	if !ok {
		h.errs.ServerError(c, err)
		return
	}
	render(c, http.StatusOK, page, gin.H{"Form": form, "Errors": errs})
}
