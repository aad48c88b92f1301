package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"Yatube/internal/middleware"
	"Yatube/internal/pkg"
	"Yatube/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const nonFieldErrors = "__all__"

func init() {
	// 校验错误按表单字段名返回
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

// render 注入当前用户和路径后渲染页面
func render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Viewer"] = middleware.CurrentUser(c)
	data["Path"] = c.Request.URL.Path
	c.HTML(status, page, data)
}

// NotFound 404 页面，也用作 NoRoute
func NotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "404", nil)
	c.Abort()
}

// ErrorPages 统一的 500 页面与 panic 恢复
type ErrorPages struct {
	Log *pkg.Logger
}

func (p ErrorPages) ServerError(c *gin.Context, err error) {
	p.Log.Error("http", c.Request.Method+" "+c.Request.URL.Path, err)
	render(c, http.StatusInternalServerError, "500", nil)
	c.Abort()
}

// Recovery 作为 gin.CustomRecovery 的回调
func (p ErrorPages) Recovery(c *gin.Context, recovered any) {
	p.ServerError(c, fmt.Errorf("panic: %v", recovered))
}

// formErrors 把 validator 和 service 的校验错误转成 字段->提示
func formErrors(err error) (map[string]string, bool) {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	var fe *service.FormError
	switch {
	case errors.As(err, &verrs):
		for _, e := range verrs {
			if _, ok := out[e.Field()]; !ok {
				out[e.Field()] = fieldMessage(e)
			}
		}
	case errors.As(err, &fe):
		for k, v := range fe.Fields {
			out[k] = v
		}
	default:
		return out, false
	}
	return out, true
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
	case "eqfield":
		return "The two password fields didn't match."
	case "numeric", "len":
		return "Enter the 6-digit code from the email."
	}
	return "Enter a valid value."
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

func profileURL(username string) string {
	return "/" + username + "/"
}

func postURL(username string, postID uint64) string {
	return fmt.Sprintf("/%s/%d/", username, postID)
}
