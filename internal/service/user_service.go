package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"Yatube/internal/model"
	"Yatube/internal/pkg"
	"Yatube/internal/repository/database"
	"Yatube/internal/repository/redis"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 8

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// 与固定路由同名的用户名，个人主页会被这些路由挡住
var reservedUsernames = map[string]bool{
	"new":    true,
	"follow": true,
	"group":  true,
	"auth":   true,
	"media":  true,
}

type UserService struct {
	repo     *database.UserRepository
	rUser    *redis.UserRepository
	tokens   *pkg.TokenIssuer
	emailSvc *EmailService
	log      *pkg.Logger
}

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

func NewUserService(db *gorm.DB, rUser *redis.UserRepository, tokens *pkg.TokenIssuer, emailSvc *EmailService, log *pkg.Logger) *UserService {
	return &UserService{
		repo:     &database.UserRepository{DB: db},
		rUser:    rUser,
		tokens:   tokens,
		emailSvc: emailSvc,
		log:      log,
	}
}

// Signup 注册并直接登录
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*model.User, *pkg.Pair, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	fe := NewFormError()
	switch {
	case in.Username == "":
		fe.Add("username", "This field is required.")
	case utf8.RuneCountInString(in.Username) > 32:
		fe.Add("username", "Ensure this value has at most 32 characters.")
	case !usernameRe.MatchString(in.Username):
		fe.Add("username", "Enter a valid username. Letters, digits and @/./+/-/_ only.")
	case reservedUsernames[strings.ToLower(in.Username)]:
		fe.Add("username", "This username is reserved.")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		fe.Add("email", "Enter a valid email address.")
	}
	validatePassword(fe, "password", in.Password)
	if err := fe.OrNil(); err != nil {
		return nil, nil, err
	}

	nameTaken, emailTaken, err := s.repo.ExistsUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, nil, err
	}
	if nameTaken {
		fe.Add("username", "A user with that username already exists.")
	}
	if emailTaken {
		fe.Add("email", "A user with that email already exists.")
	}
	if err = fe.OrNil(); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	user := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err = s.repo.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	s.log.Info("user", "signup user_id="+pkg.MakeKeyFromID(user.ID))

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login 用户名或邮箱 + 密码，成功后把 access token 写入 redis
func (s *UserService) Login(ctx context.Context, login, password string) (*model.User, *pkg.Pair, error) {
	user, err := s.repo.FindForLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidLogin
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, ErrInvalidLogin
	}
	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *UserService) Logout(ctx context.Context, usrID uint64) error {
	return s.rUser.DeleteUserToken(ctx, usrID)
}

// Authenticate 校验 access；access 过期或已不在 redis 中时用 refresh 续签，
// 返回新的令牌对（无需续签时为 nil）
func (s *UserService) Authenticate(ctx context.Context, access, refresh string) (*model.User, *pkg.Pair, error) {
	if access != "" {
		claims, err := s.tokens.ParseAccess(access)
		switch {
		case err == nil:
			// redis 校验是否是最近一次登录的 token
			origin, err := s.rUser.GetUserToken(ctx, claims.UserID)
			if err == nil && origin == access {
				_ = s.rUser.ExtendUserToken(ctx, claims.UserID)
				user, err := s.repo.FindByID(ctx, claims.UserID)
				if err != nil {
					return nil, nil, ErrUnauthenticated
				}
				return user, nil, nil
			}
		case !errors.Is(err, pkg.ErrTokenExpired):
			return nil, nil, ErrUnauthenticated
		}
	}
	if refresh == "" {
		return nil, nil, ErrUnauthenticated
	}

	pair, claims, err := s.tokens.Refresh(refresh)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}
	// refresh 必须属于当前会话：登出、改密或重新登录后旧 refresh 失效
	sid, err := s.rUser.GetSession(ctx, claims.UserID)
	if err != nil || claims.ID == "" || subtle.ConstantTimeCompare([]byte(sid), []byte(claims.ID)) != 1 {
		return nil, nil, ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}
	if err = s.store(ctx, user.ID, claims.ID, pair); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ChangePassword 登录态修改密码，成功后退出登录
func (s *UserService) ChangePassword(ctx context.Context, usrID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, usrID)
	if err != nil {
		return err
	}
	fe := NewFormError()
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		fe.Add("old_password", "Your old password was entered incorrectly.")
	}
	validatePassword(fe, "new_password", newPassword)
	if err = fe.OrNil(); err != nil {
		return err
	}
	if err = s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	return s.Logout(ctx, usrID)
}

// RequestPasswordReset 发送重置验证码；邮箱不存在时静默成功，不暴露账号是否存在
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		fe := NewFormError()
		fe.Add("email", "Enter a valid email address.")
		return fe
	}
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.emailSvc.SendResetCode(ctx, u.Username, email)
}

// ResetPassword 校验验证码后更新密码
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	fe := NewFormError()
	validatePassword(fe, "new_password", newPassword)
	if err := fe.OrNil(); err != nil {
		return err
	}
	ok, err := s.emailSvc.VerifyCode(ctx, email, code)
	if err != nil || !ok {
		fe.Add("code", "The code is invalid or has expired.")
		return fe
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	return s.Logout(ctx, user.ID)
}

// issue 每次登录开启新会话，旧会话的 refresh 随之失效
func (s *UserService) issue(ctx context.Context, usrID uint64) (*pkg.Pair, error) {
	sid := uuid.NewString()
	pair, err := s.tokens.GeneratePair(usrID, sid)
	if err != nil {
		return nil, err
	}
	if err = s.store(ctx, usrID, sid, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) store(ctx context.Context, usrID uint64, sid string, pair *pkg.Pair) error {
	if err := s.rUser.SetSession(ctx, usrID, sid); err != nil {
		return err
	}
	return s.rUser.AddUserToken(ctx, usrID, pair.AccessToken)
}

func (s *UserService) setPassword(ctx context.Context, user *model.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user, string(hash))
}

func validatePassword(fe *FormError, field, password string) {
	if utf8.RuneCountInString(password) < minPasswordLen {
		fe.Add(field, "This password is too short. It must contain at least 8 characters.")
	}
}

// DeleteByUsername 删除用户及其帖子、评论和关注关系
func (s *UserService) DeleteByUsername(ctx context.Context, username string) error {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if _, err = s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	_ = s.rUser.DeleteUserToken(ctx, user.ID)
	s.log.Info("user", "deleted user_id="+pkg.MakeKeyFromID(user.ID))
	return nil
}
