package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"Yatube/internal/model"
	"Yatube/internal/pkg"
	"Yatube/internal/repository/database"

	"gorm.io/gorm"
)

const imageDir = "posts"

// Invalidator 写操作后让整页缓存失效
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type PostService struct {
	repo     *database.PostRepository
	comments *database.CommentRepository
	groups   *database.GroupRepository
	media    *pkg.MediaStore
	cache    Invalidator
	log      *pkg.Logger
}

// PostInput 新建/编辑帖子的表单
type PostInput struct {
	Text    string
	GroupID *uint64
	Image   *multipart.FileHeader
}

func NewPostService(db *gorm.DB, media *pkg.MediaStore, cache Invalidator, log *pkg.Logger) *PostService {
	return &PostService{
		repo:     &database.PostRepository{DB: db},
		comments: &database.CommentRepository{DB: db},
		groups:   &database.GroupRepository{DB: db},
		media:    media,
		cache:    cache,
		log:      log,
	}
}

// Index 全站帖子，新的在前
func (s *PostService) Index(ctx context.Context, rawPage string) (pkg.Paginated[model.Post], error) {
	return s.paginate(ctx, rawPage, s.repo.CountAll, s.repo.ListAll)
}

// ByGroup 分组帖子；group 需先由 GroupService 查出
func (s *PostService) ByGroup(ctx context.Context, groupID uint64, rawPage string) (pkg.Paginated[model.Post], error) {
	return s.paginate(ctx, rawPage,
		func(ctx context.Context) (int64, error) { return s.repo.CountByGroup(ctx, groupID) },
		func(ctx context.Context, offset, limit int) ([]model.Post, error) {
			return s.repo.ListByGroup(ctx, groupID, offset, limit)
		})
}

// ByAuthor 个人主页帖子
func (s *PostService) ByAuthor(ctx context.Context, authorID uint64, rawPage string) (pkg.Paginated[model.Post], error) {
	return s.paginate(ctx, rawPage,
		func(ctx context.Context) (int64, error) { return s.repo.CountByAuthor(ctx, authorID) },
		func(ctx context.Context, offset, limit int) ([]model.Post, error) {
			return s.repo.ListByAuthor(ctx, authorID, offset, limit)
		})
}

func (s *PostService) paginate(
	ctx context.Context,
	rawPage string,
	count func(context.Context) (int64, error),
	list func(context.Context, int, int) ([]model.Post, error),
) (pkg.Paginated[model.Post], error) {
	total, err := count(ctx)
	if err != nil {
		return pkg.Paginated[model.Post]{}, err
	}
	page := pkg.NewPage(rawPage, total, pkg.PageSize)
	items, err := list(ctx, page.Offset(), page.Limit())
	if err != nil {
		return pkg.Paginated[model.Post]{}, err
	}
	return pkg.Paginated[model.Post]{Page: page, Items: items}, nil
}

// Get 按 id 查帖子，作者用户名必须与 URL 中一致
func (s *PostService) Get(ctx context.Context, username string, postID uint64) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrPostNotFound, postID)
		}
		return nil, err
	}
	if post.Author.Username != username {
		return nil, fmt.Errorf("%w: %d by %s", ErrPostNotFound, postID, username)
	}
	return post, nil
}

func (s *PostService) Comments(ctx context.Context, postID uint64) ([]model.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// Create 新建帖子
func (s *PostService) Create(ctx context.Context, authorID uint64, in PostInput) (*model.Post, error) {
	post := &model.Post{AuthorID: authorID}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, post); err != nil {
		_ = s.media.Remove(post.Image)
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("post", fmt.Sprintf("created post %d by user_id=%d", post.ID, authorID))
	return post, nil
}

// Update 只有作者可以编辑；created_at 不变
func (s *PostService) Update(ctx context.Context, editorID uint64, post *model.Post, in PostInput) error {
	if post.AuthorID != editorID {
		return ErrNotAuthor
	}
	oldImage := post.Image
	if err := s.apply(ctx, post, in); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, post); err != nil {
		if post.Image != oldImage {
			_ = s.media.Remove(post.Image)
		}
		return err
	}
	if oldImage != "" && post.Image != oldImage {
		if err := s.media.Remove(oldImage); err != nil {
			s.log.Error("post", "remove replaced image", err)
		}
	}
	s.invalidate(ctx)
	return nil
}

// Delete 删除帖子、评论和图片文件
func (s *PostService) Delete(ctx context.Context, postID uint64) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrPostNotFound, postID)
		}
		return err
	}
	if _, err = s.repo.Delete(ctx, post.ID); err != nil {
		return err
	}
	if post.Image != "" {
		if err = s.media.Remove(post.Image); err != nil {
			s.log.Error("post", "remove image of deleted post", err)
		}
	}
	s.invalidate(ctx)
	s.log.Info("post", fmt.Sprintf("deleted post %d", post.ID))
	return nil
}

// AddComment 给帖子加评论
func (s *PostService) AddComment(ctx context.Context, authorID uint64, post *model.Post, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	fe := NewFormError()
	validateText(fe, text, model.CommentTextMaxLen)
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	c := &model.Comment{PostID: post.ID, AuthorID: authorID, Text: text}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// apply 校验表单并写入 post，图片在校验通过后才落盘
func (s *PostService) apply(ctx context.Context, post *model.Post, in PostInput) error {
	text := strings.TrimSpace(in.Text)
	fe := NewFormError()
	validateText(fe, text, model.PostTextMaxLen)

	var group *model.Group
	if in.GroupID != nil {
		g, err := s.groups.FindByID(ctx, *in.GroupID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fe.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			return err
		default:
			group = g
		}
	}
	if err := fe.OrNil(); err != nil {
		return err
	}

	if in.Image != nil {
		rel, err := s.media.SaveImage(imageDir, in.Image)
		if err != nil {
			if errors.Is(err, pkg.ErrNotAnImage) || errors.Is(err, pkg.ErrImageTooBig) {
				fe.Add("image", err.Error())
				return fe
			}
			return err
		}
		post.Image = rel
	}
	post.Text = text
	post.GroupID = in.GroupID
	post.Group = group
	return nil
}

func (s *PostService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Error("post", "invalidate page cache", err)
	}
}

func validateText(fe *FormError, text string, max int) {
	switch {
	case text == "":
		fe.Add("text", "This field is required.")
	case utf8.RuneCountInString(text) > max:
		fe.Add("text", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, utf8.RuneCountInString(text)))
	}
}
