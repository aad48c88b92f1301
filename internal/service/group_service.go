package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"Yatube/internal/model"
	"Yatube/internal/pkg"
	"Yatube/internal/repository/database"

	"gorm.io/gorm"
)

var slugRe = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

type GroupService struct {
	repo *database.GroupRepository
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{repo: &database.GroupRepository{DB: db}}
}

func (s *GroupService) GetBySlug(ctx context.Context, slug string) (*model.Group, error) {
	g, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, slug)
		}
		return nil, err
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context) ([]model.Group, error) {
	return s.repo.List(ctx)
}

// Page 分组列表的一页，分组数量很少，直接在内存里分页
func (s *GroupService) Page(ctx context.Context, rawPage string) (pkg.Paginated[model.Group], error) {
	groups, err := s.repo.List(ctx)
	if err != nil {
		return pkg.Paginated[model.Group]{}, err
	}
	return pkg.Paginate(groups, rawPage, pkg.PageSize), nil
}

func (s *GroupService) Create(ctx context.Context, title, slug, description string) (*model.Group, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	fe := NewFormError()
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		fe.Add("title", "This field is required.")
	case n > model.GroupTitleMaxLen:
		fe.Add("title", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", model.GroupTitleMaxLen, n))
	}
	switch {
	case !slugRe.MatchString(slug):
		fe.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	case len(slug) > model.GroupSlugMaxLen:
		fe.Add("slug", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", model.GroupSlugMaxLen, len(slug)))
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	g := &model.Group{Title: title, Slug: slug, Description: description}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete 删除分组，原分组下的帖子保留
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	_, err := s.repo.DeleteBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, slug)
	}
	return err
}
