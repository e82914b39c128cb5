package application

import (
	"context"
	"regexp"
	"strings"

	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify "Home & Garden" -> "home-garden"
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// CategoryService 分类管理
type CategoryService struct {
	repo domain.CategoryRepository
}

func NewCategoryService(repo domain.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*domain.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errorsx.NotFound("Category not found")
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorsx.Validation("Category name is required")
	}
	c := &domain.Category{Name: name, Slug: Slugify(name), Description: description}
	if err := s.repo.Create(ctx, c); err != nil {
		if db.IsDuplicate(err) {
			return nil, errorsx.Conflict("Category already exists")
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, name, description *string) (*domain.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, errorsx.Validation("Category name is required")
		}
		c.Name, c.Slug = n, Slugify(n)
	}
	if description != nil {
		c.Description = *description
	}
	if err := s.repo.Save(ctx, c); err != nil {
		if db.IsDuplicate(err) {
			return nil, errorsx.Conflict("Category already exists")
		}
		return nil, err
	}
	return c, nil
}

// Delete 仍有商品引用时拒绝删除
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errorsx.Conflict("Category still has products")
	}
	return s.repo.Delete(ctx, id)
}
