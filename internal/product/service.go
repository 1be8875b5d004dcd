package product

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: apperror.NewValidator()}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// ListByCategory returns every product when category is blank.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.repo.List(ctx)
	}
	return s.repo.ListByCategory(ctx, category)
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByIDs(ctx context.Context, ids []int) (map[int]Product, error) {
	return s.repo.GetByIDs(ctx, ids)
}

func (s *Service) GetRandom(ctx context.Context, category string) (Product, error) {
	return s.repo.Random(ctx, strings.TrimSpace(category))
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	in = in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return Product{}, apperror.FromValidation(err)
	}
	return s.repo.Create(ctx, in.apply(Product{}))
}

func (s *Service) Update(ctx context.Context, id int, in Input) (Product, error) {
	in = in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return Product{}, apperror.FromValidation(err)
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Update(ctx, id, in.apply(current))
}

func (s *Service) Delete(ctx context.Context, id int) (Product, error) {
	return s.repo.Delete(ctx, id)
}
