package category

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type UseCase interface {
	CreateCategoryTree(ctx context.Context, input *dto.CreateCategoryTreeInput) ([]model.Category, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategoryTree(ctx context.Context) ([]model.Category, error)
	UpdateCategoryTree(ctx context.Context, input *dto.UpdateCategoryTreeInput) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id string) (*model.Category, error)
}
