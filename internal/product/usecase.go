package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) (*model.Product, error)

	// Category links
	AttachCategories(ctx context.Context, productID string, categoryIDs []string) (*model.Product, error)
	SyncCategories(ctx context.Context, productID string, categoryIDs []string) (*model.Product, error)

	// Derived state upkeep after category changes
	ProductIDsByCategories(ctx context.Context, categoryIDs []string) ([]string, error)
	RefreshProducts(ctx context.Context, productIDs []string) error
}
