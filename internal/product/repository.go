package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	LockByID(ctx context.Context, id string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error

	// Uniqueness
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	ExistsName(ctx context.Context, name, excludeID string) (bool, error)

	// Attached categories, and the immediate children of a set of categories
	FindCategories(ctx context.Context, productID string) ([]model.Category, error)
	FindCategoryChildren(ctx context.Context, parentIDs []string) ([]model.Category, error)
	FindIDsByCategories(ctx context.Context, categoryIDs []string) ([]string, error)
}

// CategoryLinker maintains the category_product association.
type CategoryLinker interface {
	// MissingCategoryIDs returns the ids that name no category.
	MissingCategoryIDs(ctx context.Context, categoryIDs []string) ([]string, error)
	// Attach inserts the pairs that are not linked yet.
	Attach(ctx context.Context, productID string, categoryIDs []string) error
	// Sync makes categoryIDs the exact attached set. Pairs already present
	// are not rewritten.
	Sync(ctx context.Context, productID string, categoryIDs []string) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
