package category

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/event"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id string) (*model.Category, error)
	LockByID(ctx context.Context, id string) (*model.Category, error)
	FindChildren(ctx context.Context, parentID string) ([]model.Category, error)
	FindDescendants(ctx context.Context, id string) ([]model.Category, error)
	FindAll(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id string) error

	// Ancestor chain step used by the cycle check
	ParentID(ctx context.Context, id string) (*string, error)
	FindSubtreeProductIDs(ctx context.Context, id string) ([]string, error)

	// Uniqueness
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	ExistsName(ctx context.Context, name, excludeID string) (bool, error)
	ExistsID(ctx context.Context, id string) (bool, error)
}

// Transactor runs fn as one unit of work; repositories called with the ctx
// handed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	PublishCategoryEvent(ctx context.Context, evt event.CategoryEvent) error
}
