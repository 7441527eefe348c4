package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/search"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/slug"
)

const (
	getCacheKey = "products:get:%s"
	cacheTTL    = 5 * time.Minute
)

// IndexMapping is the Elasticsearch mapping of the product index.
const IndexMapping = `{
	"mappings": {
		"properties": {
			"name": { "type": "text" },
			"slug": { "type": "keyword" },
			"description": { "type": "text" },
			"price": { "type": "double" },
			"stock": { "type": "integer" },
			"sku": { "type": "keyword" },
			"is_active": { "type": "boolean" },
			"category_ids": { "type": "keyword" },
			"category_names": { "type": "text" },
			"created_at": { "type": "date" },
			"updated_at": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	repo   product.Repository
	links  product.CategoryLinker
	tx     product.Transactor
	cache  *cache.RedisClient
	es     *search.Client
	index  string
	slugs  *slug.Generator
	logger logger.ZapLogger
}

// NewProductUseCase builds the product service. redis and es may be nil.
func NewProductUseCase(repo product.Repository, links product.CategoryLinker, tx product.Transactor, redis *cache.RedisClient, es *search.Client, index string, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		links:  links,
		tx:     tx,
		cache:  redis,
		es:     es,
		index:  index,
		slugs:  slug.NewGenerator(repo, "product"),
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("name must not be empty")
	}
	categoryIDs := dedupe(input.CategoryIDs)

	var p *model.Product
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.ensureNameFree(ctx, name, ""); err != nil {
			return err
		}
		s, err := uc.slugs.Generate(ctx, name)
		if err != nil {
			return err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		p = &model.Product{
			BaseModel:   model.BaseModel{ID: id.String(), CreatedAt: now, UpdatedAt: now},
			Name:        name,
			Slug:        s,
			Description: input.Description,
			Price:       input.Price,
			Stock:       input.Stock,
			SKU:         input.SKU,
			IsActive:    input.IsActive,
			ImagePath:   input.ImagePath,
		}
		if err := uc.repo.Create(ctx, p); err != nil {
			return err
		}

		if len(categoryIDs) > 0 {
			if err := uc.ensureCategoriesExist(ctx, categoryIDs); err != nil {
				return err
			}
			if err := uc.links.Attach(ctx, p.ID, categoryIDs); err != nil {
				return err
			}
		}
		return uc.loadCategories(ctx, p)
	})
	if err != nil {
		return nil, uc.fail("create product", err)
	}

	go uc.syncToElastic(context.Background(), *p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	key := fmt.Sprintf(getCacheKey, id)
	if uc.cache != nil {
		var cached model.Product
		err := uc.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, uc.fail("get product", err)
	}
	if p == nil {
		return nil, apperror.NotFound("product", id)
	}
	if err := uc.loadCategories(ctx, p); err != nil {
		return nil, uc.fail("get product", err)
	}

	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, key, p, cacheTTL); err != nil {
			uc.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	var p *model.Product
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = uc.repo.LockByID(ctx, input.ID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NotFound("product", input.ID)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperror.Validation("name must not be empty")
			}
			if name != p.Name {
				if err := uc.ensureNameFree(ctx, name, p.ID); err != nil {
					return err
				}
				p.Name = name
			}
		}
		if input.Description != nil {
			p.Description = input.Description
		}
		if input.Price != nil {
			p.Price = *input.Price
		}
		if input.Stock != nil {
			p.Stock = *input.Stock
		}
		if input.SKU != nil {
			p.SKU = input.SKU
		}
		if input.IsActive != nil {
			p.IsActive = *input.IsActive
		}
		if input.ImagePath != nil {
			p.ImagePath = input.ImagePath
		}
		p.UpdatedAt = time.Now().UTC()

		if err := uc.repo.Update(ctx, p); err != nil {
			return err
		}
		if input.CategoryIDs != nil {
			if err := uc.syncLinks(ctx, p.ID, *input.CategoryIDs); err != nil {
				return err
			}
		}
		return uc.loadCategories(ctx, p)
	})
	if err != nil {
		return nil, uc.fail("update product", err)
	}

	uc.invalidateProduct(ctx, p.ID)
	go uc.syncToElastic(context.Background(), *p)
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) (*model.Product, error) {
	var p *model.Product
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = uc.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NotFound("product", id)
		}
		if err := uc.loadCategories(ctx, p); err != nil {
			return err
		}
		return uc.repo.Delete(ctx, id)
	})
	if err != nil {
		return nil, uc.fail("delete product", err)
	}

	uc.invalidateProduct(ctx, id)
	go uc.removeFromElastic(context.Background(), id)
	return p, nil
}

func (uc *productUseCase) AttachCategories(ctx context.Context, productID string, categoryIDs []string) (*model.Product, error) {
	return uc.relink(ctx, "attach product categories", productID, func(ctx context.Context) error {
		ids := dedupe(categoryIDs)
		if err := uc.ensureCategoriesExist(ctx, ids); err != nil {
			return err
		}
		return uc.links.Attach(ctx, productID, ids)
	})
}

func (uc *productUseCase) SyncCategories(ctx context.Context, productID string, categoryIDs []string) (*model.Product, error) {
	return uc.relink(ctx, "sync product categories", productID, func(ctx context.Context) error {
		return uc.syncLinks(ctx, productID, categoryIDs)
	})
}

func (uc *productUseCase) relink(ctx context.Context, op, productID string, change func(ctx context.Context) error) (*model.Product, error) {
	var p *model.Product
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = uc.repo.LockByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NotFound("product", productID)
		}
		if err := change(ctx); err != nil {
			return err
		}
		return uc.loadCategories(ctx, p)
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.invalidateProduct(ctx, productID)
	go uc.syncToElastic(context.Background(), *p)
	return p, nil
}

func (uc *productUseCase) ProductIDsByCategories(ctx context.Context, categoryIDs []string) ([]string, error) {
	ids, err := uc.repo.FindIDsByCategories(ctx, categoryIDs)
	if err != nil {
		return nil, uc.fail("find products by categories", err)
	}
	return ids, nil
}

// RefreshProducts drops the cached copies of productIDs and rewrites their
// search documents. Products that no longer exist leave the index.
func (uc *productUseCase) RefreshProducts(ctx context.Context, productIDs []string) error {
	var errs []error
	for _, id := range productIDs {
		uc.invalidateProduct(ctx, id)

		p, err := uc.repo.FindByID(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p == nil {
			uc.removeFromElastic(ctx, id)
			continue
		}
		if err := uc.loadCategories(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		uc.syncToElastic(ctx, *p)
	}
	if len(errs) > 0 {
		return uc.fail("refresh products", errors.Join(errs...))
	}
	return nil
}

func (uc *productUseCase) syncLinks(ctx context.Context, productID string, categoryIDs []string) error {
	ids := dedupe(categoryIDs)
	if err := uc.ensureCategoriesExist(ctx, ids); err != nil {
		return err
	}
	return uc.links.Sync(ctx, productID, ids)
}

func (uc *productUseCase) ensureCategoriesExist(ctx context.Context, ids []string) error {
	missing, err := uc.links.MissingCategoryIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperror.New(apperror.KindUnknownCategory, "unknown categories: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (uc *productUseCase) ensureNameFree(ctx context.Context, name, excludeID string) error {
	exists, err := uc.repo.ExistsName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.DuplicateName(name)
	}
	return nil
}

// loadCategories fills p.Categories, each with its immediate children.
func (uc *productUseCase) loadCategories(ctx context.Context, p *model.Product) error {
	categories, err := uc.repo.FindCategories(ctx, p.ID)
	if err != nil {
		return err
	}
	ids := make([]string, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	children, err := uc.repo.FindCategoryChildren(ctx, ids)
	if err != nil {
		return err
	}

	byParent := make(map[string][]model.Category, len(categories))
	for _, child := range children {
		child.Children = nil
		byParent[*child.ParentID] = append(byParent[*child.ParentID], child)
	}
	for i := range categories {
		categories[i].Children = byParent[categories[i].ID]
		if categories[i].Children == nil {
			categories[i].Children = []model.Category{}
		}
	}
	p.Categories = categories
	return nil
}

func (uc *productUseCase) invalidateProduct(ctx context.Context, id string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, fmt.Sprintf(getCacheKey, id)); err != nil {
		uc.logger.Warn("failed to invalidate product cache", zap.String("product_id", id), zap.Error(err))
	}
}

type productDocument struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   *string   `json:"description,omitempty"`
	Price         float64   `json:"price"`
	Stock         int       `json:"stock"`
	SKU           *string   `json:"sku,omitempty"`
	IsActive      bool      `json:"is_active"`
	CategoryIDs   []string  `json:"category_ids"`
	CategoryNames []string  `json:"category_names"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newProductDocument(p model.Product) productDocument {
	doc := productDocument{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price,
		Stock:         p.Stock,
		SKU:           p.SKU,
		IsActive:      p.IsActive,
		CategoryIDs:   []string{},
		CategoryNames: []string{},
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, c := range p.Categories {
		doc.CategoryIDs = append(doc.CategoryIDs, c.ID)
		doc.CategoryNames = append(doc.CategoryNames, c.Name)
	}
	return doc
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p model.Product) {
	if uc.es == nil {
		return
	}
	if err := uc.es.Index(ctx, uc.index, p.ID, newProductDocument(p)); err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) removeFromElastic(ctx context.Context, id string) {
	if uc.es == nil {
		return
	}
	if err := uc.es.Delete(ctx, uc.index, id); err != nil {
		uc.logger.Error("failed to remove product from index", zap.String("product_id", id), zap.Error(err))
	}
}

func (uc *productUseCase) fail(op string, err error) error {
	err = apperror.FromStore(op, err)
	if apperror.KindOf(err) == apperror.KindStoreFailure {
		uc.logger.Error(op+" failed", zap.Error(err))
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
