package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, slug, description, price, stock, sku, is_active, image_path, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) conn(ctx context.Context) postgres.Executor {
	return postgres.Conn(ctx, r.DB)
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, name, slug, description, price, stock, sku,
            is_active, image_path, created_at, updated_at
        )
        VALUES (
            :id, :name, :slug, :description, :price, :stock, :sku,
            :is_active, :image_path, :created_at, :updated_at
        )
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepository) LockByID(ctx context.Context, id string) (*model.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query, id string) (*model.Product, error) {
	var product model.Product
	err := r.conn(ctx).GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// Update writes every mutable column. The slug is fixed at creation.
func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET name = :name,
            description = :description,
            price = :price,
            stock = :stock,
            sku = :sku,
            is_active = :is_active,
            image_path = :image_path,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.conn(ctx).NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	return requireRow(res, p.ID)
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// SlugsWithPrefix returns base itself and every base-<suffix> slug. Slugs
// only hold [a-z0-9-] so base needs no LIKE escaping.
func (r *PGRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	slugs := []string{}
	query := `SELECT slug FROM products WHERE slug = $1 OR slug LIKE $1 || '-%' ORDER BY slug`
	if err := r.conn(ctx).SelectContext(ctx, &slugs, query, base); err != nil {
		return nil, err
	}
	return slugs, nil
}

func (r *PGRepository) ExistsName(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)`
	args := []interface{}{name}
	if excludeID != "" {
		query = `SELECT EXISTS(SELECT 1 FROM products WHERE name = $1 AND id <> $2)`
		args = append(args, excludeID)
	}

	var exists bool
	err := r.conn(ctx).GetContext(ctx, &exists, query, args...)
	return exists, err
}

// FindCategories returns the categories linked to productID in the order
// they were attached.
func (r *PGRepository) FindCategories(ctx context.Context, productID string) ([]model.Category, error) {
	categories := []model.Category{}
	query := `
        SELECT c.id, c.name, c.slug, c.parent_id, c.created_at, c.updated_at
        FROM categories c
        JOIN category_product cp ON cp.category_id = c.id
        WHERE cp.product_id = $1
        ORDER BY cp.created_at ASC, c.created_at ASC, c.id ASC
    `
	if err := r.conn(ctx).SelectContext(ctx, &categories, query, productID); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PGRepository) FindCategoryChildren(ctx context.Context, parentIDs []string) ([]model.Category, error) {
	categories := []model.Category{}
	if len(parentIDs) == 0 {
		return categories, nil
	}
	query := `
        SELECT id, name, slug, parent_id, created_at, updated_at
        FROM categories
        WHERE parent_id = ANY($1::uuid[])
        ORDER BY created_at ASC, id ASC
    `
	if err := r.conn(ctx).SelectContext(ctx, &categories, query, parentIDs); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PGRepository) FindIDsByCategories(ctx context.Context, categoryIDs []string) ([]string, error) {
	ids := []string{}
	if len(categoryIDs) == 0 {
		return ids, nil
	}
	query := `
        SELECT DISTINCT product_id
        FROM category_product
        WHERE category_id = ANY($1::uuid[])
        ORDER BY product_id
    `
	if err := r.conn(ctx).SelectContext(ctx, &ids, query, categoryIDs); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PGRepository) MissingCategoryIDs(ctx context.Context, categoryIDs []string) ([]string, error) {
	missing := []string{}
	if len(categoryIDs) == 0 {
		return missing, nil
	}
	query := `
        SELECT u.id::text
        FROM unnest($1::uuid[]) AS u(id)
        WHERE NOT EXISTS (SELECT 1 FROM categories c WHERE c.id = u.id)
    `
	if err := r.conn(ctx).SelectContext(ctx, &missing, query, categoryIDs); err != nil {
		return nil, err
	}
	return missing, nil
}

func (r *PGRepository) Attach(ctx context.Context, productID string, categoryIDs []string) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	query := `
        INSERT INTO category_product (product_id, category_id, created_at, updated_at)
        SELECT $1, u.id, NOW(), NOW()
        FROM unnest($2::uuid[]) AS u(id)
        ON CONFLICT (product_id, category_id) DO NOTHING
    `
	_, err := r.conn(ctx).ExecContext(ctx, query, productID, categoryIDs)
	return err
}

func (r *PGRepository) Sync(ctx context.Context, productID string, categoryIDs []string) error {
	query := `DELETE FROM category_product WHERE product_id = $1 AND NOT (category_id = ANY($2::uuid[]))`
	if _, err := r.conn(ctx).ExecContext(ctx, query, productID, nonNil(categoryIDs)); err != nil {
		return err
	}
	return r.Attach(ctx, productID, categoryIDs)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("product", id)
	}
	return nil
}
