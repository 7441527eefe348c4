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

const categoryColumns = `id, name, slug, parent_id, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) conn(ctx context.Context) postgres.Executor {
	return postgres.Conn(ctx, r.DB)
}

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (id, name, slug, parent_id, created_at, updated_at)
        VALUES (:id, :name, :slug, :parent_id, :created_at, :updated_at)
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 LIMIT 1`
	err := r.conn(ctx).GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// LockByID is FindByID holding a row lock until the surrounding
// transaction ends.
func (r *PGRepository) LockByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 FOR UPDATE`
	err := r.conn(ctx).GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *PGRepository) FindChildren(ctx context.Context, parentID string) ([]model.Category, error) {
	categories := []model.Category{}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = $1 ORDER BY created_at ASC, id ASC`
	if err := r.conn(ctx).SelectContext(ctx, &categories, query, parentID); err != nil {
		return nil, err
	}
	return categories, nil
}

// FindDescendants returns every node below id, parents before their
// children and siblings in creation order. The depth cap stops the
// recursion even over a corrupted chain.
func (r *PGRepository) FindDescendants(ctx context.Context, id string) ([]model.Category, error) {
	categories := []model.Category{}
	query := `
        WITH RECURSIVE subtree AS (
            SELECT ` + categoryColumns + `, 1 AS depth FROM categories WHERE parent_id = $1
            UNION ALL
            SELECT c.id, c.name, c.slug, c.parent_id, c.created_at, c.updated_at, s.depth + 1
            FROM categories c
            JOIN subtree s ON c.parent_id = s.id
            WHERE s.depth < 1000
        )
        SELECT ` + categoryColumns + `
        FROM subtree
        ORDER BY depth ASC, created_at ASC, id ASC
    `
	if err := r.conn(ctx).SelectContext(ctx, &categories, query, id); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PGRepository) FindAll(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY created_at ASC, id ASC`
	if err := r.conn(ctx).SelectContext(ctx, &categories, query); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update writes name, parent and updated_at. The slug is left alone.
func (r *PGRepository) Update(ctx context.Context, c *model.Category) error {
	query := `
        UPDATE categories
        SET name = :name,
            parent_id = :parent_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.conn(ctx).NamedExecContext(ctx, query, c)
	if err != nil {
		return err
	}
	return requireRow(res, c.ID)
}

// Delete removes the node; the parent_id foreign key cascades to every
// descendant and category_product drops their links.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (r *PGRepository) ParentID(ctx context.Context, id string) (*string, error) {
	var parentID sql.NullString
	err := r.conn(ctx).GetContext(ctx, &parentID, `SELECT parent_id FROM categories WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, err
	}
	if !parentID.Valid {
		return nil, nil
	}
	return &parentID.String, nil
}

// FindSubtreeProductIDs lists the products linked to id or any of its
// descendants.
func (r *PGRepository) FindSubtreeProductIDs(ctx context.Context, id string) ([]string, error) {
	ids := []string{}
	query := `
        WITH RECURSIVE subtree AS (
            SELECT id FROM categories WHERE id = $1
            UNION
            SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
        )
        SELECT DISTINCT cp.product_id
        FROM category_product cp
        JOIN subtree s ON cp.category_id = s.id
        ORDER BY cp.product_id
    `
	if err := r.conn(ctx).SelectContext(ctx, &ids, query, id); err != nil {
		return nil, err
	}
	return ids, nil
}

// SlugsWithPrefix returns base itself and every base-<suffix> slug. Slugs
// only hold [a-z0-9-] so base needs no LIKE escaping.
func (r *PGRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	slugs := []string{}
	query := `SELECT slug FROM categories WHERE slug = $1 OR slug LIKE $1 || '-%' ORDER BY slug`
	if err := r.conn(ctx).SelectContext(ctx, &slugs, query, base); err != nil {
		return nil, err
	}
	return slugs, nil
}

func (r *PGRepository) ExistsName(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	var err error
	if excludeID == "" {
		err = r.conn(ctx).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = $1)`, name)
	} else {
		err = r.conn(ctx).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = $1 AND id <> $2)`, name, excludeID)
	}
	return exists, err
}

func (r *PGRepository) ExistsID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn(ctx).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id)
	return exists, err
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("category", id)
	}
	return nil
}
