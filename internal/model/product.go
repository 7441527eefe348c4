package model

import "time"

type Product struct {
	BaseModel
	Name        string     `db:"name" json:"name"`
	Slug        string     `db:"slug" json:"slug"`
	Description *string    `db:"description" json:"description"`
	Price       float64    `db:"price" json:"price"`
	Stock       int        `db:"stock" json:"stock"`
	SKU         *string    `db:"sku" json:"sku"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	ImagePath   *string    `db:"image_path" json:"image_path"`
	Categories  []Category `db:"-" json:"categories"` // Joined through category_product
}

// ProductCategory is one row of the product/category association.
type ProductCategory struct {
	ProductID  string    `db:"product_id" json:"product_id"`
	CategoryID string    `db:"category_id" json:"category_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
