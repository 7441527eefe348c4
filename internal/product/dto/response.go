package dto

import (
	"time"

	categorydto "github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type ProductResponse struct {
	ID          string                         `json:"id"`
	Name        string                         `json:"name"`
	Slug        string                         `json:"slug"`
	Description *string                        `json:"description"`
	Price       float64                        `json:"price"`
	Stock       int                            `json:"stock"`
	SKU         *string                        `json:"sku"`
	IsActive    bool                           `json:"is_active"`
	ImagePath   *string                        `json:"image_path"`
	Categories  []categorydto.CategoryResponse `json:"categories"`
	CreatedAt   time.Time                      `json:"created_at"`
	UpdatedAt   time.Time                      `json:"updated_at"`
}

func NewProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		SKU:         p.SKU,
		IsActive:    p.IsActive,
		ImagePath:   p.ImagePath,
		Categories:  categorydto.NewCategoryResponses(p.Categories),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
