package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fekuna/omnipos-catalog-service/internal/httpapi"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

type ProductHandler struct {
	uc     product.UseCase
	rs     *httpapi.Responder
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, rs *httpapi.Responder, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		rs:     rs,
		logger: log,
	}
}

func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Patch("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Post("/{id}/categories", h.AttachCategories)
		r.Put("/{id}/categories", h.SyncCategories)
	})
}

type createProductRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description *string  `json:"description"`
	Price       float64  `json:"price" validate:"min=0"`
	Stock       int      `json:"stock" validate:"min=0"`
	SKU         *string  `json:"sku" validate:"omitempty,max=100"`
	IsActive    *bool    `json:"is_active"`
	ImagePath   *string  `json:"image_path" validate:"omitempty,max=255"`
	Categories  []string `json:"categories" validate:"dive,uuid"`
}

type updateProductRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=255"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price" validate:"omitempty,min=0"`
	Stock       *int      `json:"stock" validate:"omitempty,min=0"`
	SKU         *string   `json:"sku" validate:"omitempty,max=100"`
	IsActive    *bool     `json:"is_active"`
	ImagePath   *string   `json:"image_path" validate:"omitempty,max=255"`
	Categories  *[]string `json:"categories" validate:"omitempty,dive,uuid"`
}

type categoriesRequest struct {
	Categories []string `json:"categories" validate:"required,dive,uuid"`
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}

	// Products are listed unless the client says otherwise.
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	p, err := h.uc.CreateProduct(r.Context(), &dto.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		SKU:         req.SKU,
		IsActive:    isActive,
		ImagePath:   req.ImagePath,
		CategoryIDs: req.Categories,
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusCreated, "product.created", "product", dto.NewProductResponse(*p))
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.URLParamID(r, "id", "product")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	p, err := h.uc.GetProduct(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "", "product", dto.NewProductResponse(*p))
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.URLParamID(r, "id", "product")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	var req updateProductRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}

	p, err := h.uc.UpdateProduct(r.Context(), &dto.UpdateProductInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		SKU:         req.SKU,
		IsActive:    req.IsActive,
		ImagePath:   req.ImagePath,
		CategoryIDs: req.Categories,
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "product.updated", "product", dto.NewProductResponse(*p))
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.URLParamID(r, "id", "product")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	p, err := h.uc.DeleteProduct(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "product.deleted", "product", dto.NewProductResponse(*p))
}

func (h *ProductHandler) AttachCategories(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeCategories(w, r)
	if !ok {
		return
	}

	p, err := h.uc.AttachCategories(r.Context(), id, req.Categories)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "product.categories_attached", "product", dto.NewProductResponse(*p))
}

func (h *ProductHandler) SyncCategories(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeCategories(w, r)
	if !ok {
		return
	}

	p, err := h.uc.SyncCategories(r.Context(), id, req.Categories)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "product.categories_synced", "product", dto.NewProductResponse(*p))
}

func (h *ProductHandler) decodeCategories(w http.ResponseWriter, r *http.Request) (string, categoriesRequest, bool) {
	var req categoriesRequest
	id, err := httpapi.URLParamID(r, "id", "product")
	if err != nil {
		h.rs.Error(w, r, err)
		return "", req, false
	}
	if err := httpapi.Decode(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return "", req, false
	}
	return id, req, true
}
