package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/httpapi"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
)

type CategoryHandler struct {
	uc     category.UseCase
	rs     *httpapi.Responder
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, rs *httpapi.Responder, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		rs:     rs,
		logger: log,
	}
}

func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Patch("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
}

type createCategoryRequest struct {
	Name          string                 `json:"name" validate:"max=255"`
	ParentID      *string                `json:"parent_id" validate:"omitempty,uuid"`
	Subcategories []dto.SubcategoryInput `json:"subcategories" validate:"max=100,dive"`
}

type updateCategoryRequest struct {
	Name          *string                `json:"name" validate:"omitempty,max=255"`
	ParentID      dto.OptionalID         `json:"parent_id"`
	Subcategories []dto.SubcategoryInput `json:"subcategories" validate:"max=100,dive"`
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}

	input := &dto.CreateCategoryTreeInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	}
	for i, sub := range req.Subcategories {
		// Ids only address existing children, which a new node cannot have.
		if sub.ID != "" {
			h.rs.Error(w, r, apperror.New(apperror.KindValidation, "subcategories[%d].id is only accepted on update", i))
			return
		}
		input.Subcategories = append(input.Subcategories, sub.Name)
	}

	created, err := h.uc.CreateCategoryTree(r.Context(), input)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	h.rs.Success(w, r, http.StatusCreated, "category.created", "categories", dto.NewCategoryResponses(created))
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	forest, err := h.uc.ListCategoryTree(r.Context())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "", "categories", dto.NewCategoryResponses(forest))
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.URLParamID(r, "id", "category")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	cat, err := h.uc.GetCategory(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "", "category", dto.NewCategoryResponse(*cat))
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.URLParamID(r, "id", "category")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	var req updateCategoryRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if req.ParentID.Value != nil {
		if _, err := uuid.Parse(*req.ParentID.Value); err != nil {
			h.rs.Error(w, r, apperror.Validation("parent_id failed on the 'uuid' rule"))
			return
		}
	}

	touched, err := h.uc.UpdateCategoryTree(r.Context(), &dto.UpdateCategoryTreeInput{
		ID:            id,
		Name:          req.Name,
		ParentID:      req.ParentID,
		Subcategories: req.Subcategories,
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	h.rs.Success(w, r, http.StatusOK, "category.updated", "categories", dto.NewCategoryResponses(touched))
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.URLParamID(r, "id", "category")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	deleted, err := h.uc.DeleteCategory(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Success(w, r, http.StatusOK, "category.deleted", "category", dto.NewCategoryResponse(*deleted))
}
