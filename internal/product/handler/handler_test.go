package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/httpapi"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/i18n"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

const (
	productID = "0190d5a4-0000-7000-8000-0000000000a1"
	phonesID  = "0190d5a4-0000-7000-8000-000000000002"
	laptopsID = "0190d5a4-0000-7000-8000-000000000003"
)

type stubUseCase struct {
	createInput *dto.CreateProductInput
	updateInput *dto.UpdateProductInput
	linkCall    string
	linkIDs     []string
	result      model.Product
	err         error
}

func (s *stubUseCase) CreateProduct(_ context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	s.createInput = input
	return s.reply()
}

func (s *stubUseCase) GetProduct(context.Context, string) (*model.Product, error) {
	return s.reply()
}

func (s *stubUseCase) UpdateProduct(_ context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	s.updateInput = input
	return s.reply()
}

func (s *stubUseCase) DeleteProduct(context.Context, string) (*model.Product, error) {
	return s.reply()
}

func (s *stubUseCase) AttachCategories(_ context.Context, _ string, ids []string) (*model.Product, error) {
	s.linkCall, s.linkIDs = "attach", ids
	return s.reply()
}

func (s *stubUseCase) SyncCategories(_ context.Context, _ string, ids []string) (*model.Product, error) {
	s.linkCall, s.linkIDs = "sync", ids
	return s.reply()
}

func (s *stubUseCase) ProductIDsByCategories(context.Context, []string) ([]string, error) {
	return nil, nil
}

func (s *stubUseCase) RefreshProducts(context.Context, []string) error {
	return nil
}

func (s *stubUseCase) reply() (*model.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := s.result
	return &p, nil
}

func surface() model.Product {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	return model.Product{
		BaseModel: model.BaseModel{ID: productID, CreatedAt: now, UpdatedAt: now},
		Name:      "Surface",
		Slug:      "surface",
		Price:     999,
		IsActive:  true,
		Categories: []model.Category{{
			BaseModel: model.BaseModel{ID: phonesID, CreatedAt: now, UpdatedAt: now},
			Name:      "Phones",
			Slug:      "phones",
			Children:  []model.Category{},
		}},
	}
}

func newServer(t *testing.T, uc *stubUseCase) http.Handler {
	t.Helper()
	translator, err := i18n.New()
	require.NoError(t, err)
	log := logger.NewNop()
	h := NewProductHandler(uc, httpapi.NewResponder(translator, log), log)
	return httpapi.NewRouter(httpapi.RouterConfig{AllowedOrigins: []string{"*"}}, log, h)
}

func do(t *testing.T, srv http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestCreateProduct(t *testing.T) {
	uc := &stubUseCase{result: surface()}
	srv := newServer(t, uc)

	rec, body := do(t, srv, http.MethodPost, "/api/v1/products",
		`{"name":"Surface","price":999,"stock":3,"categories":["`+phonesID+`"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Surface", uc.createInput.Name)
	assert.True(t, uc.createInput.IsActive)
	assert.Equal(t, []string{phonesID}, uc.createInput.CategoryIDs)

	assert.Equal(t, "Product created successfully.", body["message"])
	p := body["product"].(map[string]interface{})
	assert.Equal(t, "surface", p["slug"])
	categories := p["categories"].([]interface{})
	require.Len(t, categories, 1)
	assert.Equal(t, "Phones", categories[0].(map[string]interface{})["name"])
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"price":1}`},
		{"negative price", `{"name":"Surface","price":-1}`},
		{"negative stock", `{"name":"Surface","stock":-2}`},
		{"category not a uuid", `{"name":"Surface","categories":["phones"]}`},
		{"malformed json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &stubUseCase{result: surface()}
			rec, body := do(t, newServer(t, uc), http.MethodPost, "/api/v1/products", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Nil(t, uc.createInput)
		})
	}
}

func TestUpdateProductIsPartial(t *testing.T) {
	uc := &stubUseCase{result: surface()}
	srv := newServer(t, uc)

	rec, _ := do(t, srv, http.MethodPatch, "/api/v1/products/"+productID, `{"price":899}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, uc.updateInput.ID)
	assert.Nil(t, uc.updateInput.Name)
	assert.Nil(t, uc.updateInput.CategoryIDs)
	require.NotNil(t, uc.updateInput.Price)
	assert.Equal(t, 899.0, *uc.updateInput.Price)

	rec, _ = do(t, srv, http.MethodPut, "/api/v1/products/"+productID, `{"categories":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, uc.updateInput.CategoryIDs)
	assert.Empty(t, *uc.updateInput.CategoryIDs)
}

func TestCategoryLinks(t *testing.T) {
	uc := &stubUseCase{result: surface()}
	srv := newServer(t, uc)

	rec, body := do(t, srv, http.MethodPost, "/api/v1/products/"+productID+"/categories",
		`{"categories":["`+phonesID+`","`+laptopsID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attach", uc.linkCall)
	assert.Equal(t, []string{phonesID, laptopsID}, uc.linkIDs)
	assert.Equal(t, "Categories attached to the product successfully.", body["message"])

	rec, body = do(t, srv, http.MethodPut, "/api/v1/products/"+productID+"/categories", `{"categories":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sync", uc.linkCall)
	assert.Empty(t, uc.linkIDs)
	assert.Equal(t, "Product categories updated successfully.", body["message"])

	rec, _ = do(t, srv, http.MethodPut, "/api/v1/products/"+productID+"/categories", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnknownCategory(t *testing.T) {
	uc := &stubUseCase{err: apperror.New(apperror.KindUnknownCategory, "unknown categories: %s", laptopsID)}
	rec, body := do(t, newServer(t, uc), http.MethodPut, "/api/v1/products/"+productID+"/categories",
		`{"categories":["`+laptopsID+`"]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "UNKNOWN_CATEGORY", body["error"].(map[string]interface{})["kind"])
}

func TestGetAndDeleteProduct(t *testing.T) {
	uc := &stubUseCase{result: surface()}
	srv := newServer(t, uc)

	rec, body := do(t, srv, http.MethodGet, "/api/v1/products/"+productID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, body["product"].(map[string]interface{})["id"])

	rec, body = do(t, srv, http.MethodDelete, "/api/v1/products/"+productID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully.", body["message"])

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/products/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	uc.err = apperror.NotFound("product", productID)
	rec, _ = do(t, srv, http.MethodGet, "/api/v1/products/"+productID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
