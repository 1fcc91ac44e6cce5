package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/artbid/marketplace/internal/models"
	pkgmdw "github.com/artbid/marketplace/internal/server/middleware"
	"github.com/artbid/marketplace/internal/usecase"
)

type fakeProductUsecase struct {
	created      *usecase.CreateProductParams
	deleteErr    error
	getErr       error
	product      *models.Product
	details      *models.ProductDetails
	adminDeleted int64
}

func (f *fakeProductUsecase) Create(ctx context.Context, params usecase.CreateProductParams) (*models.Product, error) {
	f.created = &params
	return f.product, nil
}

func (f *fakeProductUsecase) ListAll(ctx context.Context) ([]*models.ProductDetails, error) {
	return []*models.ProductDetails{}, nil
}

func (f *fakeProductUsecase) ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]*models.ProductDetails, error) {
	return []*models.ProductDetails{}, nil
}

func (f *fakeProductUsecase) ListWon(ctx context.Context, userID primitive.ObjectID) ([]*models.ProductDetails, error) {
	return []*models.ProductDetails{}, nil
}

func (f *fakeProductUsecase) ListSold(ctx context.Context) ([]*models.ProductDetails, error) {
	return []*models.ProductDetails{}, nil
}

func (f *fakeProductUsecase) Get(ctx context.Context, id primitive.ObjectID) (*models.ProductDetails, error) {
	return f.details, f.getErr
}

func (f *fakeProductUsecase) GetBySlug(ctx context.Context, slug string) (*models.ProductDetails, error) {
	return f.details, f.getErr
}

func (f *fakeProductUsecase) Update(ctx context.Context, callerID, id primitive.ObjectID, params usecase.UpdateProductParams) (*models.Product, error) {
	return f.product, nil
}

func (f *fakeProductUsecase) Delete(ctx context.Context, callerID, id primitive.ObjectID) error {
	return f.deleteErr
}

func (f *fakeProductUsecase) VerifyAndSetCommission(ctx context.Context, id primitive.ObjectID, commission float64) (*models.Product, error) {
	return f.product, nil
}

func (f *fakeProductUsecase) ListForAdmin(ctx context.Context) ([]*models.ProductDetails, error) {
	return []*models.ProductDetails{}, nil
}

func (f *fakeProductUsecase) DeleteForAdmin(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	return f.adminDeleted, nil
}

func newTestContext(t *testing.T, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = pkgmdw.NewValidator()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreateProduct(t *testing.T) {
	owner := primitive.NewObjectID()
	fake := &fakeProductUsecase{
		product: &models.Product{
			ID:     primitive.NewObjectID(),
			UserID: owner,
			Title:  "Old Chair",
			Slug:   "old-chair",
			Price:  50,
		},
	}
	h := NewController(fake)

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Old Chair",
		"description": "Wooden",
		"price":       "50",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	c, rec := newTestContext(t, req)
	c.Set(pkgmdw.ContextUserID, owner.Hex())

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, fake.created)
	assert.Equal(t, owner, fake.created.UserID)
	assert.Equal(t, "Old Chair", fake.created.Title)
	assert.Equal(t, float64(50), fake.created.Price)
	assert.Nil(t, fake.created.File)

	var resp struct {
		Success bool           `json:"success"`
		Data    models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "old-chair", resp.Data.Slug)
}

func TestCreateProductMissingFields(t *testing.T) {
	fake := &fakeProductUsecase{}
	h := NewController(fake)

	body, contentType := multipartBody(t, map[string]string{
		"description": "Wooden",
		"price":       "50",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	c, _ := newTestContext(t, req)
	c.Set(pkgmdw.ContextUserID, primitive.NewObjectID().Hex())

	err := h.Create(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Nil(t, fake.created, "nothing persisted on validation failure")
}

func TestCreateProductWithFile(t *testing.T) {
	owner := primitive.NewObjectID()
	fake := &fakeProductUsecase{product: &models.Product{ID: primitive.NewObjectID()}}
	h := NewController(fake)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("title", "Old Chair"))
	require.NoError(t, writer.WriteField("description", "Wooden"))
	require.NoError(t, writer.WriteField("price", "50"))
	part, err := writer.CreateFormFile("image", "chair.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())

	c, rec := newTestContext(t, req)
	c.Set(pkgmdw.ContextUserID, owner.Hex())

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, fake.created.File)
	assert.Equal(t, "chair.jpg", fake.created.File.Name)
}

func TestGetProductNotFound(t *testing.T) {
	fake := &fakeProductUsecase{getErr: models.ErrNotFound}
	h := NewController(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/products/"+primitive.NewObjectID().Hex(), nil)
	c, _ := newTestContext(t, req)
	c.SetParamNames("id")
	c.SetParamValues(primitive.NewObjectID().Hex())

	err := h.Get(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetProductInvalidID(t *testing.T) {
	h := NewController(&fakeProductUsecase{})

	req := httptest.NewRequest(http.MethodGet, "/api/products/not-an-id", nil)
	c, _ := newTestContext(t, req)
	c.SetParamNames("id")
	c.SetParamValues("not-an-id")

	err := h.Get(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestDeleteProductNotOwner(t *testing.T) {
	fake := &fakeProductUsecase{deleteErr: models.ErrNotOwner}
	h := NewController(fake)

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+primitive.NewObjectID().Hex(), nil)
	c, _ := newTestContext(t, req)
	c.Set(pkgmdw.ContextUserID, primitive.NewObjectID().Hex())
	c.SetParamNames("id")
	c.SetParamValues(primitive.NewObjectID().Hex())

	err := h.Delete(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAdminDelete(t *testing.T) {
	fake := &fakeProductUsecase{adminDeleted: 2}
	h := NewController(fake)

	payload := `{"product_ids":["` + primitive.NewObjectID().Hex() + `","` + primitive.NewObjectID().Hex() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/admin/delete", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	c, rec := newTestContext(t, req)
	require.NoError(t, h.AdminDelete(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 products deleted successfully")
}

func TestAdminDeleteRejectsBadID(t *testing.T) {
	h := NewController(&fakeProductUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/api/products/admin/delete", strings.NewReader(`{"product_ids":["nope"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	c, _ := newTestContext(t, req)
	err := h.AdminDelete(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
