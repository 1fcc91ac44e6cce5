package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/artbid/marketplace/internal/models"
	pkgmdw "github.com/artbid/marketplace/internal/server/middleware"
	"github.com/artbid/marketplace/internal/usecase"
)

type Controller interface {
	Health(c echo.Context) error

	Create(c echo.Context) error
	ListAll(c echo.Context) error
	ListMine(c echo.Context) error
	ListWon(c echo.Context) error
	ListSold(c echo.Context) error
	Get(c echo.Context) error
	GetBySlug(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error

	AdminList(c echo.Context) error
	AdminVerify(c echo.Context) error
	AdminDelete(c echo.Context) error
}

type controller struct {
	products usecase.ProductUsecase
}

func NewController(products usecase.ProductUsecase) Controller {
	return &controller{
		products: products,
	}
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "product-service",
	})
}

type CreateProductRequest struct {
	Title       string  `form:"title" validate:"required"`
	Description string  `form:"description" validate:"required"`
	Price       float64 `form:"price" validate:"required,gt=0"`
	Category    string  `form:"category"`
	Height      float64 `form:"height"`
	LengthPic   float64 `form:"lengthpic"`
	Width       float64 `form:"width"`
	MediumUsed  string  `form:"mediumused"`
	Weight      float64 `form:"weigth"`
}

func (h *controller) Create(c echo.Context) error {
	userID, err := pkgmdw.CurrentUserID(c)
	if err != nil {
		return err
	}

	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	file, closeFile, err := formImage(c)
	if err != nil {
		return err
	}
	if closeFile != nil {
		defer closeFile.Close()
	}

	ctx := c.Request().Context()
	product, err := h.products.Create(ctx, usecase.CreateProductParams{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Height:      req.Height,
		LengthPic:   req.LengthPic,
		Width:       req.Width,
		MediumUsed:  req.MediumUsed,
		Weight:      req.Weight,
		File:        file,
	})
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    product,
	})
}

func (h *controller) ListAll(c echo.Context) error {
	products, err := h.products.ListAll(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *controller) ListMine(c echo.Context) error {
	userID, err := pkgmdw.CurrentUserID(c)
	if err != nil {
		return err
	}

	products, err := h.products.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *controller) ListWon(c echo.Context) error {
	userID, err := pkgmdw.CurrentUserID(c)
	if err != nil {
		return err
	}

	products, err := h.products.ListWon(c.Request().Context(), userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *controller) ListSold(c echo.Context) error {
	products, err := h.products.ListSold(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *controller) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	product, err := h.products.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *controller) GetBySlug(c echo.Context) error {
	product, err := h.products.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, product)
}

type UpdateProductRequest struct {
	Title       string  `form:"title" validate:"required"`
	Description string  `form:"description" validate:"required"`
	Price       float64 `form:"price" validate:"required,gt=0"`
	Height      float64 `form:"height"`
	LengthPic   float64 `form:"lengthpic"`
	Width       float64 `form:"width"`
	MediumUsed  string  `form:"mediumused"`
	Weight      float64 `form:"weigth"`
}

func (h *controller) Update(c echo.Context) error {
	userID, err := pkgmdw.CurrentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	file, closeFile, err := formImage(c)
	if err != nil {
		return err
	}
	if closeFile != nil {
		defer closeFile.Close()
	}

	ctx := c.Request().Context()
	product, err := h.products.Update(ctx, userID, id, usecase.UpdateProductParams{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Height:      req.Height,
		LengthPic:   req.LengthPic,
		Width:       req.Width,
		MediumUsed:  req.MediumUsed,
		Weight:      req.Weight,
		File:        file,
	})
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *controller) Delete(c echo.Context) error {
	userID, err := pkgmdw.CurrentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.products.Delete(c.Request().Context(), userID, id); err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Product deleted.",
	})
}

func (h *controller) AdminList(c echo.Context) error {
	products, err := h.products.ListForAdmin(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, products)
}

type VerifyProductRequest struct {
	Commission float64 `json:"commission" validate:"gte=0"`
}

func (h *controller) AdminVerify(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req VerifyProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	product, err := h.products.VerifyAndSetCommission(c.Request().Context(), id, req.Commission)
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Product verified successfully.",
		"data":    product,
	})
}

type AdminDeleteRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1"`
}

func (h *controller) AdminDelete(c echo.Context) error {
	var req AdminDeleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ids := make([]primitive.ObjectID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid product ID %q", raw))
		}
		ids = append(ids, id)
	}

	deleted, err := h.products.DeleteForAdmin(c.Request().Context(), ids)
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%d products deleted successfully", deleted),
	})
}

func pathID(c echo.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "invalid product ID")
	}
	return id, nil
}

// formImage extracts the optional uploaded image from the multipart form.
func formImage(c echo.Context) (*usecase.UploadFile, io.Closer, error) {
	fileHeader, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image upload")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image upload")
	}

	return &usecase.UploadFile{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     src,
	}, src, nil
}

func domainError(err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	case errors.Is(err, models.ErrNotOwner):
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authorized")
	case errors.Is(err, models.ErrUploadFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "Image could not be uploaded")
	default:
		return err
	}
}
