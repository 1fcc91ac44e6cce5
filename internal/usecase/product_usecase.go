package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/artbid/marketplace/internal/kafka"
	"github.com/artbid/marketplace/internal/models"
	"github.com/artbid/marketplace/internal/repo/imagestore"
	"github.com/artbid/marketplace/internal/repo/mongodb"
	"github.com/artbid/marketplace/pkg/util"
)

// maxSlugAttempts bounds the suffix probing for a free slug. The unique index
// on the slug field is the real guarantee; the bound only stops a runaway
// loop when the namespace around a title is saturated.
const maxSlugAttempts = 100

const imageCleanupTimeout = 10 * time.Second

// UploadFile carries an image file received from a multipart request.
type UploadFile struct {
	Name        string
	ContentType string
	Content     io.Reader
}

type CreateProductParams struct {
	UserID      primitive.ObjectID
	Title       string
	Description string
	Price       float64
	Category    string
	Height      float64
	LengthPic   float64
	Width       float64
	MediumUsed  string
	Weight      float64
	File        *UploadFile
}

type UpdateProductParams struct {
	Title       string
	Description string
	Price       float64
	Height      float64
	LengthPic   float64
	Width       float64
	MediumUsed  string
	Weight      float64
	File        *UploadFile
}

type ProductUsecase interface {
	Create(ctx context.Context, params CreateProductParams) (*models.Product, error)
	ListAll(ctx context.Context) ([]*models.ProductDetails, error)
	ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]*models.ProductDetails, error)
	ListWon(ctx context.Context, userID primitive.ObjectID) ([]*models.ProductDetails, error)
	ListSold(ctx context.Context) ([]*models.ProductDetails, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.ProductDetails, error)
	GetBySlug(ctx context.Context, slug string) (*models.ProductDetails, error)
	Update(ctx context.Context, callerID, id primitive.ObjectID, params UpdateProductParams) (*models.Product, error)
	Delete(ctx context.Context, callerID, id primitive.ObjectID) error
	VerifyAndSetCommission(ctx context.Context, id primitive.ObjectID, commission float64) (*models.Product, error)
	ListForAdmin(ctx context.Context) ([]*models.ProductDetails, error)
	DeleteForAdmin(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

type productUsecase struct {
	products mongodb.ProductRepository
	bids     mongodb.BidRepository
	users    mongodb.UserRepository
	images   imagestore.Store
	events   kafka.Publisher
}

func NewProductUsecase(
	products mongodb.ProductRepository,
	bids mongodb.BidRepository,
	users mongodb.UserRepository,
	images imagestore.Store,
	events kafka.Publisher,
) ProductUsecase {
	return &productUsecase{
		products: products,
		bids:     bids,
		users:    users,
		images:   images,
		events:   events,
	}
}

func (uc *productUsecase) Create(ctx context.Context, params CreateProductParams) (*models.Product, error) {
	product := &models.Product{
		UserID:      params.UserID,
		Title:       params.Title,
		Description: params.Description,
		Price:       params.Price,
		Category:    params.Category,
		Height:      params.Height,
		LengthPic:   params.LengthPic,
		Width:       params.Width,
		MediumUsed:  params.MediumUsed,
		Weight:      params.Weight,
	}

	// Upload before persisting so a failed upload leaves no product behind.
	if params.File != nil {
		image, err := uc.uploadImage(ctx, params.File)
		if err != nil {
			return nil, err
		}
		product.Image = image
	}

	if err := uc.insertWithUniqueSlug(ctx, product); err != nil {
		uc.cleanupImage(ctx, product.Image)
		return nil, err
	}

	log.Infow(ctx, "product created", "product_id", product.ID.Hex(), "slug", product.Slug)
	uc.publish(ctx, models.EventProductCreated, product)
	return product, nil
}

// insertWithUniqueSlug probes slug, slug-1, slug-2, ... until an insert
// succeeds. The unique index turns a lost race into ErrDuplicateSlug, which
// just moves probing to the next suffix.
func (uc *productUsecase) insertWithUniqueSlug(ctx context.Context, product *models.Product) error {
	base := Slugify(product.Title)
	if base == "" {
		base = "product"
	}

	slug := base
	suffix := 1
	for attempts := 0; attempts < maxSlugAttempts; attempts++ {
		exists, err := uc.products.SlugExists(ctx, slug)
		if err != nil {
			return fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !exists {
			product.Slug = slug
			err := uc.products.Create(ctx, product)
			if err == nil {
				return nil
			}
			if !errors.Is(err, models.ErrDuplicateSlug) {
				return err
			}
		}
		slug = fmt.Sprintf("%s-%d", base, suffix)
		suffix++
	}

	return fmt.Errorf("no free slug found for %q after %d attempts", base, maxSlugAttempts)
}

func (uc *productUsecase) ListAll(ctx context.Context) ([]*models.ProductDetails, error) {
	products, err := uc.products.List(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, products, true)
}

func (uc *productUsecase) ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]*models.ProductDetails, error) {
	products, err := uc.products.List(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, products, false)
}

func (uc *productUsecase) ListWon(ctx context.Context, userID primitive.ObjectID) ([]*models.ProductDetails, error) {
	products, err := uc.products.List(ctx, bson.M{"sold_to": userID})
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, products, false)
}

func (uc *productUsecase) ListSold(ctx context.Context) ([]*models.ProductDetails, error) {
	products, err := uc.products.List(ctx, bson.M{"is_soldout": true})
	if err != nil {
		return nil, err
	}
	return uc.populate(ctx, products)
}

func (uc *productUsecase) ListForAdmin(ctx context.Context) ([]*models.ProductDetails, error) {
	products, err := uc.products.List(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, products, false)
}

func (uc *productUsecase) Get(ctx context.Context, id primitive.ObjectID) (*models.ProductDetails, error) {
	product, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.details(ctx, product)
}

func (uc *productUsecase) GetBySlug(ctx context.Context, slug string) (*models.ProductDetails, error) {
	product, err := uc.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return uc.details(ctx, product)
}

func (uc *productUsecase) Update(ctx context.Context, callerID, id primitive.ObjectID, params UpdateProductParams) (*models.Product, error) {
	product, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.UserID != callerID {
		return nil, models.ErrNotOwner
	}

	// When no new file is sent the previous image stays as it is.
	previousImage := product.Image
	if params.File != nil {
		image, err := uc.uploadImage(ctx, params.File)
		if err != nil {
			return nil, err
		}
		product.Image = image
	}

	product.Title = params.Title
	product.Description = params.Description
	product.Price = params.Price
	product.Height = params.Height
	product.LengthPic = params.LengthPic
	product.Width = params.Width
	product.MediumUsed = params.MediumUsed
	product.Weight = params.Weight

	updated, err := uc.products.Update(ctx, product)
	if err != nil {
		return nil, err
	}

	if params.File != nil {
		uc.cleanupImage(ctx, previousImage)
	}

	log.Infow(ctx, "product updated", "product_id", updated.ID.Hex())
	uc.publish(ctx, models.EventProductUpdated, updated)
	return updated, nil
}

func (uc *productUsecase) Delete(ctx context.Context, callerID, id primitive.ObjectID) error {
	product, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product.UserID != callerID {
		return models.ErrNotOwner
	}

	if err := uc.products.Delete(ctx, id); err != nil {
		return err
	}

	uc.cleanupImage(ctx, product.Image)

	log.Infow(ctx, "product deleted", "product_id", id.Hex())
	uc.publish(ctx, models.EventProductDeleted, product)
	return nil
}

func (uc *productUsecase) VerifyAndSetCommission(ctx context.Context, id primitive.ObjectID, commission float64) (*models.Product, error) {
	updated, err := uc.products.Verify(ctx, id, commission)
	if err != nil {
		return nil, err
	}

	log.Infow(ctx, "product verified", "product_id", updated.ID.Hex(), "commission", commission)
	uc.publish(ctx, models.EventProductVerified, updated)
	return updated, nil
}

func (uc *productUsecase) DeleteForAdmin(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	// Load before deleting so each removed product still gets its image
	// cleaned up and its deletion event published.
	products, err := uc.products.List(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}

	deleted, err := uc.products.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	for _, product := range products {
		uc.cleanupImage(ctx, product.Image)
		uc.publish(ctx, models.EventProductDeleted, product)
	}

	log.Infow(ctx, "products deleted by admin", "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// enrich populates sellers and derives the effective price of every product
// from its latest bid. Bids and sellers are fetched in two batched queries
// running concurrently; the input order is preserved.
func (uc *productUsecase) enrich(ctx context.Context, products []*models.Product, withCounts bool) ([]*models.ProductDetails, error) {
	productIDs := util.ConvertList(products, func(p *models.Product) primitive.ObjectID { return p.ID })
	ownerIDs := uniqueOwnerIDs(products)

	var (
		summaries map[primitive.ObjectID]models.BidSummary
		sellers   map[primitive.ObjectID]*models.User
	)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		summaries, err = uc.bids.SummarizeByProducts(gctx, productIDs)
		return err
	})
	group.Go(func() error {
		var err error
		sellers, err = uc.users.GetByIDs(gctx, ownerIDs)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	details := make([]*models.ProductDetails, len(products))
	for i, product := range products {
		d := &models.ProductDetails{
			Product:      *product,
			Seller:       sellers[product.UserID],
			BiddingPrice: product.Price,
		}
		summary, ok := summaries[product.ID]
		if ok {
			d.BiddingPrice = summary.LatestPrice
		}
		if withCounts {
			// Always emitted on the full listing, zero for bid-less lots.
			totalBids := summary.TotalBids
			d.TotalBids = &totalBids
		}
		details[i] = d
	}
	return details, nil
}

// populate attaches sellers without touching prices, for the sold listing.
func (uc *productUsecase) populate(ctx context.Context, products []*models.Product) ([]*models.ProductDetails, error) {
	sellers, err := uc.users.GetByIDs(ctx, uniqueOwnerIDs(products))
	if err != nil {
		return nil, err
	}

	details := make([]*models.ProductDetails, len(products))
	for i, product := range products {
		details[i] = &models.ProductDetails{
			Product:      *product,
			Seller:       sellers[product.UserID],
			BiddingPrice: product.Price,
		}
	}
	return details, nil
}

func (uc *productUsecase) details(ctx context.Context, product *models.Product) (*models.ProductDetails, error) {
	d := &models.ProductDetails{
		Product:      *product,
		BiddingPrice: product.Price,
	}

	seller, err := uc.users.GetByID(ctx, product.UserID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	d.Seller = seller

	latest, err := uc.bids.LatestByProduct(ctx, product.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		d.BiddingPrice = latest.Price
	}

	return d, nil
}

func (uc *productUsecase) uploadImage(ctx context.Context, file *UploadFile) (*models.ProductImage, error) {
	uploaded, err := uc.images.Upload(ctx, file.Name, file.ContentType, file.Content)
	if err != nil {
		log.Errorw(ctx, "image upload failed", "file_name", file.Name, "error", err)
		return nil, models.ErrUploadFailed
	}
	return &models.ProductImage{
		FileName: file.Name,
		FilePath: uploaded.URL,
		FileType: file.ContentType,
		PublicID: uploaded.Key,
	}, nil
}

// cleanupImage deletes a hosted image in the background. The primary
// mutation already committed, so a failure here is logged and dropped.
func (uc *productUsecase) cleanupImage(ctx context.Context, image *models.ProductImage) {
	if image == nil || image.PublicID == "" {
		return
	}
	go func() {
		ctx, cancel := util.NewTimeoutContext(ctx, imageCleanupTimeout)
		defer cancel()
		if err := uc.images.Destroy(ctx, image.PublicID); err != nil {
			log.Errorw(ctx, "failed to delete image from storage", "public_id", image.PublicID, "error", err)
		}
	}()
}

func (uc *productUsecase) publish(ctx context.Context, pattern string, product *models.Product) {
	if err := uc.events.Publish(ctx, models.NewProductEvent(pattern, product)); err != nil {
		log.Warnw(ctx, "failed to publish product event", "pattern", pattern, "product_id", product.ID.Hex(), "error", err)
	}
}

func uniqueOwnerIDs(products []*models.Product) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(products))
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	return ids
}
