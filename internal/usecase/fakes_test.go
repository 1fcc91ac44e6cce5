package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/artbid/marketplace/internal/models"
	"github.com/artbid/marketplace/internal/repo/imagestore"
)

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product

	// conflictOnCreate fails the next N inserts with ErrDuplicateSlug even
	// though SlugExists reported the slug free, like a concurrent insert
	// landing between the check and the write.
	conflictOnCreate int
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[primitive.ObjectID]*models.Product)}
}

func (r *fakeProductRepo) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOnCreate > 0 {
		r.conflictOnCreate--
		return models.ErrDuplicateSlug
	}
	for _, p := range r.products {
		if p.Slug == product.Slug {
			return models.ErrDuplicateSlug
		}
	}
	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	clone := *product
	r.products[product.ID] = &clone
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProductRepo) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Slug == slug {
			clone := *p
			return &clone, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeProductRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepo) List(ctx context.Context, filter bson.M) ([]*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Product
	for _, p := range r.products {
		if matchesFilter(p, filter) {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matchesFilter(p *models.Product, filter bson.M) bool {
	for key, value := range filter {
		switch key {
		case "_id":
			in, _ := value.(bson.M)
			ids, _ := in["$in"].([]primitive.ObjectID)
			found := false
			for _, id := range ids {
				if id == p.ID {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "user":
			if p.UserID != value.(primitive.ObjectID) {
				return false
			}
		case "sold_to":
			if p.SoldTo == nil || *p.SoldTo != value.(primitive.ObjectID) {
				return false
			}
		case "is_soldout":
			if p.IsSoldOut != value.(bool) {
				return false
			}
		}
	}
	return true
}

// Update mirrors the repository's field-narrow write: only the owner-mutable
// fields are copied onto the stored document.
func (r *fakeProductRepo) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[product.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	stored.Title = product.Title
	stored.Description = product.Description
	stored.Price = product.Price
	stored.Height = product.Height
	stored.LengthPic = product.LengthPic
	stored.Width = product.Width
	stored.MediumUsed = product.MediumUsed
	stored.Weight = product.Weight
	stored.Image = product.Image
	stored.UpdatedAt = time.Now()
	clone := *stored
	return &clone, nil
}

func (r *fakeProductRepo) Verify(ctx context.Context, id primitive.ObjectID, commission float64) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	stored.IsVerified = true
	stored.Commission = commission
	stored.UpdatedAt = time.Now()
	clone := *stored
	return &clone, nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := r.products[id]; ok {
			delete(r.products, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeProductRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

type fakeBidRepo struct {
	bids []*models.Bid
}

func (r *fakeBidRepo) LatestByProduct(ctx context.Context, productID primitive.ObjectID) (*models.Bid, error) {
	var latest *models.Bid
	for _, b := range r.bids {
		if b.ProductID != productID {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (r *fakeBidRepo) CountByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error) {
	var count int64
	for _, b := range r.bids {
		if b.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (r *fakeBidRepo) SummarizeByProducts(ctx context.Context, productIDs []primitive.ObjectID) (map[primitive.ObjectID]models.BidSummary, error) {
	summaries := make(map[primitive.ObjectID]models.BidSummary)
	for _, id := range productIDs {
		latest, err := r.LatestByProduct(ctx, id)
		if err != nil {
			continue
		}
		count, _ := r.CountByProduct(ctx, id)
		summaries[id] = models.BidSummary{LatestPrice: latest.Price, TotalBids: count}
	}
	return summaries, nil
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeImageStore struct {
	mu          sync.Mutex
	failUpload  bool
	failDestroy bool
	uploads     int
	destroyed   []string
}

func (s *fakeImageStore) Upload(ctx context.Context, fileName, contentType string, content io.Reader) (*imagestore.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpload {
		return nil, io.ErrUnexpectedEOF
	}
	s.uploads++
	key := "bidding/products/" + fileName
	return &imagestore.UploadResult{
		URL: "https://img.test/" + key,
		Key: key,
	}, nil
}

func (s *fakeImageStore) Destroy(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = append(s.destroyed, key)
	if s.failDestroy {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (s *fakeImageStore) destroyedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.destroyed...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.ProductEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event models.ProductEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) patterns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Pattern
	}
	return out
}
