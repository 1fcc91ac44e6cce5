package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artbid/marketplace/internal/models"
)

const bidCollection = "bids"

type BidRepository interface {
	LatestByProduct(ctx context.Context, productID primitive.ObjectID) (*models.Bid, error)
	CountByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error)
	SummarizeByProducts(ctx context.Context, productIDs []primitive.ObjectID) (map[primitive.ObjectID]models.BidSummary, error)
}

type bidRepo struct {
	collection *mongo.Collection
}

func NewBidRepository(db *DB) BidRepository {
	return &bidRepo{
		collection: db.Database.Collection(bidCollection),
	}
}

func (r *bidRepo) LatestByProduct(ctx context.Context, productID primitive.ObjectID) (*models.Bid, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var bid models.Bid
	err := r.collection.FindOne(ctx, bson.M{"product": productID}, opts).Decode(&bid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bid: %w", err)
	}
	return &bid, nil
}

func (r *bidRepo) CountByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"product": productID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}

// SummarizeByProducts fetches the latest bid price and total bid count for
// every given product in a single aggregation, so list endpoints do not fan
// out one query per row.
func (r *bidRepo) SummarizeByProducts(ctx context.Context, productIDs []primitive.ObjectID) (map[primitive.ObjectID]models.BidSummary, error) {
	summaries := make(map[primitive.ObjectID]models.BidSummary, len(productIDs))
	if len(productIDs) == 0 {
		return summaries, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": bson.M{"$in": productIDs}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$product",
			"latest_price": bson.M{"$first": "$price"},
			"total_bids":   bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize bids: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ProductID   primitive.ObjectID `bson:"_id"`
			LatestPrice float64            `bson:"latest_price"`
			TotalBids   int64              `bson:"total_bids"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode bid summary: %w", err)
		}
		summaries[row.ProductID] = models.BidSummary{
			LatestPrice: row.LatestPrice,
			TotalBids:   row.TotalBids,
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return summaries, nil
}
