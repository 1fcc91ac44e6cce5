package mongodb

import (
	"context"
	"fmt"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes this service relies on. The unique slug
// index is what makes slug assignment safe under concurrent creates: the
// insert fails with a duplicate key error instead of storing a second copy.
func EnsureIndexes(ctx context.Context, db *DB) error {
	products := db.Database.Collection(productCollection)
	_, err := products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	bids := db.Database.Collection(bidCollection)
	_, err = bids.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "product", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create bid indexes: %w", err)
	}

	log.Infow(ctx, "database indexes ensured")
	return nil
}
