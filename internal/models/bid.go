package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Bid struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID primitive.ObjectID `bson:"product" json:"product" validate:"required"`
	UserID    primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	Price     float64            `bson:"price" json:"price" validate:"required,gt=0"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// BidSummary aggregates the bids of one product: the price of the most recent
// bid and how many bids exist in total.
type BidSummary struct {
	LatestPrice float64 `bson:"latest_price"`
	TotalBids   int64   `bson:"total_bids"`
}
