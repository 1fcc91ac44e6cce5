package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductImage holds the hosted copy of an uploaded product picture. PublicID
// is the object-store key used to delete the image again.
type ProductImage struct {
	FileName string `bson:"file_name" json:"file_name"`
	FilePath string `bson:"file_path" json:"file_path"`
	FileType string `bson:"file_type" json:"file_type"`
	PublicID string `bson:"public_id" json:"public_id"`
}

type Product struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"user" json:"user"`
	Title       string              `bson:"title" json:"title" validate:"required"`
	Slug        string              `bson:"slug" json:"slug"`
	Description string              `bson:"description" json:"description" validate:"required"`
	Price       float64             `bson:"price" json:"price" validate:"required,gt=0"`
	Category    string              `bson:"category" json:"category"`
	Height      float64             `bson:"height" json:"height"`
	LengthPic   float64             `bson:"lengthpic" json:"lengthpic"`
	Width       float64             `bson:"width" json:"width"`
	MediumUsed  string              `bson:"mediumused" json:"mediumused"`
	Weight      float64             `bson:"weigth" json:"weigth"`
	Image       *ProductImage       `bson:"image,omitempty" json:"image,omitempty"`
	IsVerified  bool                `bson:"is_verified" json:"is_verified"`
	Commission  float64             `bson:"commission" json:"commission"`
	IsSoldOut   bool                `bson:"is_soldout" json:"is_soldout"`
	SoldTo      *primitive.ObjectID `bson:"sold_to,omitempty" json:"sold_to,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// ProductDetails is a product as returned by the read paths: the seller
// document is populated and the price is derived from the latest bid.
// TotalBids is set on the full listing only; there it is always present,
// zero included.
type ProductDetails struct {
	Product
	Seller       *User   `json:"seller,omitempty"`
	BiddingPrice float64 `json:"biddingPrice"`
	TotalBids    *int64  `json:"totalBids,omitempty"`
}
