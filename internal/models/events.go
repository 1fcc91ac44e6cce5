package models

import "time"

const (
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
	EventProductVerified = "product.verified"
)

// ProductEvent is the payload published to Kafka on product lifecycle changes.
type ProductEvent struct {
	Pattern string           `json:"pattern"`
	Data    ProductEventData `json:"data"`
}

type ProductEventData struct {
	ProductID  string    `json:"product_id"`
	Slug       string    `json:"slug"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewProductEvent(pattern string, p *Product) ProductEvent {
	return ProductEvent{
		Pattern: pattern,
		Data: ProductEventData{
			ProductID:  p.ID.Hex(),
			Slug:       p.Slug,
			UserID:     p.UserID.Hex(),
			OccurredAt: time.Now(),
		},
	}
}
