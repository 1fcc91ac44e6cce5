package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is owned by the account service; this service only reads it to
// populate sellers on product responses.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Photo     string             `bson:"photo" json:"photo"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

const RoleAdmin = "admin"
