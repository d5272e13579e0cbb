package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	Name     string `bson:"name" json:"name" validate:"required,max=100"`
	Email    string `bson:"email" json:"email" validate:"required,email"`
	Password string `bson:"password" json:"-" validate:"required"` // argon2id hash, never returned
}

// UserSummary is the public view of a user returned by auth and dashboard routes.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
}
