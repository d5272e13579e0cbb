package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
)

// UserStore is implemented by store.UserStore and storetest.Users.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// CheckStore is implemented by store.CheckStore and storetest.Checks.
type CheckStore interface {
	Create(ctx context.Context, c *models.EmailCheck) error
	List(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.EmailCheck, error)
	Count(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Stats(ctx context.Context, userID primitive.ObjectID, since time.Time) (models.UserStats, error)
	FindOwned(ctx context.Context, userID, checkID primitive.ObjectID) (*models.EmailCheck, error)
	DeleteOwned(ctx context.Context, userID, checkID primitive.ObjectID) (*models.EmailCheck, error)
}

func parseUserID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthenticated("User not authenticated")
	}
	return oid, nil
}
