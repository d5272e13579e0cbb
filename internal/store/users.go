package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
)

// UserStore is the credential store backed by the users collection.
type UserStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(UsersCollection), now: time.Now}
}

// Create inserts u and sets its ID. A duplicate email is reported as a conflict.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	if err := models.ValidateUser(u); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("User already exists with this email")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

// FindByEmail expects an already normalized email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
