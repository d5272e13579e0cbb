// Package store persists users and email checks in MongoDB.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection  = "users"
	ChecksCollection = "emailchecks"

	opTimeout = 10 * time.Second
)

// EnsureIndexes creates the indexes both stores rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = db.Collection(ChecksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "checkedAt", Value: -1}},
			Options: options.Index().SetName("user_checked_at"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetName("user_email"),
		},
	})
	if err != nil {
		return fmt.Errorf("emailchecks indexes: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}
